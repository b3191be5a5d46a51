package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vukan322/gitcard/internal/card"
	"github.com/vukan322/gitcard/internal/core"
	"github.com/vukan322/gitcard/internal/render"
)

type stateView struct {
	Generation          uint64           `json:"generation"`
	Stage               string           `json:"stage"`
	Username            string           `json:"username"`
	Face                string           `json:"face"`
	ProfileLoading      bool             `json:"profileLoading"`
	RepositoriesLoading bool             `json:"repositoriesLoading"`
	Profile             *profileView     `json:"profile"`
	Repositories        []repositoryView `json:"repositories"`
	ProfileError        *errorView       `json:"profileError,omitempty"`
	RepositoryError     *errorView       `json:"repositoryError,omitempty"`
}

type profileView struct {
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	HTMLURL     string `json:"htmlUrl,omitempty"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	Blog        string `json:"blog,omitempty"`
	Location    string `json:"location,omitempty"`
	PublicRepos int    `json:"publicRepos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type repositoryView struct {
	Name    string `json:"name"`
	HTMLURL string `json:"htmlUrl"`
	Stars   int    `json:"stars"`
}

type errorView struct {
	Code    core.ErrorKind `json:"code"`
	Message string         `json:"message"`
}

func newStateView(st card.State) stateView {
	v := stateView{
		Generation:          st.Generation,
		Stage:               st.Stage.String(),
		Username:            st.Username,
		Face:                st.Face.String(),
		ProfileLoading:      st.ProfileLoading(),
		RepositoriesLoading: st.RepositoryLoading(),
		Repositories:        make([]repositoryView, 0, len(st.Repositories)),
		ProfileError:        newErrorView(st.ProfileErr),
		RepositoryError:     newErrorView(st.RepositoryErr),
	}

	if p := st.Profile; p != nil {
		v.Profile = &profileView{
			Login:       p.Login,
			Name:        p.Name,
			Bio:         p.Bio,
			AvatarURL:   p.AvatarURL,
			HTMLURL:     p.HTMLURL,
			Company:     p.Company,
			Email:       p.Email,
			Blog:        p.Blog,
			Location:    p.Location,
			PublicRepos: p.PublicRepos,
			Followers:   p.Followers,
			Following:   p.Following,
			CreatedAt:   render.FormatDate(p.CreatedAt),
			UpdatedAt:   render.FormatDate(p.UpdatedAt),
		}
	}
	for _, r := range st.Repositories {
		v.Repositories = append(v.Repositories, repositoryView{Name: r.Name, HTMLURL: r.HTMLURL, Stars: r.Stars})
	}
	return v
}

func newErrorView(err error) *errorView {
	if err == nil {
		return nil
	}
	return &errorView{Code: core.Kind(err), Message: core.Message(err)}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoProfile):
		return http.StatusConflict
	case errors.Is(err, card.ErrClosed):
		return http.StatusGone
	case errors.Is(err, core.ErrExport):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": newErrorView(err)})
}

func writeStatus(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
