// Package server exposes card sessions over HTTP: a JSON API driven by the
// page, a WebSocket state feed, PNG export downloads and SVG embeds.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vukan322/gitcard/internal/card"
	"github.com/vukan322/gitcard/internal/core"
	"github.com/vukan322/gitcard/internal/export"
	"github.com/vukan322/gitcard/internal/logging"
	"github.com/vukan322/gitcard/internal/providers"
	"github.com/vukan322/gitcard/internal/render"
	"github.com/vukan322/gitcard/internal/share"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	maxBodySize  = 4096
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type Options struct {
	// PublicURL prefixes share links and embed snippets.
	PublicURL      string
	AllowedOrigins []string
	Logger         logging.Logger
}

type Server struct {
	registry  *Registry
	provider  providers.Provider
	exporter  *export.Exporter
	publicURL string
	origins   []string
	logger    logging.Logger
	now       func() time.Time
}

func New(registry *Registry, provider providers.Provider, exporter *export.Exporter, opts Options) *Server {
	s := &Server{
		registry:  registry,
		provider:  provider,
		exporter:  exporter,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		origins:   opts.AllowedOrigins,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if s.logger == nil {
		s.logger = logging.Nop{}
	}
	return s
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /share", s.handleSharePage)
	mux.HandleFunc("GET /embed/{file}", s.handleEmbed)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleState)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/lookup", s.handleLookup)
	mux.HandleFunc("POST /api/sessions/{id}/flip", s.handleFlip)
	mux.HandleFunc("GET /api/sessions/{id}/export", s.handleExport)
	mux.HandleFunc("GET /api/sessions/{id}/share", s.handleShare)
	mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleWS)
}

// Handler returns the routes wrapped in CORS, panic recovery and access
// logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	headersOk := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"})
	originsOk := handlers.AllowedOrigins(s.origins)
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"})

	var h http.Handler = handlers.CORS(originsOk, headersOk, methodsOk)(mux)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(h)
	return handlers.CombinedLoggingHandler(accessLog{s.logger}, h)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.registry.Len()})
}

func (s *Server) handleSharePage(w http.ResponseWriter, r *http.Request) {
	payload, err := share.Parse(r.URL.Query().Get("data"))
	if err != nil {
		s.logger.Debug(r.Context(), "rejected share payload", "error", err)
		http.Error(w, core.Message(err), http.StatusBadRequest)
		return
	}
	s.renderPage(w, r, payload.Username)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, username string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, map[string]string{"Username": username}); err != nil {
		s.logger.Error(r.Context(), "failed to render page", "error", err)
	}
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}

	profile, err := s.provider.FetchProfile(ctx, username)
	if err != nil {
		s.logger.Warn(ctx, "embed profile fetch failed", "username", username, "error", err)
		http.Error(w, core.Message(err), statusFor(err))
		return
	}

	repos, err := s.provider.FetchRepositories(ctx, profile.Login)
	if err != nil {
		s.logger.Warn(ctx, "embed repository fetch failed", "login", profile.Login, "error", err)
		repos = nil
	}

	c := render.Card{Profile: profile, Repositories: repos}
	if profile.AvatarURL != "" {
		if data, err := s.provider.FetchAvatar(ctx, profile.AvatarURL); err == nil {
			c.AvatarDataURI = render.AvatarDataURI(data)
		}
	}

	svg, err := render.RenderSVG(c)
	if err != nil {
		s.logger.Error(ctx, "failed to render svg", "login", profile.Login, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(svg)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, _ := s.registry.Create()
	s.logger.Debug(r.Context(), "session created", "session", id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if !s.registry.Remove(id) {
		writeStatus(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newStateView(session.Snapshot()))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var input struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&input); err != nil {
		writeError(w, fmt.Errorf("%w: malformed body: %v", core.ErrInvalidInput, err))
		return
	}

	if _, err := session.Submit(input.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newStateView(session.Snapshot()))
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	face, err := session.Flip()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"face": face.String()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	e, ok := s.registry.get(id)
	if !ok {
		writeStatus(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}

	if !e.exporting.TryLock() {
		writeStatus(w, http.StatusConflict, "export_in_progress", "export already running")
		return
	}
	defer e.exporting.Unlock()

	art, err := s.exporter.Export(r.Context(), e.session)
	if err != nil {
		if !errors.Is(err, core.ErrNoProfile) {
			s.logger.Error(r.Context(), "export failed", "session", id, "error", err)
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	w.Header().Set("Content-Length", fmt.Sprint(len(art.PNG)))
	w.Write(art.PNG)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	st := session.Snapshot()
	if st.Profile == nil {
		writeError(w, core.ErrNoProfile)
		return
	}
	login := st.Profile.Login

	link, err := share.Link(s.publicURL, login, s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	snippet, err := share.Embed(s.publicURL, login)
	if err != nil {
		writeError(w, err)
		return
	}
	markdown, err := share.Markdown(s.publicURL, login)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"link":     link,
		"embed":    snippet,
		"markdown": markdown,
	})
}

// handleWS pushes the session state after every change until the client
// goes away or the session is closed.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, ok := s.registry.Get(id)
	if !ok {
		writeStatus(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "ws: accept failed", "session", id, "error", err)
		return
	}
	defer conn.CloseNow()

	states, unsubscribe := session.Subscribe()
	defer unsubscribe()

	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-states:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(wctx, conn, newStateView(st))
			cancel()
			if err != nil {
				s.logger.Debug(ctx, "ws: write failed", "session", id, "error", err)
				return
			}
			s.registry.Touch(id)

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
			s.registry.Touch(id)

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*card.Session, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return nil, false
	}
	session, ok := s.registry.Get(id)
	if !ok {
		writeStatus(w, http.StatusNotFound, "session_not_found", "session not found")
		return nil, false
	}
	return session, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeStatus(w, http.StatusNotFound, "session_not_found", "session not found")
		return uuid.Nil, false
	}
	return id, true
}

type recoveryLogger struct {
	logger logging.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error(context.Background(), "recovered from panic", "panic", fmt.Sprint(v...))
}

// accessLog feeds combined-format access lines into the structured logger.
type accessLog struct {
	logger logging.Logger
}

func (a accessLog) Write(p []byte) (int, error) {
	a.logger.Info(context.Background(), "http access", "line", strings.TrimSpace(string(p)))
	return len(p), nil
}
