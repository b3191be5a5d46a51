package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vukan322/gitcard/internal/core"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "gitcard/0.1"
	apiVersion       = "2022-11-28"

	maxAvatarBytes = 2 << 20
)

// HTTPClient is the subset of *http.Client the provider needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL   string
	UserAgent string
}

type Provider struct {
	client    HTTPClient
	baseURL   string
	userAgent string
}

func New(cfg Config, client HTTPClient) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Provider{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

func (p *Provider) Name() string {
	return "github"
}

type githubUser struct {
	ID          int64      `json:"id"`
	Login       string     `json:"login"`
	Name        string     `json:"name"`
	Bio         string     `json:"bio"`
	AvatarURL   string     `json:"avatar_url"`
	HTMLURL     string     `json:"html_url"`
	Company     string     `json:"company"`
	Email       string     `json:"email"`
	Blog        string     `json:"blog"`
	Location    string     `json:"location"`
	PublicRepos int        `json:"public_repos"`
	Followers   int        `json:"followers"`
	Following   int        `json:"following"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type githubRepo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	HTMLURL         string `json:"html_url"`
	StargazersCount int    `json:"stargazers_count"`
}

// FetchProfile issues exactly one GET /users/{username}. A 404 maps to
// core.ErrNotFound, every other failure to core.ErrService.
func (p *Provider) FetchProfile(ctx context.Context, username string) (core.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.Profile{}, fmt.Errorf("github: %w: empty username", core.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/users/%s", p.baseURL, url.PathEscape(username))

	var u githubUser
	if err := p.getJSON(ctx, endpoint, &u); err != nil {
		return core.Profile{}, fmt.Errorf("github: fetch user %q: %w", username, err)
	}
	if u.Login == "" {
		return core.Profile{}, fmt.Errorf("github: fetch user %q: %w: response has no login", username, core.ErrService)
	}

	return convertProfile(u), nil
}

// FetchRepositories returns the login's top repositories by stars.
func (p *Provider) FetchRepositories(ctx context.Context, login string) ([]core.Repository, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, fmt.Errorf("github: %w: empty login", core.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/users/%s/repos?sort=stars&per_page=%d",
		p.baseURL, url.PathEscape(login), core.MaxRepositories)

	var repos []githubRepo
	if err := p.getJSON(ctx, endpoint, &repos); err != nil {
		// a missing user here is still a service failure for the repo panel
		return nil, fmt.Errorf("github: fetch repos for %q: %w: %v", login, core.ErrService, err)
	}

	return core.RankRepositories(convertRepos(repos)), nil
}

// FetchAvatar downloads the avatar image bytes.
func (p *Provider) FetchAvatar(ctx context.Context, avatarURL string) ([]byte, error) {
	if avatarURL == "" {
		return nil, fmt.Errorf("github: %w: empty avatar url", core.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, fmt.Errorf("github: new avatar request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: fetch avatar: %w: %v", core.ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github: avatar fetch failed: %w: status %d", core.ErrService, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return nil, fmt.Errorf("github: read avatar body: %w: %v", core.ErrService, err)
	}
	return data, nil
}

func (p *Provider) getJSON(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: new request: %v", core.ErrService, err)
	}
	p.applyHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", core.ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d from %s", core.ErrService, resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", core.ErrService, err)
	}
	return nil
}

func (p *Provider) applyHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

func convertProfile(u githubUser) core.Profile {
	return core.Profile{
		ID:          u.ID,
		Login:       u.Login,
		Name:        u.Name,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		HTMLURL:     u.HTMLURL,
		Company:     u.Company,
		Email:       u.Email,
		Blog:        u.Blog,
		Location:    u.Location,
		PublicRepos: u.PublicRepos,
		Followers:   u.Followers,
		Following:   u.Following,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func convertRepos(repos []githubRepo) []core.Repository {
	out := make([]core.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, core.Repository{
			ID:      r.ID,
			Name:    r.Name,
			HTMLURL: r.HTMLURL,
			Stars:   r.StargazersCount,
		})
	}
	return out
}
