package demo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vukan322/gitcard/internal/core"
)

// DemoProvider serves canned data without touching the network.
// The login "ghost" is reported as missing.
type DemoProvider struct{}

func New() *DemoProvider {
	return &DemoProvider{}
}

func (d *DemoProvider) Name() string {
	return "demo"
}

func (d *DemoProvider) FetchProfile(ctx context.Context, username string) (core.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.Profile{}, fmt.Errorf("demo: %w: empty username", core.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return core.Profile{}, fmt.Errorf("demo: %w: %v", core.ErrService, err)
	}
	if strings.EqualFold(username, "ghost") {
		return core.Profile{}, fmt.Errorf("demo: %w", core.ErrNotFound)
	}

	created := time.Date(2011, time.January, 25, 18, 44, 36, 0, time.UTC)
	updated := time.Now().UTC().Truncate(24 * time.Hour)

	return core.Profile{
		ID:          1,
		Login:       strings.ToLower(username),
		Name:        "Demo Developer",
		Bio:         "Builds small tools and writes about Go.",
		HTMLURL:     "https://github.com/" + strings.ToLower(username),
		Company:     "@demo",
		Blog:        "https://example.com",
		Location:    "São Paulo",
		PublicRepos: 12,
		Followers:   10,
		Following:   5,
		CreatedAt:   &created,
		UpdatedAt:   &updated,
	}, nil
}

func (d *DemoProvider) FetchRepositories(ctx context.Context, login string) ([]core.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("demo: %w: %v", core.ErrService, err)
	}

	base := "https://github.com/" + login + "/"
	return core.RankRepositories([]core.Repository{
		{ID: 1, Name: "dotfiles", HTMLURL: base + "dotfiles", Stars: 3},
		{ID: 2, Name: "gitcard", HTMLURL: base + "gitcard", Stars: 32},
		{ID: 3, Name: "tiny-kv", HTMLURL: base + "tiny-kv", Stars: 18},
		{ID: 4, Name: "lua-fmt", HTMLURL: base + "lua-fmt", Stars: 7},
		{ID: 5, Name: "notes", HTMLURL: base + "notes", Stars: 0},
		{ID: 6, Name: "advent", HTMLURL: base + "advent", Stars: 11},
	}), nil
}

// FetchAvatar always fails so renderers fall back to their placeholder.
func (d *DemoProvider) FetchAvatar(ctx context.Context, avatarURL string) ([]byte, error) {
	return nil, fmt.Errorf("demo: %w: no avatars", core.ErrService)
}
