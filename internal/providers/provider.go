package providers

import (
	"context"

	"github.com/vukan322/gitcard/internal/core"
)

type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (core.Profile, error)
}

type RepositoryFetcher interface {
	FetchRepositories(ctx context.Context, login string) ([]core.Repository, error)
}

type AvatarFetcher interface {
	FetchAvatar(ctx context.Context, avatarURL string) ([]byte, error)
}

// Provider is everything a card needs from a profile source.
type Provider interface {
	Name() string
	ProfileFetcher
	RepositoryFetcher
	AvatarFetcher
}
