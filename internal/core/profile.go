package core

import (
	"sort"
	"time"
)

// MaxRepositories is the number of top repositories shown on the card.
const MaxRepositories = 5

type Profile struct {
	ID          int64
	Login       string
	Name        string
	Bio         string
	AvatarURL   string
	HTMLURL     string
	Company     string
	Email       string
	Blog        string
	Location    string
	PublicRepos int
	Followers   int
	Following   int
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// DisplayName returns the name when set, otherwise the login.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Login
}

type Repository struct {
	ID      int64
	Name    string
	HTMLURL string
	Stars   int
}

// RankRepositories orders repos by star count, highest first, and keeps at
// most MaxRepositories. Ties keep their input order.
func RankRepositories(repos []Repository) []Repository {
	ranked := make([]Repository, len(repos))
	copy(ranked, repos)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Stars > ranked[j].Stars
	})

	if len(ranked) > MaxRepositories {
		ranked = ranked[:MaxRepositories]
	}
	return ranked
}
