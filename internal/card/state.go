// Package card holds the view model of a profile card: which lookup stage
// it is in, what it shows, and which face is turned up.
package card

import (
	"github.com/vukan322/gitcard/internal/core"
)

type Face int

const (
	Front Face = iota
	Back
)

func (f Face) String() string {
	if f == Back {
		return "back"
	}
	return "front"
}

// Other returns the opposite face.
func (f Face) Other() Face {
	if f == Back {
		return Front
	}
	return Back
}

// Stage is the lookup state machine:
//
//	Idle -> ProfileLoading -> ProfileFailed
//	                       -> RepoLoading -> RepoLoaded | RepoFailed
//
// Any stage re-enters ProfileLoading on a new submission.
type Stage int

const (
	StageIdle Stage = iota
	StageProfileLoading
	StageProfileFailed
	StageRepoLoading
	StageRepoLoaded
	StageRepoFailed
)

var stageNames = [...]string{
	StageIdle:           "idle",
	StageProfileLoading: "profile_loading",
	StageProfileFailed:  "profile_failed",
	StageRepoLoading:    "repo_loading",
	StageRepoLoaded:     "repo_loaded",
	StageRepoFailed:     "repo_failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// State is an immutable snapshot of a card. Fields that do not belong to
// the current stage are always zero.
type State struct {
	Generation    uint64
	Stage         Stage
	Username      string
	Profile       *core.Profile
	Repositories  []core.Repository
	ProfileErr    error
	RepositoryErr error
	Face          Face
}

func (s State) ProfileLoading() bool {
	return s.Stage == StageProfileLoading
}

func (s State) RepositoryLoading() bool {
	return s.Stage == StageRepoLoading
}

func (s State) ProfileLoaded() bool {
	return s.Profile != nil
}

func idle() State {
	return State{Stage: StageIdle, Face: Front}
}

func profileLoading(gen uint64, username string) State {
	return State{Generation: gen, Stage: StageProfileLoading, Username: username, Face: Front}
}

func (s State) profileFailed(err error) State {
	return State{Generation: s.Generation, Stage: StageProfileFailed, Username: s.Username, ProfileErr: err, Face: Front}
}

func (s State) repoLoading(p core.Profile) State {
	return State{Generation: s.Generation, Stage: StageRepoLoading, Username: s.Username, Profile: &p, Face: s.Face}
}

func (s State) repoLoaded(repos []core.Repository) State {
	next := s
	next.Stage = StageRepoLoaded
	next.Repositories = repos
	next.RepositoryErr = nil
	return next
}

func (s State) repoFailed(err error) State {
	next := s
	next.Stage = StageRepoFailed
	next.Repositories = nil
	next.RepositoryErr = err
	return next
}
