package card

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vukan322/gitcard/internal/core"
	"github.com/vukan322/gitcard/internal/logging"
	"github.com/vukan322/gitcard/internal/providers"
)

var ErrClosed = errors.New("card session closed")

// Session owns one card's state for the lifetime of a page view. Lookups
// run on their own goroutine; every result is tagged with the generation
// of the submission that started it and dropped if a newer submission
// (or Close) happened in the meantime.
type Session struct {
	profiles providers.ProfileFetcher
	repos    providers.RepositoryFetcher
	logger   logging.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
	subs    map[int]chan State
	nextSub int
}

func NewSession(profiles providers.ProfileFetcher, repos providers.RepositoryFetcher, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.Nop{}
	}
	base, stop := context.WithCancel(context.Background())

	return &Session{
		profiles: profiles,
		repos:    repos,
		logger:   logger,
		base:     base,
		stop:     stop,
		state:    idle(),
		subs:     make(map[int]chan State),
	}
}

// Submit starts a lookup for username. Blank input is rejected with
// core.ErrInvalidInput before anything changes. The returned channel is
// closed once this lookup has finished, whether or not its results were
// applied.
func (s *Session) Submit(username string) (<-chan struct{}, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("card: %w: empty username", core.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.setLocked(profileLoading(gen, username))
	s.mu.Unlock()

	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()
		s.lookup(ctx, gen, username)
	}()

	return done, nil
}

// Lookup submits username and waits for that lookup to settle.
func (s *Session) Lookup(ctx context.Context, username string) (State, error) {
	done, err := s.Submit(username)
	if err != nil {
		return s.Snapshot(), err
	}

	select {
	case <-done:
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}

	st := s.Snapshot()
	if st.ProfileErr != nil {
		return st, st.ProfileErr
	}
	return st, nil
}

func (s *Session) lookup(ctx context.Context, gen uint64, username string) {
	log := s.logger.With("generation", gen, "username", username)

	profile, err := s.profiles.FetchProfile(ctx, username)
	if err != nil {
		if s.apply(gen, func(st State) State { return st.profileFailed(err) }) {
			log.Warn(ctx, "profile lookup failed", "kind", core.Kind(err), "error", err)
		} else {
			log.Debug(ctx, "dropped stale profile error")
		}
		return
	}

	if !s.apply(gen, func(st State) State { return st.repoLoading(profile) }) {
		log.Debug(ctx, "dropped stale profile", "login", profile.Login)
		return
	}

	// the resolved login, not the raw input: casing may differ
	repos, err := s.repos.FetchRepositories(ctx, profile.Login)
	if err != nil {
		if s.apply(gen, func(st State) State { return st.repoFailed(err) }) {
			log.Warn(ctx, "repository lookup failed", "login", profile.Login, "error", err)
		}
		return
	}

	if s.apply(gen, func(st State) State { return st.repoLoaded(repos) }) {
		log.Info(ctx, "card loaded", "login", profile.Login, "repositories", len(repos))
	} else {
		log.Debug(ctx, "dropped stale repositories", "login", profile.Login)
	}
}

// apply runs next against the current state if gen is still current.
func (s *Session) apply(gen uint64, next func(State) State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return false
	}
	s.setLocked(next(s.state))
	return true
}

func (s *Session) setLocked(next State) {
	s.state = next
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Flip turns the card over.
func (s *Session) Flip() (Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Profile == nil {
		return s.state.Face, core.ErrNoProfile
	}
	next := s.state
	next.Face = next.Face.Other()
	s.setLocked(next)
	return next.Face, nil
}

// SetFace turns the given face up. It is a no-op without a profile.
func (s *Session) SetFace(face Face) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFaceLocked(face)
}

// SetFaceAt is SetFace for a caller holding a snapshot: it does nothing
// once a newer submission (or Close) has replaced generation gen. It
// reports whether the face was applied.
func (s *Session) SetFaceAt(gen uint64, face Face) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return false
	}
	return s.setFaceLocked(face)
}

func (s *Session) setFaceLocked(face Face) bool {
	if s.state.Profile == nil {
		return false
	}
	if s.state.Face != face {
		next := s.state
		next.Face = face
		s.setLocked(next)
	}
	return true
}

// Subscribe returns a channel that always holds the latest state. Slow
// readers skip intermediate states. Call the returned func to unsubscribe.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close abandons in-flight lookups and ends all subscriptions. Results
// that arrive afterwards are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.stop()
}

// Wait blocks until every started lookup goroutine has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}
