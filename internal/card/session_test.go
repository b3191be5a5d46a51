package card

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukan322/gitcard/internal/core"
)

// fakeFetcher implements both fetcher interfaces and records call order.
type fakeFetcher struct {
	mu       sync.Mutex
	events   []string
	profiles map[string]core.Profile
	repos    map[string][]core.Repository
	repoErr  error

	// gates block a profile fetch for a username until closed; the fetch
	// ignores cancellation on purpose, like a slow server would.
	gates map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		profiles: make(map[string]core.Profile),
		repos:    make(map[string][]core.Repository),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) record(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeFetcher) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, username string) (core.Profile, error) {
	f.record("profile:" + username)

	f.mu.Lock()
	gate := f.gates[username]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[strings.ToLower(username)]
	if !ok {
		return core.Profile{}, fmt.Errorf("fake: %w", core.ErrNotFound)
	}
	return p, nil
}

func (f *fakeFetcher) FetchRepositories(ctx context.Context, login string) ([]core.Repository, error) {
	f.record("repos:" + login)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return f.repos[login], nil
}

func (f *fakeFetcher) addUser(login string, repos ...core.Repository) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[strings.ToLower(login)] = core.Profile{Login: login, PublicRepos: len(repos)}
	f.repos[login] = repos
}

func (f *fakeFetcher) gate(username string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[username] = ch
	return ch
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not finish")
	}
}

func newTestSession(f *fakeFetcher) *Session {
	return NewSession(f, f, nil)
}

func TestSubmit_Success_UsesResolvedLogin(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("octocat",
		core.Repository{Name: "Spoon-Knife", Stars: 12000},
		core.Repository{Name: "Hello-World", Stars: 2500},
	)
	s := newTestSession(f)
	defer s.Close()

	done, err := s.Submit("  OctoCat ")
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, []string{"profile:OctoCat", "repos:octocat"}, f.Events())

	st := s.Snapshot()
	assert.Equal(t, StageRepoLoaded, st.Stage)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "octocat", st.Profile.Login)
	assert.Equal(t, "OctoCat", st.Username)
	assert.Len(t, st.Repositories, 2)
	assert.NoError(t, st.ProfileErr)
	assert.NoError(t, st.RepositoryErr)
	assert.False(t, st.ProfileLoading())
	assert.False(t, st.RepositoryLoading())
}

func TestSubmit_NotFound_NoRepositoryFetch(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSession(f)
	defer s.Close()

	st, err := s.Lookup(context.Background(), "this-user-should-not-exist-xyz123")

	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, StageProfileFailed, st.Stage)
	assert.Nil(t, st.Profile)
	assert.Empty(t, st.Repositories)
	assert.Equal(t, "Usuário não encontrado", core.Message(st.ProfileErr))
	assert.Equal(t, []string{"profile:this-user-should-not-exist-xyz123"}, f.Events())
}

func TestSubmit_BlankInputRejectedSynchronously(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("octocat")
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Lookup(context.Background(), "octocat")
	require.NoError(t, err)
	before := s.Snapshot()

	for _, in := range []string{"", "  ", "\t"} {
		done, err := s.Submit(in)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Nil(t, done)
	}

	assert.Equal(t, before, s.Snapshot(), "rejected input must not touch state")
	assert.Len(t, f.Events(), 2)
}

func TestSubmit_RepositoryFailureKeepsProfile(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("octocat")
	f.repoErr = fmt.Errorf("fake: %w: status 502", core.ErrService)
	s := newTestSession(f)
	defer s.Close()

	st, err := s.Lookup(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Equal(t, StageRepoFailed, st.Stage)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "octocat", st.Profile.Login)
	assert.NoError(t, st.ProfileErr)
	assert.ErrorIs(t, st.RepositoryErr, core.ErrService)
	assert.Equal(t, "Erro ao buscar dados do GitHub", core.Message(st.RepositoryErr))
}

func TestSubmit_StaleResponseDiscarded(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("alice")
	f.addUser("bob", core.Repository{Name: "b-repo", Stars: 1})
	gateA := f.gate("alice")
	s := newTestSession(f)
	defer s.Close()

	doneA, err := s.Submit("alice")
	require.NoError(t, err)

	doneB, err := s.Submit("bob")
	require.NoError(t, err)
	wait(t, doneB)

	close(gateA)
	wait(t, doneA)

	st := s.Snapshot()
	require.NotNil(t, st.Profile)
	assert.Equal(t, "bob", st.Profile.Login)
	assert.Equal(t, "bob", st.Username)
	assert.Equal(t, StageRepoLoaded, st.Stage)
	assert.NotContains(t, f.Events(), "repos:alice", "stale profile must not trigger a repository fetch")
}

func TestSubmit_ResetsPreviousStateAndFace(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("alice")
	f.repoErr = fmt.Errorf("fake: %w", core.ErrService)
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Lookup(context.Background(), "alice")
	require.NoError(t, err)
	_, err = s.Flip()
	require.NoError(t, err)
	require.Equal(t, StageRepoFailed, s.Snapshot().Stage)

	gate := f.gate("bob")
	done, err := s.Submit("bob")
	require.NoError(t, err)

	st := s.Snapshot()
	assert.Equal(t, StageProfileLoading, st.Stage)
	assert.True(t, st.ProfileLoading())
	assert.Nil(t, st.Profile)
	assert.Nil(t, st.Repositories)
	assert.NoError(t, st.RepositoryErr)
	assert.Equal(t, Front, st.Face)

	close(gate)
	wait(t, done)
	assert.Equal(t, StageProfileFailed, s.Snapshot().Stage)
}

func TestFlip(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("octocat")
	s := newTestSession(f)
	defer s.Close()

	_, err := s.Flip()
	assert.ErrorIs(t, err, core.ErrNoProfile)
	assert.Equal(t, Front, s.Snapshot().Face)

	_, err = s.Lookup(context.Background(), "octocat")
	require.NoError(t, err)

	face, err := s.Flip()
	require.NoError(t, err)
	assert.Equal(t, Back, face)
	face, err = s.Flip()
	require.NoError(t, err)
	assert.Equal(t, Front, face)

	s.SetFace(Back)
	assert.Equal(t, Back, s.Snapshot().Face)
}

func TestClose_DropsLateResults(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("octocat")
	gate := f.gate("octocat")
	s := newTestSession(f)

	done, err := s.Submit("octocat")
	require.NoError(t, err)
	s.Close()
	close(gate)
	wait(t, done)
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, StageProfileLoading, st.Stage)
	assert.Nil(t, st.Profile)

	_, err = s.Submit("octocat")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscribe_ReceivesLatestState(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("octocat")
	s := newTestSession(f)
	defer s.Close()

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	first := <-updates
	assert.Equal(t, StageIdle, first.Stage)

	_, err := s.Lookup(context.Background(), "octocat")
	require.NoError(t, err)

	select {
	case st := <-updates:
		assert.Equal(t, StageRepoLoaded, st.Stage)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSubscribe_ClosedOnSessionClose(t *testing.T) {
	s := newTestSession(newFakeFetcher())
	updates, _ := s.Subscribe()
	<-updates

	s.Close()

	_, ok := <-updates
	assert.False(t, ok)
}

func TestStageAndFaceStrings(t *testing.T) {
	assert.Equal(t, "repo_failed", StageRepoFailed.String())
	assert.Equal(t, "unknown", Stage(42).String())
	assert.Equal(t, "back", Back.String())
	assert.Equal(t, Front, Back.Other())
}

func TestSetFaceAt_IgnoresReplacedCard(t *testing.T) {
	f := newFakeFetcher()
	f.addUser("alice")
	f.addUser("bob")
	s := newTestSession(f)

	st, err := s.Lookup(context.Background(), "alice")
	require.NoError(t, err)
	aliceGen := st.Generation

	assert.True(t, s.SetFaceAt(aliceGen, Back))
	assert.Equal(t, Back, s.Snapshot().Face)

	_, err = s.Lookup(context.Background(), "bob")
	require.NoError(t, err)

	assert.False(t, s.SetFaceAt(aliceGen, Back))
	assert.Equal(t, Front, s.Snapshot().Face)
	assert.Equal(t, "bob", s.Snapshot().Profile.Login)

	s.Close()
	assert.False(t, s.SetFaceAt(s.Snapshot().Generation, Back))
}
