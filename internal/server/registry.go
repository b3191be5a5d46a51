package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vukan322/gitcard/internal/card"
	"github.com/vukan322/gitcard/internal/logging"
)

// Registry keeps the card session of every open page, keyed by a random
// id. Sessions idle for longer than the TTL are closed by Sweep.
type Registry struct {
	newSession func() *card.Session
	ttl        time.Duration
	now        func() time.Time
	logger     logging.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

type entry struct {
	session  *card.Session
	lastSeen time.Time

	// held for the duration of an export; the exporter drives the face
	exporting sync.Mutex
}

func NewRegistry(newSession func() *card.Session, ttl time.Duration, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Registry{
		newSession: newSession,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
		sessions:   make(map[uuid.UUID]*entry),
	}
}

func (r *Registry) Create() (uuid.UUID, *card.Session) {
	id := uuid.New()
	s := r.newSession()

	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	r.mu.Unlock()

	return id, s
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id uuid.UUID) (*card.Session, bool) {
	e, ok := r.get(id)
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (r *Registry) get(id uuid.UUID) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e, true
}

// Touch keeps a session alive without looking it up for use.
func (r *Registry) Touch(id uuid.UUID) {
	r.get(id)
}

// Remove closes the session and forgets it.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		e.session.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session idle for longer than the TTL and reports how
// many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*card.Session
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is done, then closes whatever is
// left.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				r.logger.Info(ctx, "expired idle sessions", "removed", removed, "open", r.Len())
			}
		case <-ctx.Done():
			r.CloseAll()
			return
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*entry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
}
