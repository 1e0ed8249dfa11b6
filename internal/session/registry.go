package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/callwise/relay/internal/metrics"
)

// Registry tracks live sessions for the whole process. It is constructed at
// startup and injected into the connection gateway; entries normally leave
// through Remove on disconnect, with the sweep as a backstop for sessions
// whose connection died without a close.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its ID.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

// Remove deregisters the session. Safe to call for an already-removed ID.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Get returns the session for id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep runs until ctx is done, evicting sessions idle past ttl every
// interval. Evicted sessions get their in-flight generation cancelled.
func (r *Registry) Sweep(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range r.expired(ttl) {
				s.Close()
				r.Remove(s.ID)
				metrics.SessionsEvicted.Inc()
				slog.Warn("session evicted", "session_id", s.ID, "idle_ttl", ttl)
			}
		}
	}
}

func (r *Registry) expired(ttl time.Duration) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for _, s := range r.sessions {
		if s.IdleFor(ttl) {
			out = append(out, s)
		}
	}
	return out
}
