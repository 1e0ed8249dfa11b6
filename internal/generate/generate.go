// Package generate streams assistant replies from an external
// chat-completion service. Backends are opaque: the coordinator hands over
// the bounded history and a language directive, and consumes tokens until
// the stream ends or its context is cancelled.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/callwise/relay/internal/session"
)

// TokenCallback is called for each streamed content fragment.
type TokenCallback func(token string)

// Request carries everything one generation needs.
type Request struct {
	History  []session.Turn
	Language string
	Model    string
}

// Result holds the complete reply with timing.
type Result struct {
	Text               string
	LatencyMs          float64
	TimeToFirstTokenMs float64
}

// Streamer produces one streaming completion. The stream is finite and not
// restartable; a new turn starts a new call.
type Streamer interface {
	Generate(ctx context.Context, req Request, onToken TokenCallback) (*Result, error)
}

// Router dispatches to a generator backend by engine name with a fallback
// default, so the serving engine can be swapped by configuration without
// touching the coordinator.
type Router struct {
	backends map[string]Streamer
	fallback string
}

// NewRouter creates a router over the given backends.
func NewRouter(backends map[string]Streamer, fallback string) *Router {
	return &Router{backends: backends, fallback: fallback}
}

// Route returns the backend for the given engine name, falling back to the
// default.
func (r *Router) Route(engine string) (Streamer, error) {
	if b, ok := r.backends[engine]; ok {
		return b, nil
	}
	if b, ok := r.backends[r.fallback]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no generator backend for engine %q", engine)
}

// Engines returns the names of all registered backends.
func (r *Router) Engines() []string {
	names := make([]string, 0, len(r.backends))
	for k := range r.backends {
		names = append(names, k)
	}
	return names
}

type streamResult struct {
	text string
	ttft time.Time
}
