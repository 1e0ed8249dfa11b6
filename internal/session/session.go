// Package session holds the per-call conversational state shared between the
// gateway read loop and the generation goroutine.
package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleCaller    Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    Role
	Content string
}

// Generation is the cancellation handle for one in-flight streaming
// generation. A session holds at most one live Generation.
type Generation struct {
	id     uint64
	cancel context.CancelFunc
}

// Session is the state container for a single live call, created after the
// connection is authenticated and destroyed when it closes. All mutation goes
// through the mutex: the socket read loop and the generation goroutine touch
// the same history and active-generation slot.
type Session struct {
	ID string

	mu         sync.Mutex
	language   string
	history    []Turn
	historyCap int
	active     *Generation
	nextGenID  uint64
	partial    strings.Builder
	lastSeen   time.Time
}

// New creates a session seeded with the system instruction as the first
// history entry. historyCap bounds the total entries kept; values below 2
// fall back to 20.
func New(id, systemPrompt, language string, historyCap int) *Session {
	if historyCap < 2 {
		historyCap = 20
	}
	return &Session{
		ID:         id,
		language:   language,
		history:    []Turn{{Role: RoleSystem, Content: systemPrompt}},
		historyCap: historyCap,
		lastSeen:   time.Now(),
	}
}

// Language returns the current session language tag.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage overwrites the session language. It takes effect on the next
// generation request. Empty tags are ignored.
func (s *Session) SetLanguage(tag string) {
	if tag == "" {
		return
	}
	s.mu.Lock()
	s.language = tag
	s.mu.Unlock()
}

// AppendTurn appends to the history, collapsing to
// [first entry, most recent historyCap-1 entries] when the cap is exceeded.
// The leading system turn is always retained.
func (s *Session) AppendTurn(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Turn{Role: role, Content: content})
	if len(s.history) > s.historyCap {
		kept := make([]Turn, 0, s.historyCap)
		kept = append(kept, s.history[0])
		kept = append(kept, s.history[len(s.history)-(s.historyCap-1):]...)
		s.history = kept
	}
}

// History returns a snapshot copy of the conversation so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// BufferFragment accumulates a non-final caller utterance fragment. Partial
// speech never triggers a generation on its own.
func (s *Session) BufferFragment(text string) {
	s.mu.Lock()
	s.partial.WriteString(text)
	s.mu.Unlock()
}

// TakeUtterance returns the buffered fragments plus the final fragment as one
// utterance and resets the buffer.
func (s *Session) TakeUtterance(final string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	utterance := s.partial.String() + final
	s.partial.Reset()
	return utterance
}

// StartGeneration installs a fresh cancellation handle as the session's
// active generation and returns its context. Any previous live generation is
// cancelled first, preserving the at-most-one invariant even if an interrupt
// was lost.
func (s *Session) StartGeneration(parent context.Context) (context.Context, *Generation) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.cancel()
	}
	s.nextGenID++
	g := &Generation{id: s.nextGenID, cancel: cancel}
	s.active = g
	return ctx, g
}

// Finish clears the active slot if g still owns it and reports whether it
// did. A generation that lost the race against an interrupt gets false and
// must stay silent.
func (s *Session) Finish(g *Generation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != g.id {
		return false
	}
	s.active = nil
	return true
}

// Interrupt cancels the in-flight generation, if any, and reports whether one
// was active. A no-op on an idle session.
func (s *Session) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	s.active.cancel()
	s.active = nil
	return true
}

// Close cancels any in-flight generation. Called unconditionally when the
// connection goes away.
func (s *Session) Close() {
	s.Interrupt()
}

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// IdleFor reports whether the session has seen no activity for at least d.
func (s *Session) IdleFor(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeen) >= d
}
