// Package turn drives the per-utterance state machine: start a cancellable
// streaming generation, relay its fragments, mask slow first tokens with a
// filler, and fold the finished reply back into the session history.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/callwise/relay/internal/generate"
	"github.com/callwise/relay/internal/metrics"
	"github.com/callwise/relay/internal/prompts"
	"github.com/callwise/relay/internal/session"
)

// Outbound is one message emitted to the caller-facing channel. A terminal
// message closes the logical reply and carries the trailing metadata;
// non-terminal fragments carry only the token.
type Outbound struct {
	Type          string `json:"type"`
	Token         string `json:"token"`
	Last          bool   `json:"last"`
	Interruptible bool   `json:"interruptible,omitempty"`
	Preemptible   bool   `json:"preemptible,omitempty"`
	Lang          string `json:"lang,omitempty"`
}

// Sender delivers outbound messages. Implementations must be safe for
// concurrent use and must swallow writes after the channel has closed.
type Sender interface {
	Send(Outbound)
}

// DefaultDeadAirDelay is how long the coordinator waits for a first token
// before speaking a filler phrase.
const DefaultDeadAirDelay = 1200 * time.Millisecond

// Coordinator runs turns for all sessions. It holds no per-call state; that
// lives in the Session.
type Coordinator struct {
	gen          generate.Streamer
	model        string
	deadAirDelay time.Duration
}

// NewCoordinator creates a coordinator over the given generator backend.
// A non-positive deadAirDelay falls back to DefaultDeadAirDelay.
func NewCoordinator(gen generate.Streamer, model string, deadAirDelay time.Duration) *Coordinator {
	if deadAirDelay <= 0 {
		deadAirDelay = DefaultDeadAirDelay
	}
	return &Coordinator{gen: gen, model: model, deadAirDelay: deadAirDelay}
}

// HandlePrompt processes one caller utterance fragment. Partial fragments
// are buffered; only the final fragment of an utterance starts a generation.
// ctx is the session-scoped context: when the connection closes, every
// generation started under it is cancelled.
func (c *Coordinator) HandlePrompt(ctx context.Context, sess *session.Session, out Sender, token string, last bool, lang string) {
	sess.SetLanguage(lang)
	if !last {
		sess.BufferFragment(token)
		return
	}

	utterance := sess.TakeUtterance(token)
	sess.AppendTurn(session.RoleCaller, utterance)
	history := sess.History()

	genCtx, gen := sess.StartGeneration(ctx)
	go c.runGeneration(genCtx, sess, gen, history, out)
}

// HandleInterrupt cancels the in-flight generation the moment new caller
// speech is detected. A no-op when the session is idle.
func (c *Coordinator) HandleInterrupt(sess *session.Session) {
	if sess.Interrupt() {
		metrics.Interrupts.Inc()
		slog.Info("generation interrupted", "session_id", sess.ID)
	}
}

func (c *Coordinator) runGeneration(ctx context.Context, sess *session.Session, gen *session.Generation, history []session.Turn, out Sender) {
	lang := sess.Language()

	guard := armDeadAir(ctx, c.deadAirDelay, func() {
		// The timer can win the select in the same instant an interrupt
		// cancels the generation; stay silent in that case.
		if ctx.Err() != nil {
			return
		}
		metrics.DeadAirFills.Inc()
		out.Send(Outbound{
			Type:          "text",
			Token:         prompts.Filler(lang),
			Last:          true,
			Interruptible: true,
			Preemptible:   true,
			Lang:          lang,
		})
	})
	defer guard.Disarm()

	first := true
	result, err := c.gen.Generate(ctx, generate.Request{
		History:  history,
		Language: lang,
		Model:    c.model,
	}, func(token string) {
		if ctx.Err() != nil {
			return
		}
		if first {
			guard.Disarm()
			first = false
		}
		out.Send(Outbound{Type: "text", Token: token, Last: false})
	})
	guard.Disarm()

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			// Deliberate cancellation: no outbound message, no history.
			sess.Finish(gen)
			return
		}
		slog.Error("generation failed", "session_id", sess.ID, "error", err)
		if sess.Finish(gen) {
			out.Send(Outbound{
				Type:          "text",
				Token:         prompts.Apology(lang),
				Last:          true,
				Interruptible: true,
				Preemptible:   true,
				Lang:          lang,
			})
		}
		return
	}

	// An interrupt that raced with natural completion wins: whoever clears
	// the active slot first decides, and the loser stays silent.
	if !sess.Finish(gen) {
		return
	}

	sess.AppendTurn(session.RoleAssistant, result.Text)
	out.Send(Outbound{
		Type:          "text",
		Token:         "",
		Last:          true,
		Interruptible: true,
		Preemptible:   true,
		Lang:          lang,
	})

	slog.Info("turn complete",
		"session_id", sess.ID,
		"llm_ms", result.LatencyMs,
		"ttft_ms", result.TimeToFirstTokenMs,
		"reply_len", len(result.Text),
	)
}
