package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/callwise/relay/internal/metrics"
	"github.com/callwise/relay/internal/prompts"
	"github.com/callwise/relay/internal/session"
)

// AgentClient streams completions through the openai-agents-go SDK. The
// SDK resolves its model provider from the ambient OPENAI_API_KEY.
type AgentClient struct {
	model     string
	maxTokens int64
}

// NewAgentClient creates an agents-SDK backed generator.
func NewAgentClient(model string, maxTokens int) *AgentClient {
	return &AgentClient{model: model, maxTokens: int64(maxTokens)}
}

// Generate runs a single-turn streamed agent run over the flattened history.
func (c *AgentClient) Generate(ctx context.Context, req Request, onToken TokenCallback) (*Result, error) {
	useModel := c.model
	if req.Model != "" {
		useModel = req.Model
	}

	instructions, userMessage := flattenHistory(req)

	agent := agents.New("assistant").
		WithInstructions(instructions).
		WithModel(useModel).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(c.maxTokens),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	start := time.Now()

	events, errCh, err := runner.RunStreamedChan(ctx, agent, userMessage)
	if err != nil {
		if ctx.Err() == nil {
			metrics.Errors.WithLabelValues("generate", "stream_start").Inc()
		}
		return nil, fmt.Errorf("agent stream start: %w", err)
	}

	var textBuf strings.Builder
	var sr streamResult
	for ev := range events {
		handleStreamEvent(ev, &sr, start, onToken, &textBuf)
	}

	if streamErr := <-errCh; streamErr != nil {
		if ctx.Err() == nil {
			metrics.Errors.WithLabelValues("generate", "stream").Inc()
		}
		return nil, fmt.Errorf("agent stream: %w", streamErr)
	}

	latency := time.Since(start)
	metrics.GenerationDuration.Observe(latency.Seconds())

	ttft := float64(0)
	if !sr.ttft.IsZero() {
		ttft = float64(sr.ttft.Sub(start).Milliseconds())
	}

	return &Result{
		Text:               textBuf.String(),
		LatencyMs:          float64(latency.Milliseconds()),
		TimeToFirstTokenMs: ttft,
	}, nil
}

func handleStreamEvent(ev agents.StreamEvent, sr *streamResult, start time.Time, onToken TokenCallback, textBuf *strings.Builder) {
	raw, ok := ev.(agents.RawResponsesStreamEvent)
	if !ok {
		return
	}
	if raw.Data.Type != "response.output_text.delta" {
		return
	}
	if sr.ttft.IsZero() {
		sr.ttft = time.Now()
		metrics.FirstTokenDuration.Observe(sr.ttft.Sub(start).Seconds())
	}
	if onToken != nil {
		onToken(raw.Data.Delta)
	}
	textBuf.WriteString(raw.Data.Delta)
}

// flattenHistory splits the session history into agent instructions and a
// single user message. The agents SDK takes one input string per run, so
// prior turns are prefixed transcript-style onto the current utterance.
func flattenHistory(req Request) (instructions, userMessage string) {
	var sys, current string
	var b strings.Builder

	turns := req.History
	if len(turns) > 0 && turns[0].Role == session.RoleSystem {
		sys = turns[0].Content
		turns = turns[1:]
	}
	if n := len(turns); n > 0 && turns[n-1].Role == session.RoleCaller {
		current = turns[n-1].Content
		turns = turns[:n-1]
	}
	for _, t := range turns {
		switch t.Role {
		case session.RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n", t.Content)
		default:
			fmt.Fprintf(&b, "User: %s\n", t.Content)
		}
	}
	b.WriteString("User: " + current)

	if req.Language != "" {
		sys += "\n" + prompts.LanguageDirective(req.Language)
	}
	return sys, b.String()
}
