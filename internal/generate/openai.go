package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/callwise/relay/internal/metrics"
	"github.com/callwise/relay/internal/prompts"
	"github.com/callwise/relay/internal/session"
)

// OpenAIClient streams chat completions over the OpenAI API.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIClient creates a streaming completion client. baseURL overrides
// the API endpoint for compatible servers; empty uses the default.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Generate streams one completion for the session history, invoking onToken
// for every content fragment as it arrives.
func (c *OpenAIClient) Generate(ctx context.Context, req Request, onToken TokenCallback) (*Result, error) {
	start := time.Now()

	useModel := c.model
	if req.Model != "" {
		useModel = req.Model
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(useModel),
		Messages:  buildMessages(req),
		MaxTokens: openai.Int(c.maxTokens),
	})
	defer stream.Close()

	var sr streamResult
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if sr.ttft.IsZero() {
			sr.ttft = time.Now()
			metrics.FirstTokenDuration.Observe(sr.ttft.Sub(start).Seconds())
		}
		if onToken != nil {
			onToken(delta)
		}
		sr.text += delta
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() == nil {
			metrics.Errors.WithLabelValues("generate", "stream").Inc()
		}
		return nil, fmt.Errorf("completion stream: %w", err)
	}

	latency := time.Since(start)
	metrics.GenerationDuration.Observe(latency.Seconds())

	ttft := float64(0)
	if !sr.ttft.IsZero() {
		ttft = float64(sr.ttft.Sub(start).Milliseconds())
	}

	return &Result{
		Text:               sr.text,
		LatencyMs:          float64(latency.Milliseconds()),
		TimeToFirstTokenMs: ttft,
	}, nil
}

// buildMessages maps the session history onto API message roles and appends
// the language directive so replies come back in the caller's language.
func buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	for _, t := range req.History {
		switch t.Role {
		case session.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case session.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	if req.Language != "" {
		msgs = append(msgs, openai.SystemMessage(prompts.LanguageDirective(req.Language)))
	}
	return msgs
}
