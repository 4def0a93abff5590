package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/sevigo/newscast/internal/retry"
	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/schema"
)

var ErrNoAPIKey = errors.New("openai: API key is required")

// LLM is a chat completion client for OpenAI compatible endpoints.
type LLM struct {
	client  *goopenai.Client
	options options
	logger  *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := goopenai.DefaultConfig(o.apiKey)
	if o.organization != "" {
		cfg.OrgID = o.organization
	}
	if o.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.baseURL, "/")
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	llm := &LLM{
		client:  goopenai.NewClientWithConfig(cfg),
		options: o,
		logger:  o.logger.With("component", "openai_llm", "model", o.model),
	}
	llm.logger.Info("OpenAI LLM initialized successfully")
	return llm, nil
}

// Call is a convenience method for a single-turn conversation.
func (l *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)
}

// GenerateContent sends messages as a chat completion, retrying transient
// failures with exponential backoff.
func (l *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("openai: no messages to send")
	}

	opts := llms.ApplyCallOptions(options...)
	req := goopenai.ChatCompletionRequest{
		Model:       l.options.model,
		Messages:    toChatMessages(messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}

	start := time.Now()
	var resp *llms.ContentResponse
	err := retry.Do(ctx, l.options.maxRetries+1, l.options.retryDelay, func(ctx context.Context) error {
		var err error
		if opts.StreamingFunc != nil {
			resp, err = l.stream(ctx, req, opts.StreamingFunc)
		} else {
			resp, err = l.complete(ctx, req)
		}
		if err != nil {
			l.logger.WarnContext(ctx, "Chat completion attempt failed", "error", err)
			if !retryable(err) {
				return retry.Permanent(err)
			}
		}
		return err
	})
	duration := time.Since(start)
	if err != nil {
		l.logger.ErrorContext(ctx, "OpenAI client failed", "error", err, "duration", duration)
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	l.logger.DebugContext(ctx, "Content generation completed", "duration", duration)
	return resp, nil
}

func (l *LLM) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (*llms.ContentResponse, error) {
	out, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		l.logger.WarnContext(ctx, "Chat completion returned no choices")
	}

	choices := make([]*llms.ContentChoice, 0, len(out.Choices))
	for _, c := range out.Choices {
		choices = append(choices, &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"PromptTokens":     out.Usage.PromptTokens,
				"CompletionTokens": out.Usage.CompletionTokens,
				"TotalTokens":      out.Usage.TotalTokens,
				"Model":            out.Model,
			},
		})
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func (l *LLM) stream(
	ctx context.Context,
	req goopenai.ChatCompletionRequest,
	fn func(ctx context.Context, chunk []byte) error,
) (*llms.ContentResponse, error) {
	req.Stream = true
	s, err := l.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var full strings.Builder
	var stop string
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		full.WriteString(delta)
		if chunk.Choices[0].FinishReason != "" {
			stop = string(chunk.Choices[0].FinishReason)
		}
		if err := fn(ctx, []byte(delta)); err != nil {
			return nil, retry.Permanent(fmt.Errorf("streaming function returned an error: %w", err))
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: full.String(), StopReason: stop}},
	}, nil
}

func toChatMessages(messages []schema.MessageContent) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    typeToRole(m.Role),
			Content: m.GetTextContent(),
		})
	}
	return out
}

func typeToRole(typ schema.ChatMessageType) string {
	switch typ {
	case schema.ChatMessageTypeSystem:
		return goopenai.ChatMessageRoleSystem
	case schema.ChatMessageTypeAI:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}

// retryable reports whether a failed call may succeed if repeated:
// transport errors, rate limits and server errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return retry.RetryableStatus(status)
}
