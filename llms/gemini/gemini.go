package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/schema"
)

var (
	ErrNoAPIKey      = errors.New("gemini: API key is required")
	ErrInvalidModel  = errors.New("gemini: invalid model specified")
	ErrNoMessages    = errors.New("gemini: no messages to send")
	ErrSystemMessage = errors.New("gemini: system message must be the first message in the conversation")
)

// LLM is a Gemini chat model that can also count its own tokens.
type LLM struct {
	client  *genai.Client
	options options
	logger  *slog.Logger
}

var (
	_ llms.Model     = (*LLM)(nil)
	_ llms.Tokenizer = (*LLM)(nil)
)

// New creates a Gemini client. The API key falls back to GEMINI_API_KEY.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	if o.apiKey == "" {
		o.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if o.model == "" {
		return nil, ErrInvalidModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     o.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "gemini_llm", "model", o.model),
	}

	llm.logger.Info("Gemini LLM initialized successfully")
	return llm, nil
}

// Call is a convenience method for a single-turn conversation.
func (g *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

// GenerateContent handles multi-turn conversations and streaming.
func (g *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	start := time.Now()
	callOpts := llms.ApplyCallOptions(options...)

	history, system, err := toGeminiContents(messages)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrNoMessages
	}

	model := g.options.model

	genConfig := &genai.GenerateContentConfig{SystemInstruction: system}
	if callOpts.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(callOpts.Temperature))
	}
	if callOpts.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(callOpts.MaxTokens)
	}

	if callOpts.StreamingFunc == nil {
		resp, err := g.client.Models.GenerateContent(ctx, model, history, genConfig)
		duration := time.Since(start)
		if err != nil {
			g.logger.ErrorContext(ctx, "Gemini client failed", "error", err, "duration", duration)
			return nil, err
		}
		return g.toContentResponse(ctx, resp, model, duration), nil
	}

	var fullResponse strings.Builder
	var finalResp *genai.GenerateContentResponse

	for resp, errStream := range g.client.Models.GenerateContentStream(ctx, model, history, genConfig) {
		if errors.Is(errStream, iterator.Done) {
			break
		}
		if errStream != nil {
			g.logger.ErrorContext(ctx, "Gemini stream error", "error", errStream)
			return nil, errStream
		}

		finalResp = resp
		chunk := resp.Text()
		fullResponse.WriteString(chunk)
		if err := callOpts.StreamingFunc(ctx, []byte(chunk)); err != nil {
			return nil, fmt.Errorf("streaming function returned an error: %w", err)
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: fullResponse.String(),
				GenerationInfo: map[string]any{
					"TotalTokens": totalTokens(finalResp),
					"Duration":    time.Since(start),
					"Model":       model,
				},
			},
		},
	}, nil
}

// CountTokens uses the countTokens endpoint of the configured model.
func (g *LLM) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	resp, err := g.client.Models.CountTokens(ctx, g.options.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, fmt.Errorf("gemini count tokens: %w", err)
	}
	return int(resp.TotalTokens), nil
}

// toGeminiContents splits a leading system message off as the system
// instruction and maps the remaining turns to user and model roles.
func toGeminiContents(messages []schema.MessageContent) ([]*genai.Content, *genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	var system *genai.Content

	for i, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case schema.ChatMessageTypeSystem:
			if i != 0 {
				return nil, nil, ErrSystemMessage
			}
			system = genai.NewContentFromText(msg.GetTextContent(), genai.RoleUser)
			continue
		case schema.ChatMessageTypeAI:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}

		parts := make([]*genai.Part, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			parts = append(parts, genai.NewPartFromText(p.String()))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, system, nil
}

// toContentResponse maps the first candidate. A response without candidates
// becomes an empty choice list so callers see llms.ErrEmptyResponse.
func (g *LLM) toContentResponse(
	ctx context.Context,
	resp *genai.GenerateContentResponse,
	model string,
	duration time.Duration,
) *llms.ContentResponse {
	if resp == nil || len(resp.Candidates) == 0 {
		g.logger.WarnContext(ctx, "Gemini returned no candidates")
		return &llms.ContentResponse{}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    resp.Text(),
				StopReason: string(resp.Candidates[0].FinishReason),
				GenerationInfo: map[string]any{
					"TotalTokens": totalTokens(resp),
					"Duration":    duration,
					"Model":       model,
				},
			},
		},
	}
}

func totalTokens(resp *genai.GenerateContentResponse) int32 {
	if resp == nil || resp.UsageMetadata == nil {
		return 0
	}
	return resp.UsageMetadata.TotalTokenCount
}
