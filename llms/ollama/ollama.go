package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/llms/ollama/ollamaclient"
	"github.com/sevigo/newscast/schema"
)

var (
	ErrNoMessages    = errors.New("ollama: no messages provided")
	ErrModelNotFound = errors.New("ollama: model not found")
	ErrInvalidModel  = errors.New("ollama: invalid model specified")
)

// LLM is a chat model and tokenizer served by a local Ollama instance.
type LLM struct {
	client  *ollamaclient.Client
	options options
	logger  *slog.Logger

	ensureOnce sync.Once
	ensureErr  error
}

var (
	_ llms.Model     = (*LLM)(nil)
	_ llms.Tokenizer = (*LLM)(nil)
)

// ModelDetails describes the model as reported by /api/show.
type ModelDetails struct {
	Family        string
	ParameterSize string
	Quantization  string
}

func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	if o.model == "" {
		return nil, ErrInvalidModel
	}

	client, err := ollamaclient.NewClient(o.ollamaServerURL, o.httpClient, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "ollama_llm", "model", o.model),
	}

	llm.logger.Info("Ollama LLM initialized successfully", "server", client.BaseURL().String())
	return llm, nil
}

func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	start := time.Now()
	o.logger.DebugContext(ctx, "Starting simple call", "prompt_length", len(prompt))

	result, err := llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)

	duration := time.Since(start)
	if err != nil {
		o.logger.ErrorContext(ctx, "Call failed", "error", err, "duration", duration)
		return "", err
	}

	o.logger.DebugContext(ctx, "Call completed successfully",
		"response_length", len(result), "duration", duration)
	return result, nil
}

func (o *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	if o.options.pullMissing {
		o.ensureOnce.Do(func() { o.ensureErr = o.EnsureModel(ctx) })
		if o.ensureErr != nil {
			return nil, o.ensureErr
		}
	}

	start := time.Now()
	o.logger.DebugContext(ctx, "Starting Ollama content generation", "message_count", len(messages))

	opts := llms.ApplyCallOptions(options...)
	model := o.options.model

	isStreamingFunc := opts.StreamingFunc != nil
	req := &api.ChatRequest{
		Model:    model,
		Messages: toOllamaMessages(messages),
		Stream:   &isStreamingFunc,
		Options:  o.requestOptions(opts),
	}

	var onChunk func(api.ChatResponse) error
	if opts.StreamingFunc != nil {
		onChunk = func(chunk api.ChatResponse) error {
			if err := opts.StreamingFunc(ctx, []byte(chunk.Message.Content)); err != nil {
				return fmt.Errorf("streaming function returned an error: %w", err)
			}
			return nil
		}
	}

	final, err := o.client.Chat(ctx, req, onChunk)
	duration := time.Since(start)
	if err != nil {
		o.logger.ErrorContext(ctx, "Ollama client failed", "error", err, "duration", duration)
		return nil, err
	}

	response := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    final.Message.Content,
				StopReason: final.DoneReason,
				GenerationInfo: map[string]any{
					"CompletionTokens": final.EvalCount,
					"PromptTokens":     final.PromptEvalCount,
					"TotalTokens":      final.EvalCount + final.PromptEvalCount,
					"Duration":         duration,
					"Model":            model,
				},
			},
		},
	}

	o.logger.DebugContext(ctx, "Content generation completed", "duration", duration)
	return response, nil
}

func (o *LLM) requestOptions(opts llms.CallOptions) map[string]any {
	out := map[string]any{"num_ctx": o.options.contextWindow}
	if opts.MaxTokens > 0 {
		out["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		out["temperature"] = opts.Temperature
	}
	return out
}

func toOllamaMessages(messages []schema.MessageContent) []api.Message {
	chatMsgs := make([]api.Message, 0, len(messages))
	for _, mc := range messages {
		texts := make([]string, 0, len(mc.Parts))
		for _, p := range mc.Parts {
			texts = append(texts, p.String())
		}
		chatMsgs = append(chatMsgs, api.Message{
			Role:    typeToRole(mc.Role),
			Content: strings.Join(texts, "\n"),
		})
	}
	return chatMsgs
}

func typeToRole(typ schema.ChatMessageType) string {
	switch typ {
	case schema.ChatMessageTypeSystem:
		return "system"
	case schema.ChatMessageTypeAI:
		return "assistant"
	default:
		return "user"
	}
}

// EnsureModel pulls the model if the server does not have it.
func (o *LLM) EnsureModel(ctx context.Context) error {
	exists, err := o.ModelExists(ctx)
	if err != nil {
		return fmt.Errorf("model existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	o.logger.InfoContext(ctx, "Model not found locally, initiating pull")

	pullStart := time.Now()
	err = o.PullModel(ctx, func(progress api.ProgressResponse) error {
		if progress.Total > 0 {
			percent := (float64(progress.Completed) / float64(progress.Total)) * 100
			o.logger.InfoContext(ctx, "Model pull progress",
				"status", progress.Status,
				"percent", fmt.Sprintf("%.1f%%", percent))
		} else {
			o.logger.InfoContext(ctx, "Model pull status", "status", progress.Status)
		}
		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Model pull failed", "error", err, "duration", time.Since(pullStart))
		return fmt.Errorf("model pull failed: %w", err)
	}

	o.logger.InfoContext(ctx, "Model pull completed successfully", "duration", time.Since(pullStart))
	return nil
}

func (o *LLM) ModelExists(ctx context.Context) (bool, error) {
	_, err := o.client.Show(ctx, &api.ShowRequest{Model: o.options.model})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (o *LLM) PullModel(ctx context.Context, progressFn func(api.ProgressResponse) error) error {
	req := &ollamaclient.PullRequest{
		Model:  o.options.model,
		Stream: true,
	}
	return o.client.Pull(ctx, req, progressFn)
}

func (o *LLM) GetModelDetails(ctx context.Context) (*ModelDetails, error) {
	showResp, err := o.client.Show(ctx, &api.ShowRequest{Model: o.options.model})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to retrieve model information: %w", err)
	}

	return &ModelDetails{
		Family:        showResp.Details.Family,
		ParameterSize: showResp.Details.ParameterSize,
		Quantization:  showResp.Details.QuantizationLevel,
	}, nil
}

// CountTokens asks the server to evaluate the prompt and reports its
// prompt_eval_count. It is exact for the served model but costs a request.
func (o *LLM) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	stream := false
	req := &ollamaclient.GenerateRequest{
		Model:  o.options.model,
		Prompt: text,
		Stream: &stream,
		Options: ollamaclient.Options{
			NumPredict: 1,
			NumCtx:     o.options.contextWindow,
		},
	}

	var tokenCount int
	err := o.client.Generate(ctx, req, func(resp ollamaclient.GenerateResponse) error {
		if resp.Done {
			tokenCount = resp.PromptEvalCount
		}
		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Token counting failed", "error", err)
		return 0, fmt.Errorf("token counting failed: %w", err)
	}
	return tokenCount, nil
}

func isNotFound(err error) bool {
	var statusErr *ollamaclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
