package chains

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/prompts"
	"github.com/sevigo/newscast/schema"
)

// MockSummary is what the offline mock model answers to every chunk.
const MockSummary = "This is a mock summary."

var (
	ErrNoSegments       = errors.New("chains: at least one segment is required")
	ErrEmptyContent     = errors.New("chains: segments contain no text")
	ErrNoConvergence    = errors.New("chains: summaries no longer merge into fewer chunks")
	ErrMaxDepthExceeded = errors.New("chains: maximum summarization depth exceeded")
	ErrNilDependency    = errors.New("chains: model and chunker are required")
)

// Chunker packs text segments into token-bounded chunks.
type Chunker interface {
	Chunk(ctx context.Context, segments []string) ([]string, error)
}

// Summarize reduces any number of text segments to one summary. Each level
// chunks its input, summarizes every chunk in order with one model call and
// feeds the summaries to the next level until a single summary remains.
type Summarize struct {
	LLM     llms.Model
	Chunker Chunker

	systemPrompt      string
	prompt            prompts.PromptTemplate
	maxResponseTokens int
	maxDepth          int
	temperature       float64
	logger            *slog.Logger
}

func NewSummarize(llm llms.Model, chunker Chunker, opts ...Option) (*Summarize, error) {
	if llm == nil || chunker == nil {
		return nil, ErrNilDependency
	}

	o := chainOptions{
		systemPrompt:      prompts.SummarizeSystemPrompt,
		prompt:            prompts.DefaultSummarizePrompt,
		maxResponseTokens: DefaultMaxResponseTokens,
		maxDepth:          DefaultMaxDepth,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.prompt.Requires("text"); err != nil {
		return nil, err
	}

	return &Summarize{
		LLM:               llm,
		Chunker:           chunker,
		systemPrompt:      o.systemPrompt,
		prompt:            o.prompt,
		maxResponseTokens: o.maxResponseTokens,
		maxDepth:          o.maxDepth,
		temperature:       o.temperature,
		logger:            o.logger.With("component", "summarize_chain"),
	}, nil
}

// Call returns the final summary of segments.
//
// An empty summary is a valid result. Blank summaries add no text to the
// next level, and when a whole level comes back blank Call returns "".
func (c *Summarize) Call(ctx context.Context, segments []string) (string, error) {
	if len(segments) == 0 {
		return "", ErrNoSegments
	}

	start := time.Now()
	input := segments
	calls := 0

	for level := 0; ; level++ {
		if level >= c.maxDepth {
			return "", fmt.Errorf("%w: %d levels", ErrMaxDepthExceeded, c.maxDepth)
		}

		chunks, err := c.Chunker.Chunk(ctx, input)
		if err != nil {
			return "", fmt.Errorf("chunk level %d: %w", level, err)
		}

		if len(chunks) == 0 {
			if level == 0 {
				return "", ErrEmptyContent
			}
			c.logger.WarnContext(ctx, "Every summary at this level was empty", "level", level)
			return "", nil
		}

		if level > 0 && len(chunks) >= len(input) {
			return "", fmt.Errorf("%w: level %d produced %d chunks from %d summaries",
				ErrNoConvergence, level, len(chunks), len(input))
		}

		c.logger.DebugContext(ctx, "Summarizing level",
			"level", level, "inputs", len(input), "chunks", len(chunks))

		summaries := make([]string, 0, len(chunks))
		for i, chunk := range chunks {
			summary, err := c.SummarizeChunk(ctx, chunk)
			calls++
			if err != nil {
				return "", fmt.Errorf("summarize chunk %d/%d at level %d: %w", i+1, len(chunks), level, err)
			}
			summaries = append(summaries, summary)
		}

		if len(summaries) == 1 {
			c.logger.InfoContext(ctx, "Summary complete",
				"levels", level+1, "calls", calls, "duration", time.Since(start))
			return summaries[0], nil
		}

		input = summaries
	}
}

// SummarizeChunk makes one model call for a single chunk. A response
// without choices counts as an empty summary, not an error.
func (c *Summarize) SummarizeChunk(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messages := schema.Conversation(c.systemPrompt, c.prompt.Format(map[string]string{"text": text}))
	callOpts := []llms.CallOption{llms.WithMaxTokens(c.maxResponseTokens)}
	if c.temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(c.temperature))
	}
	resp, err := c.LLM.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", err
	}

	summary, err := llms.FirstChoice(resp)
	if errors.Is(err, llms.ErrEmptyResponse) {
		c.logger.WarnContext(ctx, "Model returned no summary", "chunk_length", len(text))
		return "", nil
	}
	return summary, err
}
