package chains

import (
	"log/slog"

	"github.com/sevigo/newscast/prompts"
)

const (
	// DefaultMaxResponseTokens is the response budget reserved per call.
	DefaultMaxResponseTokens = 256
	// DefaultMaxDepth bounds the number of summarize-and-merge levels.
	DefaultMaxDepth = 8

	defaultTitleTokens = 32
)

type chainOptions struct {
	systemPrompt      string
	prompt            prompts.PromptTemplate
	maxResponseTokens int
	maxDepth          int
	temperature       float64
	logger            *slog.Logger
}

// Option configures a chain.
type Option func(*chainOptions)

func WithSystemPrompt(system string) Option {
	return func(o *chainOptions) {
		o.systemPrompt = system
	}
}

// WithPrompt replaces the user prompt template. Summarize expects {{.text}};
// Title expects {{.count}} and {{.stories}}.
func WithPrompt(prompt prompts.PromptTemplate) Option {
	return func(o *chainOptions) {
		if prompt.Template != "" {
			o.prompt = prompt
		}
	}
}

func WithMaxResponseTokens(n int) Option {
	return func(o *chainOptions) {
		if n > 0 {
			o.maxResponseTokens = n
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(o *chainOptions) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithTemperature sets the sampling temperature of every summary call.
// Zero leaves the provider default.
func WithTemperature(t float64) Option {
	return func(o *chainOptions) {
		if t > 0 {
			o.temperature = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *chainOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
