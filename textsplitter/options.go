package textsplitter

import "log/slog"

// options holds configuration settings for the token splitter.
type options struct {
	maxTokens int
	maxDepth  int
	logger    *slog.Logger
}

// Option is a function type for configuring the splitter.
type Option func(*options)

// WithMaxTokens sets the token budget of a chunk. Values <= 0 are kept and
// rejected by the constructor.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		o.maxTokens = n
	}
}

// WithMaxDepth bounds how many times a single segment may be bisected.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
