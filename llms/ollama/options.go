package ollama

import (
	"log/slog"
	"net/http"
	"net/url"
)

// DefaultContextWindow is the num_ctx sent with every chat request so the
// server does not silently truncate a full-size chunk.
const DefaultContextWindow = 4096

type options struct {
	model           string
	ollamaServerURL *url.URL
	httpClient      *http.Client
	contextWindow   int
	pullMissing     bool
	logger          *slog.Logger
}

// Option is a function type for configuring Ollama client options.
type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		contextWindow: DefaultContextWindow,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

func WithServerURL(rawURL string) Option {
	return func(opts *options) {
		if parsedURL, err := url.Parse(rawURL); err == nil {
			opts.ollamaServerURL = parsedURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithContextWindow sets num_ctx. Values below one are ignored.
func WithContextWindow(tokens int) Option {
	return func(opts *options) {
		if tokens > 0 {
			opts.contextWindow = tokens
		}
	}
}

// WithPullMissing makes the first call pull the model when the server does
// not have it yet.
func WithPullMissing(pull bool) Option {
	return func(opts *options) {
		opts.pullMissing = pull
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}
