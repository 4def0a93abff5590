package crawler

import (
	"log/slog"
	"net/http"
	"time"
)

type options struct {
	httpClient *http.Client
	userAgent  string
	attempts   int
	retryDelay time.Duration
	baseURL    string
	feedURL    string
	sourceName string
	logger     *slog.Logger
}

// Option configures a Source built by New.
type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) getter() httpGetter {
	return httpGetter{
		client:     o.httpClient,
		userAgent:  o.userAgent,
		attempts:   o.attempts,
		retryDelay: o.retryDelay,
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithRetry sets the number of attempts per request and the base backoff.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		o.attempts = attempts
		o.retryDelay = delay
	}
}

// WithBaseURL overrides the Hacker News API root.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithFeedURL sets the RSS or Atom feed read by the feed source.
func WithFeedURL(url string) Option {
	return func(o *options) {
		o.feedURL = url
	}
}

// WithSourceName overrides the source_name written on feed articles.
func WithSourceName(name string) Option {
	return func(o *options) {
		o.sourceName = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
