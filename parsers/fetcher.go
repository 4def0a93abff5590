package parsers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/sevigo/newscast/internal/retry"
)

const (
	DefaultUserAgent  = "Mozilla/5.0 (compatible; newscast/1.0; +https://github.com/sevigo/newscast)"
	DefaultTimeout    = 30 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
	// MaxBodySize bounds how much of a response is read.
	MaxBodySize = 32 << 20
)

var ErrNoParser = errors.New("parsers: no parser for response")

// StatusError is a non-2xx answer to a fetch.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("parsers: GET %s: status %d", e.URL, e.StatusCode)
}

// Fetcher downloads a URL and extracts its paragraphs with the parser that
// matches the response.
type Fetcher struct {
	client     *http.Client
	registry   ParserRegistry
	userAgent  string
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRetry sets the number of attempts and the base backoff delay.
func WithRetry(attempts int, delay time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.retryDelay = delay
	}
}

func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFetcher(registry ParserRegistry, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: DefaultTimeout},
		registry:   registry,
		userAgent:  DefaultUserAgent,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetcher")
	return f
}

// Fetch GETs rawURL and returns its paragraphs. Transport errors, 429 and
// 5xx responses are retried; other failures are returned at once.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("parsers: invalid url %q", rawURL)
	}

	var paragraphs []string
	err = retry.Do(ctx, f.attempts, f.retryDelay, func(ctx context.Context) error {
		var err error
		paragraphs, err = f.fetchOnce(ctx, u)
		if err != nil {
			f.logger.WarnContext(ctx, "Fetch attempt failed", "url", rawURL, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	f.logger.DebugContext(ctx, "Fetched content", "url", rawURL, "paragraphs", len(paragraphs))
	return paragraphs, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, u *url.URL) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
		if retry.RetryableStatus(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, retry.Permanent(statusErr)
	}

	parser, err := f.parserFor(resp.Header.Get("Content-Type"), u)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	paragraphs, err := parser.Parse(ctx, io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("parse %s as %s: %w", u, parser.Name(), err))
	}
	return paragraphs, nil
}

// parserFor picks by Content-Type, then by the URL path extension. A missing
// or generic content type with no extension is treated as HTML.
func (f *Fetcher) parserFor(contentType string, u *url.URL) (Parser, error) {
	if contentType != "" {
		if p, err := f.registry.GetParserForMediaType(contentType); err == nil {
			return p, nil
		}
	}
	if ext := path.Ext(u.Path); ext != "" {
		if p, err := f.registry.GetParserForExtension(ext); err == nil {
			return p, nil
		}
	}
	if p, err := f.registry.GetParser("html"); err == nil && (contentType == "" || isGeneric(contentType)) {
		return p, nil
	}
	return nil, fmt.Errorf("%w: content type %q at %s", ErrNoParser, contentType, u)
}

func isGeneric(contentType string) bool {
	mt := mediaType(contentType)
	return mt == "application/octet-stream" || mt == "binary/octet-stream"
}
