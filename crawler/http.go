package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sevigo/newscast/internal/retry"
)

const (
	DefaultUserAgent  = "newscast/1.0 (+https://github.com/sevigo/newscast)"
	DefaultTimeout    = 20 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = 500 * time.Millisecond
)

// StatusError is a non-2xx answer from a source API.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crawler: GET %s: status %d", e.URL, e.StatusCode)
}

type httpGetter struct {
	client     *http.Client
	userAgent  string
	attempts   int
	retryDelay time.Duration
}

// get performs a GET with retries and hands the 2xx body to read.
func (g httpGetter) get(ctx context.Context, url, accept string, read func(io.Reader) error) error {
	return retry.Do(ctx, g.attempts, g.retryDelay, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", g.userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if retry.RetryableStatus(resp.StatusCode) {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		if err := read(resp.Body); err != nil {
			return retry.Permanent(err)
		}
		return nil
	})
}

func (g httpGetter) getJSON(ctx context.Context, url string, v any) error {
	return g.get(ctx, url, "application/json", func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return fmt.Errorf("decode %s: %w", url, err)
		}
		return nil
	})
}
