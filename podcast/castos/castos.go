// Package castos is a client for the Castos podcast hosting API.
package castos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sevigo/newscast/internal/retry"
)

const (
	DefaultBaseURL = "https://app.castos.com/api/v2"
	DefaultTimeout = 10 * time.Minute
)

var ErrNoToken = errors.New("castos: API token is required")

// APIError is a non-2xx response from Castos.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("castos: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the Castos API. The token is sent as a query parameter.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry sets attempts and base backoff for read and update calls.
// Uploads are never retried.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		attempts:   3,
		retryDelay: time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "castos")
	return c, nil
}

// GetEpisode returns the decoded episode document.
func (c *Client) GetEpisode(ctx context.Context, podcastID, episodeID int) (map[string]any, error) {
	path := fmt.Sprintf("/podcasts/%d/episodes/%d", podcastID, episodeID)

	var out map[string]any
	err := retry.Do(ctx, c.attempts, c.retryDelay, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		return c.do(req, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEpisode uploads a new episode. The audio file is streamed from disk.
func (c *Client) CreateEpisode(ctx context.Context, podcastID int, title, showNotes, audioPath string) (map[string]any, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("castos: open audio: %w", err)
	}
	defer f.Close()

	body, contentType := streamMultipart(map[string]string{
		"post_title":   title,
		"post_content": showNotes,
	}, &filePart{field: "episode_file", name: filepath.Base(audioPath), contentType: "audio/mpeg", r: f})

	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/podcasts/%d/episodes", podcastID), body)
	if err != nil {
		body.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.InfoContext(ctx, "Uploading episode", "podcast_id", podcastID, "title", title, "file", audioPath)
	var out map[string]any
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEpisode replaces an episode's title and notes.
func (c *Client) UpdateEpisode(ctx context.Context, podcastID, episodeID int, title, showNotes string) error {
	path := fmt.Sprintf("/podcasts/%d/episodes/%d", podcastID, episodeID)
	return retry.Do(ctx, c.attempts, c.retryDelay, func(ctx context.Context) error {
		body, contentType := streamMultipart(map[string]string{
			"post_title":   title,
			"post_content": showNotes,
		}, nil)
		req, err := c.newRequest(ctx, http.MethodPost, path, body)
		if err != nil {
			body.Close()
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)
		return c.do(req, nil)
	})
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("castos: build url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("castos: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a JSON body into out when out is non-nil.
// Failures that are not worth repeating are marked permanent for retry.Do.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("castos: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		if retry.RetryableStatus(resp.StatusCode) {
			return apiErr
		}
		return retry.Permanent(apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return retry.Permanent(fmt.Errorf("castos: decode response: %w", err))
	}
	return nil
}

type filePart struct {
	field       string
	name        string
	contentType string
	r           io.Reader
}

// streamMultipart encodes fields and an optional file through a pipe so the
// audio is never held in memory.
func streamMultipart(fields map[string]string, file *filePart) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, fields, file)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, file *filePart) error {
	for _, key := range []string{"post_title", "post_content"} {
		if v, ok := fields[key]; ok {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	if file == nil {
		return nil
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.name))
	h.Set("Content-Type", file.contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file.r)
	return err
}
