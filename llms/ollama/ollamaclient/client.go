package ollamaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaURL = "http://127.0.0.1:11434"
	DefaultTimeout   = 10 * time.Minute
)

// Client talks to the Ollama HTTP API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client. A nil baseURL means DefaultOllamaURL; a nil
// httpClient gets a pooled transport with DefaultTimeout.
func NewClient(baseURL *url.URL, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if baseURL == nil {
		var err error
		baseURL, err = url.Parse(DefaultOllamaURL)
		if err != nil {
			return nil, fmt.Errorf("parse default ollama url: %w", err)
		}
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:      100,
				IdleConnTimeout:   90 * time.Second,
				MaxConnsPerHost:   100,
				ForceAttemptHTTP2: true,
			},
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) Generate(ctx context.Context, req *GenerateRequest, callback func(GenerateResponse) error) error {
	return c.postStream(ctx, "/api/generate", req, func(data json.RawMessage) error {
		var resp GenerateResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to unmarshal generate response: %w", err)
		}
		return callback(resp)
	})
}

func (c *Client) Show(ctx context.Context, req *api.ShowRequest) (*api.ShowResponse, error) {
	var resp api.ShowResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/show", req, &resp); err != nil {
		return nil, fmt.Errorf("show model request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) Pull(ctx context.Context, req *PullRequest, callback func(api.ProgressResponse) error) error {
	return c.postStream(ctx, "/api/pull", req, func(data json.RawMessage) error {
		var resp api.ProgressResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to unmarshal pull response: %w", err)
		}
		return callback(resp)
	})
}

func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, path string, reqData, respData any) error {
	var body io.Reader
	if reqData != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(reqData); err != nil {
			return fmt.Errorf("failed to encode request data: %w", err)
		}
		body = buf
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer response.Body.Close()

	if err := checkError(response); err != nil {
		return err
	}

	if respData != nil {
		if err := json.NewDecoder(response.Body).Decode(respData); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// StatusError is a non-2xx answer from the Ollama API.
type StatusError struct {
	StatusCode   int
	ErrorMessage string
}

func (e *StatusError) Error() string {
	if e.ErrorMessage == "" {
		return fmt.Sprintf("ollama API error (status %d): %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("ollama API error (status %d): %s", e.StatusCode, e.ErrorMessage)
}

func checkError(response *http.Response) error {
	if response.StatusCode < http.StatusBadRequest {
		return nil
	}

	var apiError struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(response.Body).Decode(&apiError)
	return &StatusError{StatusCode: response.StatusCode, ErrorMessage: apiError.Error}
}
