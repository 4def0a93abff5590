package ollamaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"
)

// ErrIncompleteStream means the server closed the reply before its final
// done message, so the completion may be cut short.
var ErrIncompleteStream = errors.New("ollama: reply ended before done")

// Chat posts a chat request and folds the reply into one response whose
// message carries the whole completion and whose counters come from the
// final chunk. onChunk, when set, sees every partial message in order.
func (c *Client) Chat(ctx context.Context, req *api.ChatRequest, onChunk func(api.ChatResponse) error) (*api.ChatResponse, error) {
	var (
		content strings.Builder
		final   *api.ChatResponse
	)

	err := c.postStream(ctx, "/api/chat", req, func(raw json.RawMessage) error {
		var chunk api.ChatResponse
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return fmt.Errorf("decode chat chunk: %w", err)
		}
		content.WriteString(chunk.Message.Content)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
		if chunk.Done {
			final = &chunk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, ErrIncompleteStream
	}

	final.Message.Content = content.String()
	return final, nil
}

// postStream sends body as JSON and hands each object of the NDJSON reply
// to fn. Ollama reports failures after the headers as an {"error": ...}
// object, which ends the stream with a StatusError.
func (c *Client) postStream(ctx context.Context, path string, body any, fn func(json.RawMessage) error) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	requestURL := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		c.logger.ErrorContext(ctx, "Ollama request failed", "url", requestURL, "error", err)
		return err
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s reply: %w", path, err)
		}

		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, ErrorMessage: failure.Error}
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
}
