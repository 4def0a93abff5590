package llms

import (
	"context"
	"errors"

	"github.com/sevigo/newscast/schema"
)

// ErrEmptyResponse is returned when a provider answers without any choices.
var ErrEmptyResponse = errors.New("llms: empty response from model")

// Model is a chat-capable language model used to summarize text.
type Model interface {
	GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...CallOption) (*ContentResponse, error)
	Call(ctx context.Context, prompt string, options ...CallOption) (string, error)
}

// Tokenizer counts tokens the way the target model does.
// Implementations must be deterministic and safe for concurrent use.
type Tokenizer interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

func GenerateFromSinglePrompt(ctx context.Context, llm Model, prompt string, options ...CallOption) (string, error) {
	msg := schema.NewHumanMessage(prompt)

	resp, err := llm.GenerateContent(ctx, []schema.MessageContent{msg}, options...)
	if err != nil {
		return "", err
	}

	return FirstChoice(resp)
}

// FirstChoice returns the content of the first choice in resp.
func FirstChoice(resp *ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) < 1 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
