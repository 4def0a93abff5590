package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/schema"
)

// ErrNoResponses is returned when the fake has nothing to answer with.
var ErrNoResponses = errors.New("no responses configured")

// LLM replays a fixed list of responses in a cycle and records every prompt
// it receives. It backs both unit tests and the offline mock mode.
type LLM struct {
	mu          sync.Mutex
	responses   []string
	index       int
	prompts     []string
	lastOptions llms.CallOptions
	callCount   int
	errAfter    int
	err         error
}

var _ llms.Model = (*LLM)(nil)

func NewFakeLLM(responses []string) *LLM {
	return &LLM{
		responses: responses,
		errAfter:  -1,
	}
}

// FailAfter makes every call after the first n successful ones return err.
func (f *LLM) FailAfter(n int, err error) *LLM {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errAfter = n
	f.err = err
	return f
}

// GenerateContent returns the next predefined response in the cycle.
func (f *LLM) GenerateContent(
	_ context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.errAfter >= 0 && f.callCount >= f.errAfter {
		f.callCount++
		return nil, f.err
	}

	if len(f.responses) == 0 {
		return nil, ErrNoResponses
	}

	f.prompts = append(f.prompts, schema.LastHumanText(messages))
	f.lastOptions = llms.ApplyCallOptions(options...)
	f.callCount++

	response := f.responses[f.index]
	f.index = (f.index + 1) % len(f.responses)

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: response},
		},
	}, nil
}

// Call is a simplified interface for generating responses from a string prompt.
func (f *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// Reset clears the response cursor and everything recorded so far.
func (f *LLM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.callCount = 0
	f.prompts = nil
	f.lastOptions = llms.CallOptions{}
}

// AddResponse appends a new response to the list.
func (f *LLM) AddResponse(response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response)
}

// LastPrompt returns the last prompt sent to the LLM.
func (f *LLM) LastPrompt() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return "", false
	}
	return f.prompts[len(f.prompts)-1], true
}

// Prompts returns every human prompt received, in call order.
func (f *LLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// LastCallOptions returns the options of the most recent successful call.
func (f *LLM) LastCallOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}

// GetCallCount returns the number of times the LLM was called.
func (f *LLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}
