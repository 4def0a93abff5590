package chains

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/prompts"
)

var ErrEmptyTitle = errors.New("chains: model returned an empty title")

// Title asks the model for one catchy episode headline.
type Title struct {
	LLM llms.Model

	prompt    prompts.PromptTemplate
	maxTokens int
	logger    *slog.Logger
}

func NewTitle(llm llms.Model, opts ...Option) (*Title, error) {
	if llm == nil {
		return nil, ErrNilDependency
	}
	o := chainOptions{
		prompt:            prompts.DefaultTitlePrompt,
		maxResponseTokens: defaultTitleTokens,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.prompt.Requires("count", "stories"); err != nil {
		return nil, err
	}
	return &Title{
		LLM:       llm,
		prompt:    o.prompt,
		maxTokens: o.maxResponseTokens,
		logger:    o.logger.With("component", "title_chain"),
	}, nil
}

// Call numbers the stories and asks for a title covering them.
func (c *Title) Call(ctx context.Context, stories []string) (string, error) {
	if len(stories) == 0 {
		return "", ErrNoSegments
	}
	var b strings.Builder
	for i, s := range stories {
		fmt.Fprintf(&b, "story %d\n%s\n\n", i+1, strings.TrimSpace(s))
	}
	return c.CallDigest(ctx, strings.TrimSpace(b.String()), len(stories))
}

// CallDigest titles an already assembled digest of count stories.
func (c *Title) CallDigest(ctx context.Context, digest string, count int) (string, error) {
	prompt := c.prompt.Format(map[string]string{
		"count":   strconv.Itoa(count),
		"stories": digest,
	})

	raw, err := c.LLM.Call(ctx, prompt, llms.WithMaxTokens(c.maxTokens))
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}

	title := cleanTitle(raw)
	if title == "" {
		return "", ErrEmptyTitle
	}
	c.logger.DebugContext(ctx, "Title generated", "title", title)
	return title, nil
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = line
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "Title:"))
	return strings.Trim(s, "\"'“”* ")
}
