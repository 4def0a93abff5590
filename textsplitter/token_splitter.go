package textsplitter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/newscast/llms"
)

// TokenSplitter turns text segments into chunks that fit a token budget.
// Oversized segments are bisected on sentence boundaries, then on words;
// the resulting fragments are merged greedily back into as few chunks as
// the budget allows. Order is preserved throughout.
type TokenSplitter struct {
	tokenizer llms.Tokenizer
	maxTokens int
	maxDepth  int
	logger    *slog.Logger
}

// NewTokenSplitter creates a splitter counting tokens with tok.
func NewTokenSplitter(tok llms.Tokenizer, opts ...Option) (*TokenSplitter, error) {
	o := options{
		maxTokens: DefaultMaxTokens,
		maxDepth:  DefaultMaxDepth,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if tok == nil {
		return nil, ErrTokenizerNotConfigured
	}
	if o.maxTokens <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, o.maxTokens)
	}

	return &TokenSplitter{
		tokenizer: tok,
		maxTokens: o.maxTokens,
		maxDepth:  o.maxDepth,
		logger:    o.logger.With("component", "token_splitter"),
	}, nil
}

// MaxTokens returns the chunk budget.
func (s *TokenSplitter) MaxTokens() int {
	return s.maxTokens
}

// CountTokens delegates to the configured tokenizer.
func (s *TokenSplitter) CountTokens(ctx context.Context, text string) (int, error) {
	n, err := s.tokenizer.CountTokens(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

// Chunk splits every segment that is over budget and merges the fragments
// into chunks joined by a single space. Fragments are trimmed and blank
// segments are dropped, so empty or whitespace-only input yields no chunks.
func (s *TokenSplitter) Chunk(ctx context.Context, segments []string) ([]string, error) {
	fragments := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts, err := s.SplitText(ctx, segment)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, parts...)
	}

	chunks, err := s.merge(ctx, fragments)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Chunked segments",
		"segments", len(segments), "fragments", len(fragments), "chunks", len(chunks))
	return chunks, nil
}

// SplitText bisects text until every piece fits the budget. When the split
// is on sentences the left half keeps its full stop, so joining the result
// with single spaces gives back the input.
func (s *TokenSplitter) SplitText(ctx context.Context, text string) ([]string, error) {
	return s.split(ctx, text, 0)
}

func (s *TokenSplitter) split(ctx context.Context, text string, depth int) ([]string, error) {
	n, err := s.CountTokens(ctx, text)
	if err != nil {
		return nil, err
	}
	if n <= s.maxTokens {
		return []string{text}, nil
	}

	if depth >= s.maxDepth {
		s.logger.WarnContext(ctx, "Bisection depth reached, keeping oversized fragment",
			"tokens", n, "max_tokens", s.maxTokens, "depth", depth)
		return []string{text}, nil
	}

	separator := sentenceSeparator
	units := strings.Split(text, separator)
	if len(units) == 1 {
		separator = wordSeparator
		units = strings.Split(text, separator)
	}
	if len(units) == 1 {
		s.logger.WarnContext(ctx, "Single word exceeds token budget, keeping it as its own chunk",
			"tokens", n, "max_tokens", s.maxTokens)
		return []string{text}, nil
	}

	mid := len(units) / 2
	left := strings.Join(units[:mid], separator)
	if separator == sentenceSeparator {
		left += "."
	}
	right := strings.Join(units[mid:], separator)

	first, err := s.split(ctx, left, depth+1)
	if err != nil {
		return nil, err
	}
	second, err := s.split(ctx, right, depth+1)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

// merge packs fragments greedily. The fit test counts the joined candidate
// rather than summing parts, since BPE counts are not additive.
func (s *TokenSplitter) merge(ctx context.Context, fragments []string) ([]string, error) {
	var chunks []string
	current := ""

	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if current == "" {
			current = fragment
			continue
		}

		candidate := current + chunkSeparator + fragment
		n, err := s.CountTokens(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if n <= s.maxTokens {
			current = candidate
			continue
		}

		chunks = append(chunks, current)
		current = fragment
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks, nil
}
