package textsplitter_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/textsplitter"
	"github.com/sevigo/newscast/tokenizer"
)

// wordTokenizer counts whitespace separated words.
type wordTokenizer struct{}

func (wordTokenizer) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

type failingTokenizer struct{ err error }

func (f failingTokenizer) CountTokens(context.Context, string) (int, error) {
	return 0, f.err
}

func newSplitter(t *testing.T, maxTokens int, opts ...textsplitter.Option) *textsplitter.TokenSplitter {
	t.Helper()
	opts = append([]textsplitter.Option{textsplitter.WithMaxTokens(maxTokens)}, opts...)
	s, err := textsplitter.NewTokenSplitter(wordTokenizer{}, opts...)
	require.NoError(t, err)
	return s
}

func TestNewTokenSplitter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := textsplitter.NewTokenSplitter(wordTokenizer{})
		require.NoError(t, err)
		assert.Equal(t, textsplitter.DefaultMaxTokens, s.MaxTokens())
	})

	t.Run("nil tokenizer", func(t *testing.T) {
		_, err := textsplitter.NewTokenSplitter(nil)
		assert.ErrorIs(t, err, textsplitter.ErrTokenizerNotConfigured)
	})

	for _, n := range []int{0, -1} {
		t.Run(fmt.Sprintf("max tokens %d", n), func(t *testing.T) {
			_, err := textsplitter.NewTokenSplitter(wordTokenizer{}, textsplitter.WithMaxTokens(n))
			assert.ErrorIs(t, err, textsplitter.ErrInvalidChunkSize)
		})
	}
}

func TestTokenSplitter_Chunk(t *testing.T) {
	ctx := context.Background()

	t.Run("single word fits", func(t *testing.T) {
		chunks, err := newSplitter(t, 100).Chunk(ctx, []string{"word"})
		require.NoError(t, err)
		assert.Equal(t, []string{"word"}, chunks)
	})

	t.Run("blank segments are dropped", func(t *testing.T) {
		chunks, err := newSplitter(t, 10).Chunk(ctx, []string{" ", " kept ", ""})
		require.NoError(t, err)
		assert.Equal(t, []string{"kept"}, chunks)
	})

	t.Run("sentences are bisected in order", func(t *testing.T) {
		chunks, err := newSplitter(t, 2).Chunk(ctx, []string{"a. b. c. d."})
		require.NoError(t, err)
		assert.Equal(t, []string{"a. b.", "c. d."}, chunks)
	})

	t.Run("bisects down to one sentence per chunk", func(t *testing.T) {
		chunks, err := newSplitter(t, 1).Chunk(ctx, []string{"a. b. c. d."})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.", "b.", "c.", "d."}, chunks)
	})

	t.Run("odd count gives the first half the smaller share", func(t *testing.T) {
		parts, err := newSplitter(t, 4).SplitText(ctx, "one two three four five")
		require.NoError(t, err)
		assert.Equal(t, []string{"one two", "three four five"}, parts)
	})

	t.Run("short segments merge into one chunk", func(t *testing.T) {
		segments := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
		chunks, err := newSplitter(t, 100).Chunk(ctx, segments)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha beta gamma delta epsilon"}, chunks)
	})

	t.Run("empty input", func(t *testing.T) {
		chunks, err := newSplitter(t, 10).Chunk(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("blank segments produce no chunks", func(t *testing.T) {
		chunks, err := newSplitter(t, 10).Chunk(ctx, []string{"", "  ", "\n\t"})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("merge closes a chunk before it overflows", func(t *testing.T) {
		segments := []string{"one two", "three four", "five"}
		chunks, err := newSplitter(t, 3).Chunk(ctx, segments)
		require.NoError(t, err)
		assert.Equal(t, []string{"one two", "three four five"}, chunks)
	})
}

func TestTokenSplitter_IrreducibleWord(t *testing.T) {
	ctx := context.Background()
	s, err := textsplitter.NewTokenSplitter(
		tokenizer.Estimator{CharsPerToken: 1},
		textsplitter.WithMaxTokens(5),
	)
	require.NoError(t, err)

	long := "supercalifragilistic"
	chunks, err := s.Chunk(ctx, []string{"hi", long, "yo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", long, "yo"}, chunks, "oversized word is neither dropped nor merged")
}

func TestTokenSplitter_Properties(t *testing.T) {
	ctx := context.Background()

	var sentences []string
	for i := range 25 {
		sentences = append(sentences, fmt.Sprintf("Story line %d reports that markets moved %d points", i, i*3))
	}
	article := strings.Join(sentences, ". ") + "."
	lead := "Breaking news from the wire"

	for _, maxTokens := range []int{3, 7, 12, 40, 500} {
		t.Run(fmt.Sprintf("max %d", maxTokens), func(t *testing.T) {
			s := newSplitter(t, maxTokens)
			chunks, err := s.Chunk(ctx, []string{lead, article})
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			for _, c := range chunks {
				assert.NotEmpty(t, strings.TrimSpace(c))
				n, _ := wordTokenizer{}.CountTokens(ctx, c)
				assert.LessOrEqual(t, n, maxTokens, "chunk over budget: %q", c)
			}

			assert.Equal(t, lead+" "+article, strings.Join(chunks, " "), "text and order are preserved")
		})
	}
}

func TestTokenSplitter_SplitTextRoundTrip(t *testing.T) {
	ctx := context.Background()
	text := "First point. Second point. Third point is longer than the rest. Fourth."
	parts, err := newSplitter(t, 3).SplitText(ctx, text)
	require.NoError(t, err)
	assert.Greater(t, len(parts), 1)
	assert.Equal(t, text, strings.Join(parts, " "))
}

func TestTokenSplitter_MaxDepth(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("word ", 64)
	s := newSplitter(t, 1, textsplitter.WithMaxDepth(2))

	parts, err := s.SplitText(ctx, strings.TrimSpace(text))
	require.NoError(t, err)
	assert.Len(t, parts, 4, "two levels of bisection give four pieces")
}

func TestTokenSplitter_TokenizerError(t *testing.T) {
	boom := errors.New("vocabulary missing")
	s, err := textsplitter.NewTokenSplitter(failingTokenizer{err: boom})
	require.NoError(t, err)

	_, err = s.Chunk(context.Background(), []string{"anything"})
	assert.ErrorIs(t, err, boom)
}
