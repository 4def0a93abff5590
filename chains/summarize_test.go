package chains_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/chains"
	"github.com/sevigo/newscast/llms/fake"
	"github.com/sevigo/newscast/prompts"
	"github.com/sevigo/newscast/textsplitter"
)

type wordTokenizer struct{}

func (wordTokenizer) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func newChain(t *testing.T, llm *fake.LLM, maxTokens int, opts ...chains.Option) *chains.Summarize {
	t.Helper()
	splitter, err := textsplitter.NewTokenSplitter(wordTokenizer{}, textsplitter.WithMaxTokens(maxTokens))
	require.NoError(t, err)
	chain, err := chains.NewSummarize(llm, splitter, opts...)
	require.NoError(t, err)
	return chain
}

// threeChunks stays three chunks under any budget from 3 to 5 words.
var threeChunks = []string{"a b c", "d e f", "g h i"}

func TestSummarize_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("single word makes one call", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"S"})
		got, err := newChain(t, llm, 100).Call(ctx, []string{"word"})

		require.NoError(t, err)
		assert.Equal(t, "S", got)
		assert.Equal(t, 1, llm.GetCallCount())

		prompt, _ := llm.LastPrompt()
		assert.Equal(t, "Summarize this:\nword", prompt)
		assert.Equal(t, chains.DefaultMaxResponseTokens, llm.LastCallOptions().MaxTokens)
	})

	t.Run("input within budget never recurses", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"short"})
		segments := []string{"one two", "three four", "five six seven"}
		_, err := newChain(t, llm, 50).Call(ctx, segments)

		require.NoError(t, err)
		assert.Equal(t, 1, llm.GetCallCount())
		prompt, _ := llm.LastPrompt()
		assert.Equal(t, "Summarize this:\none two three four five six seven", prompt)
	})

	t.Run("single summary is returned unchanged", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"  padded summary \n"})
		got, err := newChain(t, llm, 50).Call(ctx, []string{"text"})
		require.NoError(t, err)
		assert.Equal(t, "  padded summary \n", got)
	})

	t.Run("three summaries merge into one more call", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"X"})
		got, err := newChain(t, llm, 3).Call(ctx, threeChunks)

		require.NoError(t, err)
		assert.Equal(t, "X", got)
		assert.Equal(t, 4, llm.GetCallCount())
		assert.Equal(t, []string{
			"Summarize this:\na b c",
			"Summarize this:\nd e f",
			"Summarize this:\ng h i",
			"Summarize this:\nX X X",
		}, llm.Prompts(), "chunks are summarized in order")
	})

	t.Run("mock model", func(t *testing.T) {
		// Any two stories exceed 15 words, while three mock summaries
		// of 5 words each fit in one chunk.
		stories := []string{
			"the central bank held interest rates steady again",
			"a storm moved north along the coast overnight",
			"the home team won the final in extra time",
		}
		llm := fake.NewFakeLLM([]string{chains.MockSummary})
		got, err := newChain(t, llm, 15).Call(ctx, stories)

		require.NoError(t, err)
		assert.Equal(t, chains.MockSummary, got)
		assert.Equal(t, 4, llm.GetCallCount())
		assert.Equal(t, "Summarize this:\n"+strings.Repeat(chains.MockSummary+" ", 2)+chains.MockSummary,
			llm.Prompts()[3])
	})

	t.Run("custom prompts", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"ok"})
		chain := newChain(t, llm, 50,
			chains.WithSystemPrompt("system"),
			chains.WithPrompt(prompts.NewPromptTemplate("TL;DR {{.text}}")),
			chains.WithMaxResponseTokens(64),
		)
		_, err := chain.Call(ctx, []string{"body"})
		require.NoError(t, err)

		prompt, _ := llm.LastPrompt()
		assert.Equal(t, "TL;DR body", prompt)
		assert.Equal(t, 64, llm.LastCallOptions().MaxTokens)
	})
}

func TestSummarize_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("nil dependencies", func(t *testing.T) {
		_, err := chains.NewSummarize(nil, nil)
		assert.ErrorIs(t, err, chains.ErrNilDependency)
	})

	t.Run("prompt without text", func(t *testing.T) {
		splitter, err := textsplitter.NewTokenSplitter(wordTokenizer{}, textsplitter.WithMaxTokens(10))
		require.NoError(t, err)
		_, err = chains.NewSummarize(fake.NewFakeLLM([]string{"unused"}), splitter,
			chains.WithPrompt(prompts.NewPromptTemplate("Summarize: {{.body}}")))
		assert.ErrorIs(t, err, prompts.ErrMissingVariable)
	})

	t.Run("empty input", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"unused"})
		_, err := newChain(t, llm, 10).Call(ctx, nil)
		assert.ErrorIs(t, err, chains.ErrNoSegments)
		assert.Zero(t, llm.GetCallCount())
	})

	t.Run("blank input", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"unused"})
		_, err := newChain(t, llm, 10).Call(ctx, []string{" ", ""})
		assert.ErrorIs(t, err, chains.ErrEmptyContent)
		assert.Zero(t, llm.GetCallCount())
	})

	t.Run("canceled context", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"unused"})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newChain(t, llm, 10).Call(cctx, []string{"text"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, llm.GetCallCount())
	})
}

func TestSummarize_ErrorPropagation(t *testing.T) {
	boom := errors.New("upstream timeout")
	llm := fake.NewFakeLLM([]string{"ok"}).FailAfter(1, boom)

	_, err := newChain(t, llm, 3).Call(context.Background(), threeChunks)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "summarize chunk 2/3 at level 0")
	assert.Equal(t, 2, llm.GetCallCount(), "no calls after the failure")
}

func TestSummarize_Termination(t *testing.T) {
	ctx := context.Background()

	t.Run("summaries too long to merge", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"w w w w"})
		_, err := newChain(t, llm, 5).Call(ctx, threeChunks)

		assert.ErrorIs(t, err, chains.ErrNoConvergence)
		assert.Equal(t, 3, llm.GetCallCount(), "stops before calling the model again")
	})

	t.Run("depth limit", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"X"})
		_, err := newChain(t, llm, 3, chains.WithMaxDepth(1)).Call(ctx, threeChunks)

		assert.ErrorIs(t, err, chains.ErrMaxDepthExceeded)
		assert.Equal(t, 3, llm.GetCallCount())
	})
}

func TestSummarize_EmptySummaries(t *testing.T) {
	ctx := context.Background()

	t.Run("single empty summary is a valid result", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{""})
		got, err := newChain(t, llm, 10).Call(ctx, []string{"text"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("all empty at a level", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{""})
		got, err := newChain(t, llm, 3).Call(ctx, threeChunks)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 3, llm.GetCallCount())
	})

	t.Run("empty summaries add no text to the next level", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{"A", "", "B", "final"})
		got, err := newChain(t, llm, 3).Call(ctx, threeChunks)
		require.NoError(t, err)
		assert.Equal(t, "final", got)

		prompt, _ := llm.LastPrompt()
		assert.Equal(t, "Summarize this:\nA B", prompt)
	})
}
