package composer_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/composer"
	"github.com/sevigo/newscast/schema"
)

type recordingSynth struct {
	texts []string
}

func (r *recordingSynth) Synthesize(_ context.Context, text string, w io.Writer) error {
	r.texts = append(r.texts, text)
	_, err := io.WriteString(w, "<"+text+">")
	return err
}

func writeAssets(t *testing.T, dir string, names ...string) {
	t.Helper()
	feedDir := filepath.Join(dir, "hackernews")
	require.NoError(t, os.MkdirAll(feedDir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(feedDir, name), []byte("{"+name+"}"), 0o644))
	}
}

var day = time.Date(2024, time.January, 2, 7, 0, 0, 0, time.UTC)

func stories() []schema.Article {
	return []schema.Article{
		{SourceID: "101", Title: "First title", Summary: "First summary.", URL: "https://a.example/1"},
		{SourceID: "https://b.example/2?x=1", SourceRank: 1, Title: "Second [beta] title", Summary: "Second summary."},
	}
}

func TestCompose(t *testing.T) {
	assets, work := t.TempDir(), t.TempDir()
	writeAssets(t, assets, "open.mp3", "filler_1.mp3", "filler_last.mp3", "close.mp3")

	synth := &recordingSynth{}
	c, err := composer.New("hackernews", synth, composer.WithAssetsDir(assets), composer.WithWorkDir(work))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, c.Compose(t.Context(), day, stories(), &out))

	want := "{open.mp3}<Today is Tuesday, January 02>" +
		"{filler_1.mp3}<First title><First summary.>" +
		"{filler_last.mp3}<Second [beta] title><Second summary.>" +
		"{close.mp3}"
	assert.Equal(t, want, out.String())

	dayDir := filepath.Join(work, "hackernews", "2024-01-02")
	assert.FileExists(t, filepath.Join(dayDir, "date_plug.mp3"))
	assert.FileExists(t, filepath.Join(dayDir, "101_title.mp3"))
	assert.FileExists(t, filepath.Join(dayDir, "101.mp3"))

	t.Run("cached clips are reused", func(t *testing.T) {
		calls := len(synth.texts)
		var again bytes.Buffer
		require.NoError(t, c.Compose(t.Context(), day, stories(), &again))
		assert.Equal(t, calls, len(synth.texts))
		assert.Equal(t, want, again.String())
	})
}

func TestCompose_Errors(t *testing.T) {
	assets, work := t.TempDir(), t.TempDir()
	writeAssets(t, assets, "open.mp3", "close.mp3")

	c, err := composer.New("hackernews", &recordingSynth{}, composer.WithAssetsDir(assets), composer.WithWorkDir(work))
	require.NoError(t, err)

	assert.ErrorIs(t, c.Compose(t.Context(), day, nil, io.Discard), composer.ErrNoStories)
	assert.ErrorIs(t, c.Compose(t.Context(), day, stories()[:1], io.Discard), composer.ErrMissingAsset)

	path := filepath.Join(work, "out", "episode.mp3")
	require.Error(t, c.ComposeFile(t.Context(), day, stories()[:1], path))
	assert.NoFileExists(t, path)

	_, err = composer.New("hackernews", nil)
	assert.ErrorIs(t, err, composer.ErrNoSynthesizer)
}

func TestClipID(t *testing.T) {
	assert.Equal(t, "101", composer.ClipID(schema.Article{SourceID: "101"}))
	assert.Equal(t, "https_b_example_2_x_1", composer.ClipID(schema.Article{SourceID: "https://b.example/2?x=1"}))
	assert.Equal(t, "rank_3", composer.ClipID(schema.Article{SourceID: "://", SourceRank: 3}))
}

func TestShowNotes(t *testing.T) {
	c, err := composer.New("hacker_news", &recordingSynth{})
	require.NoError(t, err)

	notes := c.ShowNotes(day, stories())
	assert.Equal(t, "# Hacker News for Tuesday, January 02\n\n"+
		"1. [First title](https://a.example/1)\n\n   First summary.\n\n"+
		"2. Second [beta] title\n\n   Second summary.\n\n", notes)

	html, err := composer.RenderHTML(notes)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Hacker News for Tuesday, January 02</h1>")
	assert.Contains(t, html, `<a href="https://a.example/1">First title</a>`)
}

func TestFeedTitle(t *testing.T) {
	assert.Equal(t, "Hackernews", composer.FeedTitle("hackernews"))
	assert.Equal(t, "World News Daily", composer.FeedTitle("world-news_daily"))
}
