package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/chains"
	"github.com/sevigo/newscast/schema"
)

var envKeys = []string{
	"NEWSCAST_SOURCE", "NEWSCAST_FEED_URL", "NEWSCAST_FEED_NAME", "NEWSCAST_SOURCE_DIR",
	"NEWSCAST_LLM_PROVIDER", "NEWSCAST_LLM_MODEL", "NEWSCAST_MOCK",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY", "OLLAMA_URL",
	"NEWSCAST_TOKENIZER", "NEWSCAST_MAX_STORIES", "NEWSCAST_MAX_SUMMARIES",
	"NEWSCAST_OUTPUT_DIR", "NEWSCAST_GENERATE_TITLE", "NEWSCAST_TTS",
	"NEWSCAST_PUBLISH", "CASTOS_API_TOKEN", "NEWSCAST_LOG_LEVEL",
}

// isolate runs the test in an empty directory with the configuration
// environment cleared and the offline tokenizer selected.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("NEWSCAST_TOKENIZER", "estimate")
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "newscast", cmd.Use)
	assert.True(t, cmd.SilenceUsage)

	for _, name := range []string{"config", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "--%s", name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"run", "summarize", "chunk", "title", "version"}, names)
}

func TestVersionCmd(t *testing.T) {
	original := versionInfo
	t.Cleanup(func() { versionInfo = original })
	SetVersion("1.2.3", "abc123", "2026-01-31")

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "newscast 1.2.3")
	assert.Contains(t, out, "Commit: abc123")
	assert.Contains(t, out, "Built:  2026-01-31")
}

func TestChunkCmd(t *testing.T) {
	isolate(t)

	input := "First paragraph has a few sentences. It keeps going for a while.\n\n" +
		"Second paragraph is here too. It also goes on."
	out, err := execute(t, input, "chunk", "--max-tokens", "8")
	require.NoError(t, err)

	assert.Contains(t, out, "--- chunk 1/")
	assert.Contains(t, out, "budget 8 tokens")
	assert.NotContains(t, out, "(0 tokens)")
}

func TestSummarizeCmd(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "article.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("News of the day continues. ", 50)), 0o644))

	out, err := execute(t, "", "summarize", "--mock", "--max-tokens", "40", path)
	require.NoError(t, err)
	assert.Equal(t, chains.MockSummary+"\n", out)

	t.Run("requires credentials without mock", func(t *testing.T) {
		_, err := execute(t, "some text", "summarize")
		assert.Error(t, err)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := execute(t, "  \n", "summarize", "--mock")
		assert.Error(t, err)
	})
}

func TestTitleCmd(t *testing.T) {
	isolate(t)

	digest := "# news 1\nA first paragraph.\nSecond paragraph of the first story.\n" +
		"# news 2\nOpening line here.\nThe markets rallied on strong results.\n"
	out, err := execute(t, digest, "title", "--mock")
	require.NoError(t, err)
	assert.Equal(t, chains.MockSummary+"\n", out)

	_, err = execute(t, "no headers at all\n", "title", "--mock")
	assert.Error(t, err)
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	isolate(t)
	_, err := execute(t, "text", "--log-level", "loud", "summarize", "--mock")
	assert.Error(t, err)
}

func TestRunCmd_MockFeed(t *testing.T) {
	dir := isolate(t)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test News</title>
<item><title>First story</title><link>%[1]s/a/1</link><guid>a1</guid></item>
<item><title>Second story</title><link>%[1]s/a/2?utm_source=rss</link><guid>a2</guid></item>
</channel></rss>`, srv.URL)
	})
	mux.HandleFunc("/a/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body><nav>Home | About</nav><article>
<p>This is the opening paragraph of article %[1]s.</p>
<p>And here is a second paragraph with more detail for %[1]s.</p>
</article></body></html>`, r.URL.Path)
	})

	t.Setenv("NEWSCAST_SOURCE", "feed")
	t.Setenv("NEWSCAST_FEED_URL", srv.URL+"/feed")
	t.Setenv("NEWSCAST_LOG_LEVEL", "error")

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "", "run", "--mock", "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 stories summarized, 0 skipped")

	data, err := os.ReadFile(filepath.Join(outDir, "stories.json"))
	require.NoError(t, err)
	var stories []schema.Article
	require.NoError(t, json.Unmarshal(data, &stories))

	require.Len(t, stories, 2)
	assert.Equal(t, "Test News", stories[0].SourceName)
	assert.Equal(t, "a1", stories[0].SourceID)
	assert.Equal(t, srv.URL+"/a/2", stories[1].URL)
	assert.Equal(t, chains.MockSummary, stories[1].Summary)
	assert.Len(t, stories[0].TextList, 2)
}

func TestSummarizeCmd_Markdown(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "post.md")
	require.NoError(t, os.WriteFile(path, []byte("# Heading\n\nBody text of the post.\n"), 0o644))

	out, err := execute(t, "", "chunk", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Heading Body text of the post.")
	assert.Contains(t, out, "1 chunks")

	_, err = execute(t, "", "summarize", "--mock", filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunCmd_DirSource(t *testing.T) {
	dir := isolate(t)

	articles := filepath.Join(dir, "articles")
	require.NoError(t, os.MkdirAll(articles, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(articles, "one.txt"), []byte("The first saved story."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(articles, "two.md"), []byte("The second saved story."), 0o644))

	t.Setenv("NEWSCAST_SOURCE", "dir")
	t.Setenv("NEWSCAST_SOURCE_DIR", articles)
	t.Setenv("NEWSCAST_LOG_LEVEL", "error")

	out, err := execute(t, "", "run", "--mock", "--output-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 stories summarized")
	assert.FileExists(t, filepath.Join(dir, "stories.json"))
}
