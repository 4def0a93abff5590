package html_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/parsers/html"
	logger "github.com/sevigo/newscast/parsers/testing"
)

const articlePage = `<!doctype html>
<html>
<head>
  <title>Amazon Pausing Construction</title>
  <meta property="og:title" content="Amazon Pausing Construction of HQ2">
  <script>var tracking = "ignore me please, this is a long script";</script>
</head>
<body>
  <header><p>Subscribe to our newsletter for more stories like this one.</p></header>
  <nav><ul><li>Home page link with a long enough label</li></ul></nav>
  <article>
    <h1>Amazon Pausing Construction</h1>
    <p>Amazon is pausing construction of its second headquarters in Arlington.</p>
    <figure><p>Photo caption that should never reach the summarizer.</p></figure>
    <p>Short byline</p>
    <h2>What the company said about the project</h2>
    <ul>
      <li>The first phase of the campus opens in June as planned.</li>
      <li><p>The second phase has no new timeline yet, officials said.</p></li>
    </ul>
    <aside><p>Related: other stories you might like to read today.</p></aside>
  </article>
  <footer><p>Copyright notice with lots of words in the footer.</p></footer>
</body>
</html>`

func TestParser_Parse(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	p := html.NewParser(log)

	assert.Equal(t, "html", p.Name())
	assert.Contains(t, p.MediaTypes(), "text/html")

	got, err := p.Parse(t.Context(), strings.NewReader(articlePage))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Amazon is pausing construction of its second headquarters in Arlington.",
		"What the company said about the project",
		"The first phase of the campus opens in June as planned.",
		"The second phase has no new timeline yet, officials said.",
	}, got)
}

func TestParser_FallsBackToBody(t *testing.T) {
	p := html.NewParser(nil)

	page := `<html><body>
	<div><p>First paragraph of a page without an article element.</p>
	<p>Second   paragraph
	spread over lines with    odd spacing.</p></div>
	</body></html>`

	got, err := p.Parse(t.Context(), strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"First paragraph of a page without an article element.",
		"Second paragraph spread over lines with odd spacing.",
	}, got)
}

func TestParser_EmptyPage(t *testing.T) {
	p := html.NewParser(nil)
	got, err := p.Parse(t.Context(), strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTitle(t *testing.T) {
	title, err := html.Title(strings.NewReader(articlePage))
	require.NoError(t, err)
	assert.Equal(t, "Amazon Pausing Construction of HQ2", title)

	title, err = html.Title(strings.NewReader("<html><head><title> Plain  title </title></head></html>"))
	require.NoError(t, err)
	assert.Equal(t, "Plain title", title)
}
