package markdown_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/parsers/markdown"
	logger "github.com/sevigo/newscast/parsers/testing"
)

func TestParser(t *testing.T) {
	log, buf := logger.NewTestLogger(t)
	p := markdown.NewParser(log)

	t.Run("BasicInfo", func(t *testing.T) {
		assert.Equal(t, "markdown", p.Name())
		assert.Contains(t, p.Extensions(), ".md")
		assert.Contains(t, p.MediaTypes(), "text/markdown")
	})

	t.Run("FrontMatterAndBlocks", func(t *testing.T) {
		doc := `---
title: New Rules on Investment in China
author: Staff
---

# Outbound investment

The administration is preparing rules
that limit **investment** in [chip makers](https://example.com).

` + "```go" + `
fmt.Println("not narrated")
` + "```" + `

- Semiconductors
- Quantum computing

> Officials said the rules would be narrow.
`
		got, err := p.Parse(t.Context(), strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"New Rules on Investment in China",
			"Outbound investment",
			"The administration is preparing rules that limit investment in chip makers.",
			"Semiconductors",
			"Quantum computing",
			"Officials said the rules would be narrow.",
		}, got)
	})

	t.Run("InvalidFrontMatterIsIgnored", func(t *testing.T) {
		buf.Reset()
		doc := "---\ntitle: [unclosed\n---\nBody text.\n"
		got, err := p.Parse(t.Context(), strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, []string{"Body text."}, got)
		assert.Contains(t, buf.String(), "Ignoring invalid front matter")
	})

	t.Run("NoFrontMatter", func(t *testing.T) {
		got, err := p.Parse(t.Context(), strings.NewReader("Just one line.\r\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Just one line."}, got)
	})
}
