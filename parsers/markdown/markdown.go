package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

const frontMatterSeparator = "---"

// Parser extracts headings and paragraphs from Markdown. Code blocks, HTML
// blocks and thematic breaks are not narrated and are skipped.
type Parser struct {
	markdown goldmark.Markdown
	logger   *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger.With("parser", "markdown"),
	}
}

func (p *Parser) Name() string {
	return "markdown"
}

func (p *Parser) MediaTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (p *Parser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Parse returns the document paragraphs in order. A title in the YAML front
// matter becomes the first paragraph.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("markdown: read document: %w", err)
	}

	front, body := splitFrontMatter(data)

	var paragraphs []string
	if title := frontMatterTitle(ctx, p.logger, front); title != "" {
		paragraphs = append(paragraphs, title)
	}

	doc := p.markdown.Parser().Parse(text.NewReader(body))
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock:
			if s := inlineText(n, body); s != "" {
				paragraphs = append(paragraphs, s)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("markdown: walk document: %w", err)
	}

	p.logger.DebugContext(ctx, "Extracted markdown paragraphs", "count", len(paragraphs))
	return paragraphs, nil
}

// inlineText concatenates the text leaves under n. Soft line breaks become
// spaces.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func splitFrontMatter(data []byte) (front, body []byte) {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte(frontMatterSeparator+"\n")) {
		return nil, normalized
	}

	rest := normalized[len(frontMatterSeparator)+1:]
	end := bytes.Index(rest, []byte("\n"+frontMatterSeparator))
	if end < 0 {
		return nil, normalized
	}

	after := rest[end+len(frontMatterSeparator)+1:]
	if i := bytes.IndexByte(after, '\n'); i >= 0 {
		after = after[i+1:]
	} else {
		after = nil
	}
	return rest[:end], after
}

func frontMatterTitle(ctx context.Context, logger *slog.Logger, front []byte) string {
	if len(front) == 0 {
		return ""
	}
	var props map[string]any
	if err := yaml.Unmarshal(front, &props); err != nil {
		logger.WarnContext(ctx, "Ignoring invalid front matter", "error", err)
		return ""
	}
	title, _ := props["title"].(string)
	return strings.TrimSpace(title)
}
