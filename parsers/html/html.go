package html

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MinParagraphLength drops bylines, captions and share buttons that survive
// the boilerplate removal.
const MinParagraphLength = 20

var (
	containerSelectors = []string{"article", "main", "[role=main]", "body"}
	boilerplate        = "script, style, noscript, nav, header, footer, aside, form, figure, iframe, svg"
	blockSelector      = "p, h2, h3, li"
	spaces             = regexp.MustCompile(`\s+`)
)

// Parser extracts the readable paragraphs of an article page.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("parser", "html")}
}

func (p *Parser) Name() string {
	return "html"
}

func (p *Parser) MediaTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (p *Parser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Parse finds the most specific article container and returns its block
// level text in document order.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("html: parse document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc.Find(boilerplate).Remove()

	container := doc.Selection
	for _, sel := range containerSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			container = found
			break
		}
	}

	var paragraphs []string
	container.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// A list item wrapping its own paragraphs is visited through them.
		if goquery.NodeName(s) == "li" && s.Find("p").Length() > 0 {
			return
		}
		text := collapse(s.Text())
		if utf8.RuneCountInString(text) < MinParagraphLength {
			return
		}
		paragraphs = append(paragraphs, text)
	})

	p.logger.DebugContext(ctx, "Extracted html paragraphs", "count", len(paragraphs))
	return paragraphs, nil
}

// Title returns the document title, preferring og:title over <title>.
func Title(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("html: parse document: %w", err)
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return collapse(og), nil
	}
	return collapse(doc.Find("title").First().Text()), nil
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
