package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxDocumentSize bounds how much of a response body is buffered, since the
// PDF reader needs random access.
const MaxDocumentSize = 32 << 20

var (
	ErrNoText        = errors.New("pdf: no text extracted")
	ErrTooLarge      = errors.New("pdf: document exceeds size limit")
	paragraphBreak   = regexp.MustCompile(`\n[ \t]*\n+`)
	horizontalSpaces = regexp.MustCompile(`[ \t]+`)
	lineBreaks       = regexp.MustCompile(`\s*\n\s*`)
)

// Parser extracts plain text paragraphs from PDF documents, page by page.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("parser", "pdf")}
}

func (p *Parser) Name() string {
	return "pdf"
}

func (p *Parser) MediaTypes() []string {
	return []string{"application/pdf"}
}

func (p *Parser) Extensions() []string {
	return []string{".pdf"}
}

func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("pdf: read document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrTooLarge
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf: open document: %w", err)
	}

	numPages := reader.NumPage()
	p.logger.DebugContext(ctx, "PDF text extraction starting", "pages", numPages)

	var paragraphs []string
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			p.logger.WarnContext(ctx, "Skipping null page", "page", i)
			continue
		}

		paragraphs = append(paragraphs, SplitParagraphs(p.pageText(ctx, page, i))...)
	}

	if len(paragraphs) == 0 {
		return nil, ErrNoText
	}

	p.logger.DebugContext(ctx, "PDF text extraction finished", "paragraphs", len(paragraphs))
	return paragraphs, nil
}

// pageText prefers GetPlainText and falls back to joining the raw text runs.
func (p *Parser) pageText(ctx context.Context, page pdf.Page, pageNum int) string {
	if text, err := page.GetPlainText(nil); err == nil && strings.TrimSpace(text) != "" {
		return text
	}

	var b strings.Builder
	runs := page.Content().Text
	for i, run := range runs {
		b.WriteString(run.S)
		if i < len(runs)-1 && !strings.HasSuffix(run.S, " ") && !strings.HasSuffix(run.S, "\n") {
			b.WriteString(" ")
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		p.logger.DebugContext(ctx, "No text extracted from page", "page", pageNum)
	}
	return b.String()
}

// SplitParagraphs breaks page text on blank lines and joins the wrapped lines
// of each paragraph with single spaces.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "ﬁ", "fi")
	text = strings.ReplaceAll(text, "ﬂ", "fl")

	var out []string
	for _, block := range paragraphBreak.Split(text, -1) {
		block = lineBreaks.ReplaceAllString(block, " ")
		block = strings.TrimSpace(horizontalSpaces.ReplaceAllString(block, " "))
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
