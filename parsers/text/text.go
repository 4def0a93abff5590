package text

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n+`)

// Parser splits plain text into blank-line separated paragraphs.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("parser", "text")}
}

func (p *Parser) Name() string {
	return "text"
}

func (p *Parser) MediaTypes() []string {
	return []string{"text/plain"}
}

func (p *Parser) Extensions() []string {
	return []string{".txt", ".text"}
}

// Parse returns NFC-normalised paragraphs with wrapped lines joined by a
// single space.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("text: read document: %w", err)
	}

	paragraphs := Paragraphs(string(data))
	p.logger.DebugContext(ctx, "Extracted text paragraphs", "count", len(paragraphs))
	return paragraphs, nil
}

func Paragraphs(s string) []string {
	s = norm.NFC.String(strings.ReplaceAll(s, "\r\n", "\n"))

	var out []string
	for _, block := range paragraphBreak.Split(s, -1) {
		block = strings.Join(strings.Fields(block), " ")
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

// DefaultSampleParagraphs are the 1-based paragraph ordinals Sample keeps
// from each story.
var DefaultSampleParagraphs = []int{2, 4}

const (
	storyHeader       = "# news"
	minSampleLineSize = 5
)

var ErrNoParagraphs = errors.New("text: no paragraph ordinals given")

// Sample condenses a digest of stories into a short text for title
// generation. Each story starts with a "# news N" line and is emitted as
// "\n story N" followed by the selected paragraphs. Lines shorter than five
// bytes, counting their newline, are not paragraphs.
func Sample(r io.Reader, paragraphs []int) (string, error) {
	if len(paragraphs) == 0 {
		return "", ErrNoParagraphs
	}

	var b strings.Builder
	br := bufio.NewReader(r)
	count := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" && len(line) >= minSampleLineSize {
			switch {
			case strings.HasPrefix(line, storyHeader):
				fields := strings.Fields(line)
				b.WriteString("\n story " + fields[len(fields)-1])
				count = 0
			default:
				count++
				if slices.Contains(paragraphs, count) {
					b.WriteString("\n " + line)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("text: read digest: %w", err)
		}
	}
	return b.String(), nil
}

// Digest renders stories in the "# news N" layout Sample reads. Each story's
// paragraphs are written one per line, numbering from 1.
func Digest(stories [][]string) string {
	var b strings.Builder
	for i, story := range stories {
		fmt.Fprintf(&b, "%s %d\n", storyHeader, i+1)
		for _, para := range story {
			para = strings.Join(strings.Fields(para), " ")
			if para != "" {
				b.WriteString(para + "\n")
			}
		}
	}
	return b.String()
}
