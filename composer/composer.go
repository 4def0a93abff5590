// Package composer assembles the episode audio and show notes.
package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sevigo/newscast/schema"
	"github.com/sevigo/newscast/tts"
)

const (
	// DateLayout is how dates are spoken and used in episode titles.
	DateLayout = "Monday, January 02"
	dirLayout  = "2006-01-02"
)

var (
	ErrNoStories     = errors.New("composer: no stories to compose")
	ErrNoSynthesizer = errors.New("composer: synthesizer is required")
	ErrMissingAsset  = errors.New("composer: missing audio asset")

	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Composer builds an episode from pre-recorded assets and synthesized clips.
// Assets live in <assets>/<feed>; generated clips are cached per day in
// <work>/<feed>/<YYYY-MM-DD>.
type Composer struct {
	feed      string
	assetsDir string
	workDir   string
	synth     tts.Synthesizer
	logger    *slog.Logger
}

type Option func(*Composer)

func WithAssetsDir(dir string) Option {
	return func(c *Composer) {
		if dir != "" {
			c.assetsDir = dir
		}
	}
}

func WithWorkDir(dir string) Option {
	return func(c *Composer) {
		if dir != "" {
			c.workDir = dir
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(feed string, synth tts.Synthesizer, opts ...Option) (*Composer, error) {
	if synth == nil {
		return nil, ErrNoSynthesizer
	}
	if feed == "" {
		return nil, errors.New("composer: feed name is required")
	}
	c := &Composer{
		feed:      feed,
		assetsDir: "assets",
		workDir:   "work",
		synth:     synth,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "composer", "feed", feed)
	return c, nil
}

// Compose writes the episode to out: the opening, a spoken date, then for
// each story a filler, its title and its summary, and finally the closing.
func (c *Composer) Compose(ctx context.Context, date time.Time, stories []schema.Article, out io.Writer) error {
	if len(stories) == 0 {
		return ErrNoStories
	}

	dayDir := filepath.Join(c.workDir, c.feed, date.Format(dirLayout))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return fmt.Errorf("composer: create work dir: %w", err)
	}

	datePlug := filepath.Join(dayDir, "date_plug.mp3")
	if err := c.clip(ctx, "Today is "+date.Format(DateLayout), datePlug); err != nil {
		return err
	}

	sequence := []string{c.asset("open.mp3"), datePlug}
	for i, story := range stories {
		filler := fmt.Sprintf("filler_%d.mp3", i+1)
		if i == len(stories)-1 {
			filler = "filler_last.mp3"
		}

		id := ClipID(story)
		titlePath := filepath.Join(dayDir, id+"_title.mp3")
		summaryPath := filepath.Join(dayDir, id+".mp3")
		if err := c.clip(ctx, story.Title, titlePath); err != nil {
			return err
		}
		if err := c.clip(ctx, story.Summary, summaryPath); err != nil {
			return err
		}
		sequence = append(sequence, c.asset(filler), titlePath, summaryPath)
	}
	sequence = append(sequence, c.asset("close.mp3"))

	for _, path := range sequence {
		if err := appendClip(out, path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingAsset, path)
			}
			return fmt.Errorf("composer: %w", err)
		}
	}

	c.logger.InfoContext(ctx, "Episode composed", "stories", len(stories), "clips", len(sequence))
	return nil
}

// ComposeFile composes into path, creating parent directories.
func (c *Composer) ComposeFile(ctx context.Context, date time.Time, stories []schema.Article, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("composer: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("composer: create %s: %w", path, err)
	}
	if err := c.Compose(ctx, date, stories, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// clip synthesizes text into path unless a non-empty clip is already cached.
func (c *Composer) clip(ctx context.Context, text, path string) error {
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		c.logger.DebugContext(ctx, "Reusing cached clip", "path", path)
		return nil
	}
	if err := tts.SynthesizeFile(ctx, c.synth, text, path); err != nil {
		return fmt.Errorf("composer: synthesize %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (c *Composer) asset(name string) string {
	return filepath.Join(c.assetsDir, c.feed, name)
}

// ClipID is a file-name safe identifier for a story's clips.
func ClipID(a schema.Article) string {
	id := strings.Trim(unsafeName.ReplaceAllString(a.SourceID, "_"), "_")
	if id == "" {
		id = fmt.Sprintf("rank_%d", a.SourceRank)
	}
	if len(id) > 64 {
		id = id[:64]
	}
	return id
}

// ShowNotes renders the episode notes as Markdown.
func (c *Composer) ShowNotes(date time.Time, stories []schema.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s for %s\n\n", FeedTitle(c.feed), date.Format(DateLayout))
	for i, s := range stories {
		if s.URL != "" {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, escapeLinkText(s.Title), s.URL)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s.Title)
		}
		if summary := strings.TrimSpace(s.Summary); summary != "" {
			fmt.Fprintf(&b, "\n   %s\n", strings.Join(strings.Fields(summary), " "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts Markdown notes to HTML for the hosting API.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("composer: render notes: %w", err)
	}
	return buf.String(), nil
}

// FeedTitle turns a feed key such as "hacker_news" into "Hacker News".
func FeedTitle(feed string) string {
	words := strings.FieldsFunc(feed, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
