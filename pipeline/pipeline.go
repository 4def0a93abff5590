// Package pipeline runs one episode end to end: crawl the day's stories,
// summarize them, persist the result, compose audio and publish it.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/newscast/composer"
	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/parsers/text"
	"github.com/sevigo/newscast/schema"
)

const (
	AudioFile = "output.mp3"
	NotesFile = "notes.md"
)

var (
	ErrNilDependency = errors.New("pipeline: source and summarizer are required")
	ErrNoPublishable = errors.New("pipeline: publishing requires a composed episode")
)

// ArticleSource returns up to limit articles with their text filled in.
type ArticleSource interface {
	Articles(ctx context.Context, limit int) ([]schema.Article, error)
}

// Summarizer condenses the ordered paragraphs of one article.
type Summarizer interface {
	Call(ctx context.Context, segments []string) (string, error)
}

// Titler produces an episode title from a sampled digest of count stories.
type Titler interface {
	CallDigest(ctx context.Context, digest string, count int) (string, error)
}

// EpisodeComposer renders the episode audio and its show notes.
type EpisodeComposer interface {
	ComposeFile(ctx context.Context, date time.Time, stories []schema.Article, path string) error
	ShowNotes(date time.Time, stories []schema.Article) string
}

// Publisher uploads a finished episode to the podcast host.
type Publisher interface {
	CreateEpisode(ctx context.Context, podcastID int, title, showNotes, audioPath string) (map[string]any, error)
}

// Result describes what one run produced. Paths are empty for the stages
// that did not run.
type Result struct {
	RunID       string
	Date        time.Time
	Stories     []schema.Article
	Skipped     int
	StoriesPath string
	AudioPath   string
	NotesPath   string
	Title       string
	Episode     map[string]any
}

// Pipeline wires the collaborators of a run. Composer, Publisher and Titler
// are optional.
type Pipeline struct {
	source     ArticleSource
	summarizer Summarizer
	composer   EpisodeComposer
	publisher  Publisher
	titler     Titler

	maxStories   int
	maxSummaries int
	location     *time.Location
	outputDir    string
	storiesFile  string
	podcastID    int
	now          func() time.Time
	logger       *slog.Logger
}

type Option func(*Pipeline)

func WithComposer(c EpisodeComposer) Option {
	return func(p *Pipeline) { p.composer = c }
}

func WithPublisher(pub Publisher, podcastID int) Option {
	return func(p *Pipeline) {
		p.publisher = pub
		if podcastID > 0 {
			p.podcastID = podcastID
		}
	}
}

// WithTitler replaces the date title of published episodes with a
// generated one.
func WithTitler(t Titler) Option {
	return func(p *Pipeline) { p.titler = t }
}

func WithLimits(maxStories, maxSummaries int) Option {
	return func(p *Pipeline) {
		if maxStories > 0 {
			p.maxStories = maxStories
		}
		if maxSummaries > 0 {
			p.maxSummaries = maxSummaries
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.location = loc
		}
	}
}

func WithOutputDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.outputDir = dir
		}
	}
}

func WithStoriesFile(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.storiesFile = name
		}
	}
}

// WithClock sets the time source used for the episode date.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(source ArticleSource, summarizer Summarizer, opts ...Option) (*Pipeline, error) {
	if source == nil || summarizer == nil {
		return nil, ErrNilDependency
	}
	p := &Pipeline{
		source:       source,
		summarizer:   summarizer,
		maxStories:   config.DefaultMaxStories,
		maxSummaries: config.DefaultMaxSummaries,
		location:     time.UTC,
		outputDir:    ".",
		storiesFile:  config.DefaultStoriesFile,
		podcastID:    config.DefaultPodcastID,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Run executes one episode. The summarized stories are written to the
// stories file even when a later stage, or summarization itself, fails.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:       uuid.NewString(),
		StoriesPath: filepath.Join(p.outputDir, p.storiesFile),
	}
	logger := p.logger.With("run_id", res.RunID)
	start := time.Now()
	logger.InfoContext(ctx, "Starting run", "max_stories", p.maxStories, "max_summaries", p.maxSummaries)

	if err := p.collect(ctx, logger, res); err != nil {
		return res, err
	}

	res.Date = p.now().In(p.location)
	if p.composer == nil {
		logger.InfoContext(ctx, "Run completed without audio", "stories", len(res.Stories), "duration", time.Since(start))
		return res, nil
	}
	if len(res.Stories) == 0 {
		return res, fmt.Errorf("compose episode: %w", composer.ErrNoStories)
	}

	if err := p.compose(ctx, logger, res); err != nil {
		return res, err
	}
	if p.publisher != nil {
		if err := p.publish(ctx, logger, res); err != nil {
			return res, err
		}
	}

	logger.InfoContext(ctx, "Run completed", "stories", len(res.Stories), "skipped", res.Skipped, "duration", time.Since(start))
	return res, nil
}

// collect crawls and summarizes, then writes whatever was summarized to
// the stories file regardless of the outcome.
func (p *Pipeline) collect(ctx context.Context, logger *slog.Logger, res *Result) (err error) {
	defer func() {
		if werr := writeStories(res.StoriesPath, res.Stories); werr != nil {
			logger.ErrorContext(ctx, "Failed to write stories file", "path", res.StoriesPath, "error", werr)
			err = errors.Join(err, werr)
			return
		}
		logger.InfoContext(ctx, "Stories written", "path", res.StoriesPath, "count", len(res.Stories))
	}()

	articles, err := p.source.Articles(ctx, p.maxStories)
	if err != nil {
		return fmt.Errorf("crawl stories: %w", err)
	}
	logger.InfoContext(ctx, "Crawled stories", "count", len(articles))
	return p.summarize(ctx, logger, articles, res)
}

// summarize fills res.Stories in crawl order until maxSummaries stories have
// a summary. Only a cancelled context stops it early with an error.
func (p *Pipeline) summarize(ctx context.Context, logger *slog.Logger, articles []schema.Article, res *Result) error {
	for _, a := range articles {
		if len(res.Stories) >= p.maxSummaries {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		summary, err := p.summarizer.Call(ctx, a.TextList)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("summarize story %s: %w", a.SourceID, err)
			}
			logger.WarnContext(ctx, "Failed to summarize story, skipping", "source_id", a.SourceID, "error", err)
			res.Skipped++
			continue
		}
		if strings.TrimSpace(summary) == "" {
			logger.WarnContext(ctx, "Failed to generate summary for story", "source_id", a.SourceID)
			res.Skipped++
			continue
		}

		a.Summary = summary
		res.Stories = append(res.Stories, a)
		logger.DebugContext(ctx, "Story summarized", "source_id", a.SourceID, "summary_length", len(summary))
	}
	return nil
}

func (p *Pipeline) compose(ctx context.Context, logger *slog.Logger, res *Result) error {
	audio := filepath.Join(p.outputDir, AudioFile)
	if err := p.composer.ComposeFile(ctx, res.Date, res.Stories, audio); err != nil {
		return fmt.Errorf("compose episode: %w", err)
	}
	res.AudioPath = audio

	notes := filepath.Join(p.outputDir, NotesFile)
	if err := os.WriteFile(notes, []byte(p.composer.ShowNotes(res.Date, res.Stories)), 0o644); err != nil {
		return fmt.Errorf("write show notes: %w", err)
	}
	res.NotesPath = notes
	logger.InfoContext(ctx, "Episode composed", "audio", audio, "notes", notes)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, res *Result) error {
	if res.AudioPath == "" {
		return ErrNoPublishable
	}

	res.Title = res.Date.Format(composer.DateLayout)
	if p.titler != nil {
		if title, err := p.generateTitle(ctx, res.Stories); err != nil {
			logger.WarnContext(ctx, "Title generation failed, using date", "error", err)
		} else {
			res.Title = title
		}
	}

	notes := p.composer.ShowNotes(res.Date, res.Stories)
	html, err := composer.RenderHTML(notes)
	if err != nil {
		return err
	}
	episode, err := p.publisher.CreateEpisode(ctx, p.podcastID, res.Title, html, res.AudioPath)
	if err != nil {
		return fmt.Errorf("publish episode: %w", err)
	}
	res.Episode = episode
	logger.InfoContext(ctx, "Episode published", "podcast_id", p.podcastID, "title", res.Title)
	return nil
}

func (p *Pipeline) generateTitle(ctx context.Context, stories []schema.Article) (string, error) {
	texts := make([][]string, 0, len(stories))
	for _, s := range stories {
		texts = append(texts, s.TextList)
	}
	sample, err := text.Sample(strings.NewReader(text.Digest(texts)), text.DefaultSampleParagraphs)
	if err != nil {
		return "", err
	}
	return p.titler.CallDigest(ctx, strings.TrimSpace(sample), len(stories))
}

func writeStories(path string, stories []schema.Article) error {
	if stories == nil {
		stories = []schema.Article{}
	}
	data, err := json.MarshalIndent(stories, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stories: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
