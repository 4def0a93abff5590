// Package crawler lists the day's top stories from a news source and fills
// in their text.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/newscast/schema"
)

var (
	ErrUnknownSource = errors.New("crawler: unknown source")
	ErrNilFetcher    = errors.New("crawler: content fetcher is required")
)

// Source lists candidate stories, best first. Returned articles carry
// metadata only; TextList is filled by the Crawler.
type Source interface {
	Name() string
	List(ctx context.Context, limit int) ([]schema.Article, error)
}

// ContentFetcher downloads a story URL and returns its paragraphs.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) ([]string, error)
}

// Crawler combines a Source with a ContentFetcher.
type Crawler struct {
	source  Source
	fetcher ContentFetcher
	logger  *slog.Logger
}

func NewCrawler(source Source, fetcher ContentFetcher, logger *slog.Logger) (*Crawler, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil source", ErrUnknownSource)
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		source:  source,
		fetcher: fetcher,
		logger:  logger.With("component", "crawler", "source", source.Name()),
	}, nil
}

// Articles lists up to limit stories and fetches their text. Stories whose
// fetch fails or yields no text are logged and dropped, so fewer than limit
// articles may be returned.
func (c *Crawler) Articles(ctx context.Context, limit int) ([]schema.Article, error) {
	list, err := c.source.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s stories: %w", c.source.Name(), err)
	}
	c.logger.InfoContext(ctx, "Listed stories", "count", len(list))

	articles := make([]schema.Article, 0, len(list))
	for _, a := range list {
		if err := ctx.Err(); err != nil {
			return articles, err
		}

		text, err := c.fetcher.Fetch(ctx, a.URL)
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to fetch story content, skipping",
				"source_id", a.SourceID, "url", a.URL, "error", err)
			continue
		}
		a.TextList = text
		if !a.HasText() {
			c.logger.WarnContext(ctx, "Story has no readable text, skipping",
				"source_id", a.SourceID, "url", a.URL)
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}
