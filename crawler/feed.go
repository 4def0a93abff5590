package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/sevigo/newscast/schema"
)

var ErrNoFeedURL = errors.New("crawler: feed url is required")

// Feed reads stories from an RSS or Atom feed in feed order.
type Feed struct {
	feedURL    string
	sourceName string
	http       httpGetter
	parser     *gofeed.Parser
	logger     *slog.Logger
}

var _ Source = (*Feed)(nil)

func NewFeed(opts ...Option) (*Feed, error) {
	o := applyOptions(opts...)
	if o.feedURL == "" {
		return nil, ErrNoFeedURL
	}
	return &Feed{
		feedURL:    o.feedURL,
		sourceName: o.sourceName,
		http:       o.getter(),
		parser:     gofeed.NewParser(),
		logger:     o.logger.With("component", "feed", "url", o.feedURL),
	}, nil
}

func (f *Feed) Name() string {
	return "feed"
}

// List returns up to limit feed items that have a title and a link. Live
// coverage pages are skipped, and utm_* tracking parameters are removed.
func (f *Feed) List(ctx context.Context, limit int) ([]schema.Article, error) {
	if limit <= 0 {
		return nil, nil
	}

	var feed *gofeed.Feed
	err := f.http.get(ctx, f.feedURL, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
		func(r io.Reader) error {
			var err error
			feed, err = f.parser.Parse(r)
			if err != nil {
				return fmt.Errorf("parse feed: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	sourceName := f.sourceName
	if sourceName == "" {
		sourceName = strings.TrimSpace(feed.Title)
	}

	articles := make([]schema.Article, 0, limit)
	for rank, item := range feed.Items {
		if len(articles) >= limit {
			break
		}

		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		if strings.Contains(link, "livecoverage") {
			f.logger.InfoContext(ctx, "Skipping live coverage article", "title", title)
			continue
		}

		id := item.GUID
		if id == "" {
			id = strconv.Itoa(rank)
		}

		articles = append(articles, schema.Article{
			SourceName: sourceName,
			SourceID:   id,
			SourceRank: rank,
			Title:      title,
			URL:        StripTracking(link),
		})
	}
	return articles, nil
}

// StripTracking removes utm_* query parameters from a URL.
func StripTracking(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
