package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/sevigo/newscast/schema"
)

const (
	HackerNewsName    = "Hackernews"
	HackerNewsBaseURL = "https://hacker-news.firebaseio.com/v0"
)

// HackerNews reads the Hacker News front page through the Firebase API.
type HackerNews struct {
	baseURL string
	http    httpGetter
	logger  *slog.Logger
}

var _ Source = (*HackerNews)(nil)

type hnItem struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Dead    bool   `json:"dead"`
	Deleted bool   `json:"deleted"`
}

func NewHackerNews(opts ...Option) *HackerNews {
	o := applyOptions(opts...)
	base := o.baseURL
	if base == "" {
		base = HackerNewsBaseURL
	}
	return &HackerNews{
		baseURL: strings.TrimRight(base, "/"),
		http:    o.getter(),
		logger:  o.logger.With("component", "hackernews"),
	}
}

func (h *HackerNews) Name() string {
	return "hackernews"
}

// List walks the top stories in order until limit stories pass the filters.
// SourceRank is the story's position on the front page.
func (h *HackerNews) List(ctx context.Context, limit int) ([]schema.Article, error) {
	if limit <= 0 {
		return nil, nil
	}

	var ids []int64
	if err := h.http.getJSON(ctx, h.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	h.logger.DebugContext(ctx, "Fetched top stories", "count", len(ids))

	articles := make([]schema.Article, 0, limit)
	for rank, id := range ids {
		if len(articles) >= limit {
			break
		}

		var item hnItem
		if err := h.http.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &item); err != nil {
			if ctx.Err() != nil {
				return articles, ctx.Err()
			}
			h.logger.WarnContext(ctx, "Failed to fetch story, skipping", "id", id, "error", err)
			continue
		}
		if reason := skipReason(item); reason != "" {
			h.logger.InfoContext(ctx, "Skipping story", "id", id, "reason", reason)
			continue
		}

		articles = append(articles, schema.Article{
			SourceName: HackerNewsName,
			SourceID:   strconv.FormatInt(id, 10),
			SourceRank: rank,
			Title:      strings.TrimSpace(item.Title),
			URL:        item.URL,
		})
	}
	return articles, nil
}

func skipReason(item hnItem) string {
	switch {
	case item.Dead || item.Deleted:
		return "dead or deleted"
	case strings.TrimSpace(item.URL) == "":
		return "no url"
	case isGitHub(item.URL):
		return "github link"
	}
	return ""
}

func isGitHub(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || host == "www.github.com"
}
