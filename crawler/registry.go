package crawler

import "fmt"

const (
	SourceHackerNews = "hackernews"
	SourceFeed       = "feed"
	SourceSample     = "sample"
)

// New builds the named source.
func New(name string, opts ...Option) (Source, error) {
	switch name {
	case SourceHackerNews:
		return NewHackerNews(opts...), nil
	case SourceFeed:
		return NewFeed(opts...)
	case SourceSample:
		return NewSample(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}
