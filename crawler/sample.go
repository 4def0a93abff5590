package crawler

import (
	"context"

	"github.com/sevigo/newscast/schema"
)

const SampleSourceName = "Wall street journal"

var sampleStories = []struct{ id, title, url string }{
	{
		"1",
		"Amazon Pausing Construction of Washington, D.C.-Area Second Headquarters",
		"https://www.wsj.com/articles/amazon-pausing-construction-of-washington-d-c-area-second-headquarters-b62ef6df",
	},
	{
		"2",
		"New York Pushes London Aside in Battle of Financial Centers",
		"https://www.wsj.com/articles/chip-designer-arm-intends-to-list-in-new-york-12210e53",
	},
	{
		"3",
		"U.S. Prepares New Rules on Investment in China",
		"https://www.wsj.com/articles/u-s-prepares-new-rules-on-investment-in-technology-abroad-a451e035",
	},
	{
		"4",
		"Wagner Chief Says Eastern Ukraine’s Bakhmut Is Effectively Surrounded",
		"https://www.wsj.com/articles/wagner-chief-says-eastern-ukraines-bakhmut-is-effectively-surrounded-c7af41d6",
	},
	{
		"5",
		"The Tax Play That Saves Some Couples Big Bucks",
		"https://www.wsj.com/articles/married-filing-separately-vs-jointly-taxes-f9f45ad2",
	},
}

// Sample is a fixed list of stories for offline runs and demos.
type Sample struct{}

var _ Source = Sample{}

func NewSample() Sample {
	return Sample{}
}

func (Sample) Name() string {
	return "sample"
}

func (Sample) List(_ context.Context, limit int) ([]schema.Article, error) {
	n := min(limit, len(sampleStories))
	if n <= 0 {
		return nil, nil
	}
	articles := make([]schema.Article, 0, n)
	for rank, s := range sampleStories[:n] {
		articles = append(articles, schema.Article{
			SourceName: SampleSourceName,
			SourceID:   s.id,
			SourceRank: rank,
			Title:      s.title,
			URL:        s.url,
		})
	}
	return articles, nil
}
