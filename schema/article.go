package schema

import "strings"

// Article is one news story moving through the pipeline. TextList holds the
// extracted paragraphs in page order and is the input to summarization.
type Article struct {
	SourceName string   `json:"source_name"`
	SourceID   string   `json:"source_id"`
	SourceRank int      `json:"source_rank"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	TextList   []string `json:"text_list,omitempty"`
	Content    string   `json:"content,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// HasText reports whether the article carries any non-blank paragraph.
func (a Article) HasText() bool {
	for _, t := range a.TextList {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}
