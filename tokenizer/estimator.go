package tokenizer

import (
	"context"
	"unicode/utf8"

	"github.com/sevigo/newscast/llms"
)

// DefaultCharsPerToken approximates English text under GPT style vocabularies.
const DefaultCharsPerToken = 4

// Estimator approximates token counts from rune length. It needs no
// vocabulary files and is used when the BPE tables cannot be loaded.
type Estimator struct {
	CharsPerToken int
}

var _ llms.Tokenizer = Estimator{}

// CountTokens returns ceil(runes / CharsPerToken), at least 1 for non-empty text.
func (e Estimator) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	per := e.CharsPerToken
	if per <= 0 {
		per = DefaultCharsPerToken
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per, nil
}
