package textsplitter

import "errors"

const (
	// DefaultMaxTokens is a 4096 token context minus a 256 token response.
	DefaultMaxTokens = 3840
	// DefaultMaxDepth bounds bisection. Halving doubles the pieces per level,
	// so 64 levels is never reached by real text.
	DefaultMaxDepth = 64

	sentenceSeparator = ". "
	wordSeparator     = " "
	chunkSeparator    = " "
)

var (
	ErrInvalidChunkSize       = errors.New("textsplitter: max tokens must be positive")
	ErrTokenizerNotConfigured = errors.New("textsplitter: tokenizer is not configured")
)
