// Package tokenizer counts tokens the way OpenAI chat models budget them.
package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sevigo/newscast/llms"
)

// GPT2Encoding is the tiktoken name of the GPT-2 byte pair vocabulary.
const GPT2Encoding = "r50k_base"

var ErrEncodingUnavailable = errors.New("tokenizer: encoding unavailable")

// BPE is a byte pair encoding tokenizer. The encoding tables are loaded once
// in New and only read afterwards, so a single BPE can be shared freely.
type BPE struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

var _ llms.Tokenizer = (*BPE)(nil)

type options struct {
	encoding string
	logger   *slog.Logger
}

type Option func(*options)

// WithEncoding selects a tiktoken encoding other than GPT-2.
func WithEncoding(name string) Option {
	return func(o *options) {
		if name != "" {
			o.encoding = name
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New loads the configured encoding, GPT-2 by default.
func New(opts ...Option) (*BPE, error) {
	o := options{encoding: GPT2Encoding, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := tiktoken.GetEncoding(o.encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodingUnavailable, o.encoding, err)
	}

	o.logger.With("component", "tokenizer").Debug("Encoding loaded", "encoding", o.encoding)
	return &BPE{enc: enc, encoding: o.encoding}, nil
}

// CountTokens returns the number of BPE tokens in text.
func (b *BPE) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(b.enc.Encode(text, nil, nil)), nil
}

// Encoding returns the tiktoken encoding name in use.
func (b *BPE) Encoding() string {
	return b.encoding
}
