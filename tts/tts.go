// Package tts converts narration text to audio.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var ErrEmptyText = errors.New("tts: text is empty")

// Synthesizer writes encoded audio for text to w.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

// SynthesizeFile renders text into path. The file is written to a temporary
// sibling first and renamed, so a failed call never leaves a partial clip.
func SynthesizeFile(ctx context.Context, s Synthesizer, text, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tts: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("tts: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Synthesize(ctx, text, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tts: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("tts: rename into %s: %w", path, err)
	}
	return nil
}

// SplitText packs sentences into pieces of at most limit characters. A
// sentence longer than limit is packed by words, and a word longer than
// limit is cut.
func SplitText(text string, limit int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var pieces []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	add := func(unit string) {
		n := utf8.RuneCountInString(unit)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(unit)
		curLen += n
	}

	for _, sentence := range sentences(text) {
		if utf8.RuneCountInString(sentence) <= limit {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			for _, part := range cut(word, limit) {
				add(part)
			}
		}
	}
	flush()
	return pieces
}

// sentences splits after ". ", "! " and "? ", keeping the punctuation.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				out = append(out, text[start:i+1])
				start = i + 2
			}
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func cut(word string, limit int) []string {
	runes := []rune(word)
	if len(runes) <= limit {
		return []string{word}
	}
	var out []string
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
