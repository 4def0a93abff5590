package parsers

import (
	"context"
	"io"
)

// Parser turns a document body into ordered, non-empty paragraphs.
type Parser interface {
	Name() string
	// MediaTypes lists the Content-Type values (without parameters) this
	// parser accepts.
	MediaTypes() []string
	// Extensions lists URL path extensions used when the server sends no
	// usable Content-Type.
	Extensions() []string
	Parse(ctx context.Context, r io.Reader) ([]string, error)
}
