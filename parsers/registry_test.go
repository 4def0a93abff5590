package parsers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/parsers"
	logger "github.com/sevigo/newscast/parsers/testing"
)

func TestRegisterDefaultParsers(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	reg, err := parsers.RegisterDefaultParsers(log)
	require.NoError(t, err)
	assert.Len(t, reg.GetAllParsers(), 4)

	tests := []struct {
		contentType string
		want        string
	}{
		{"text/html; charset=utf-8", "html"},
		{"TEXT/HTML", "html"},
		{"application/pdf", "pdf"},
		{"text/markdown", "markdown"},
		{"text/plain; charset=iso-8859-1", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			p, err := reg.GetParserForMediaType(tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}

	_, err = reg.GetParserForMediaType("image/png")
	assert.ErrorIs(t, err, parsers.ErrParserNotFound)

	p, err := reg.GetParserForExtension("PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf", p.Name())

	_, err = reg.GetParserForExtension("")
	assert.ErrorIs(t, err, parsers.ErrParserNotFound)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg, err := parsers.RegisterDefaultParsers(nil)
	require.NoError(t, err)

	html, err := reg.GetParser("html")
	require.NoError(t, err)
	assert.Error(t, reg.RegisterParser(html))
	assert.Error(t, reg.RegisterParser(nil))

	_, err = reg.GetParser("docx")
	assert.ErrorIs(t, err, parsers.ErrParserNotFound)
}
