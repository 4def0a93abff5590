package text_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/parsers/text"
)

func TestParser_Parse(t *testing.T) {
	p := text.NewParser(nil)
	assert.Equal(t, "text", p.Name())
	assert.Equal(t, []string{"text/plain"}, p.MediaTypes())

	in := "First line\nwrapped here.\r\n\r\nSecond paragraph.\n   \n\n\nCafé reopens."
	got, err := p.Parse(t.Context(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"First line wrapped here.",
		"Second paragraph.",
		"Café reopens.",
	}, got)
}

func TestSample(t *testing.T) {
	digest := "# news 1\n" +
		"Amazon pauses HQ2 construction.\n" +
		"The company cited remote work.\n" +
		"ok\n" +
		"Arlington officials were surprised.\n" +
		"Phase one opens in June.\n" +
		"# news 2\n" +
		"London loses listings to New York.\n" +
		"Arm plans a New York listing.\n"

	got, err := text.Sample(strings.NewReader(digest), text.DefaultSampleParagraphs)
	require.NoError(t, err)

	want := "\n story 1" +
		"\n The company cited remote work.\n" +
		"\n Phase one opens in June.\n" +
		"\n story 2" +
		"\n Arm plans a New York listing.\n"
	assert.Equal(t, want, got)
}

func TestSample_LastLineWithoutNewline(t *testing.T) {
	got, err := text.Sample(strings.NewReader("# news 7\nfirst paragraph\nsecond paragraph"), []int{2})
	require.NoError(t, err)
	assert.Equal(t, "\n story 7\n second paragraph", got)
}

func TestSample_NoParagraphs(t *testing.T) {
	_, err := text.Sample(strings.NewReader("# news 1\n"), nil)
	assert.ErrorIs(t, err, text.ErrNoParagraphs)
}

func TestDigest_RoundTripsThroughSample(t *testing.T) {
	digest := text.Digest([][]string{
		{"Headline one is here.", "Body paragraph  one.", "Third paragraph."},
		{"Headline two is here.", "Body paragraph two."},
	})
	assert.True(t, strings.HasPrefix(digest, "# news 1\n"))

	got, err := text.Sample(strings.NewReader(digest), []int{2})
	require.NoError(t, err)
	assert.Equal(t, "\n story 1\n Body paragraph one.\n\n story 2\n Body paragraph two.\n", got)
}
