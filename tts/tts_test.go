package tts_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/tts"
)

type fakePolly struct {
	inputs []*polly.SynthesizeSpeechInput
	err    error
}

func (f *fakePolly) SynthesizeSpeech(
	_ context.Context,
	in *polly.SynthesizeSpeechInput,
	_ ...func(*polly.Options),
) (*polly.SynthesizeSpeechOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(strings.NewReader("[" + aws.ToString(in.Text) + "]")),
	}, nil
}

func TestPolly_Synthesize(t *testing.T) {
	api := &fakePolly{}
	p, err := tts.NewPolly(t.Context(), tts.WithAPI(api))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Synthesize(t.Context(), "Today is Monday, January 02", &buf))

	assert.Equal(t, "[Today is Monday, January 02]", buf.String())
	require.Len(t, api.inputs, 1)
	assert.Equal(t, types.VoiceIdJoanna, api.inputs[0].VoiceId)
	assert.Equal(t, types.OutputFormatMp3, api.inputs[0].OutputFormat)
}

func TestPolly_SplitsLongText(t *testing.T) {
	api := &fakePolly{}
	p, err := tts.NewPolly(t.Context(), tts.WithAPI(api))
	require.NoError(t, err)

	sentence := strings.Repeat("word ", 99) + "end."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 10))

	var buf bytes.Buffer
	require.NoError(t, p.Synthesize(t.Context(), text, &buf))
	require.Greater(t, len(api.inputs), 1)
	for _, in := range api.inputs {
		assert.LessOrEqual(t, utf8.RuneCountInString(aws.ToString(in.Text)), tts.MaxRequestChars)
	}
}

func TestPolly_Errors(t *testing.T) {
	api := &fakePolly{err: errors.New("throttled")}
	p, err := tts.NewPolly(t.Context(), tts.WithAPI(api))
	require.NoError(t, err)

	assert.ErrorIs(t, p.Synthesize(t.Context(), "  ", io.Discard), tts.ErrEmptyText)

	err = p.Synthesize(t.Context(), "hello", io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSynthesizeFile(t *testing.T) {
	dir := t.TempDir()
	p, err := tts.NewPolly(t.Context(), tts.WithAPI(&fakePolly{}))
	require.NoError(t, err)

	path := filepath.Join(dir, "2024-01-02", "42_title.mp3")
	require.NoError(t, tts.SynthesizeFile(t.Context(), p, "A title", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[A title]", string(data))

	failing, err := tts.NewPolly(t.Context(), tts.WithAPI(&fakePolly{err: errors.New("down")}))
	require.NoError(t, err)
	bad := filepath.Join(dir, "bad.mp3")
	require.Error(t, tts.SynthesizeFile(t.Context(), failing, "text", bad))
	assert.NoFileExists(t, bad)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, tts.SplitText("   ", 10))
	assert.Equal(t, []string{"short text"}, tts.SplitText(" short   text ", 100))

	got := tts.SplitText("One two. Three four. Five six.", 12)
	assert.Equal(t, []string{"One two.", "Three four.", "Five six."}, got)

	got = tts.SplitText("alpha beta gamma delta", 11)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, got)

	got = tts.SplitText("abcdefghij", 4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, got)
}
