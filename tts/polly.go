package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

const (
	DefaultVoice = "Joanna"
	// MaxRequestChars is the Polly limit on input characters per request.
	MaxRequestChars = 3000
)

var ErrNoAudio = errors.New("tts: polly returned no audio stream")

// SpeechAPI is the subset of the Polly client used here.
type SpeechAPI interface {
	SynthesizeSpeech(
		ctx context.Context,
		params *polly.SynthesizeSpeechInput,
		optFns ...func(*polly.Options),
	) (*polly.SynthesizeSpeechOutput, error)
}

// Polly synthesizes MP3 narration with Amazon Polly.
type Polly struct {
	api    SpeechAPI
	voice  types.VoiceId
	engine types.Engine
	logger *slog.Logger
}

var _ Synthesizer = (*Polly)(nil)

type pollyOptions struct {
	profile string
	region  string
	voice   string
	engine  string
	api     SpeechAPI
	logger  *slog.Logger
}

type PollyOption func(*pollyOptions)

// WithProfile selects a shared config profile.
func WithProfile(profile string) PollyOption {
	return func(o *pollyOptions) {
		o.profile = profile
	}
}

func WithRegion(region string) PollyOption {
	return func(o *pollyOptions) {
		o.region = region
	}
}

func WithVoice(voice string) PollyOption {
	return func(o *pollyOptions) {
		if voice != "" {
			o.voice = voice
		}
	}
}

// WithEngine selects "standard", "neural", "long-form" or "generative".
func WithEngine(engine string) PollyOption {
	return func(o *pollyOptions) {
		o.engine = engine
	}
}

// WithAPI replaces the Polly client, which skips AWS config loading.
func WithAPI(api SpeechAPI) PollyOption {
	return func(o *pollyOptions) {
		o.api = api
	}
}

func WithLogger(logger *slog.Logger) PollyOption {
	return func(o *pollyOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewPolly loads the default AWS configuration chain unless WithAPI is given.
func NewPolly(ctx context.Context, opts ...PollyOption) (*Polly, error) {
	o := pollyOptions{
		voice:  DefaultVoice,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	api := o.api
	if api == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if o.profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(o.profile))
		}
		if o.region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("tts: load aws config: %w", err)
		}
		api = polly.NewFromConfig(cfg)
	}

	return &Polly{
		api:    api,
		voice:  types.VoiceId(o.voice),
		engine: types.Engine(o.engine),
		logger: o.logger.With("component", "polly", "voice", o.voice),
	}, nil
}

// Synthesize writes MP3 audio for text to w. Text over MaxRequestChars is
// sent in several requests whose MP3 streams are concatenated.
func (p *Polly) Synthesize(ctx context.Context, text string, w io.Writer) error {
	pieces := SplitText(text, MaxRequestChars)
	if len(pieces) == 0 {
		return ErrEmptyText
	}

	p.logger.DebugContext(ctx, "Converting text to speech", "chars", len(text), "requests", len(pieces))
	for i, piece := range pieces {
		if err := p.synthesizePiece(ctx, piece, w); err != nil {
			return fmt.Errorf("tts: synthesize piece %d/%d: %w", i+1, len(pieces), err)
		}
	}
	return nil
}

func (p *Polly) synthesizePiece(ctx context.Context, text string, w io.Writer) error {
	input := &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		VoiceId:      p.voice,
	}
	if strings.TrimSpace(string(p.engine)) != "" {
		input.Engine = p.engine
	}

	out, err := p.api.SynthesizeSpeech(ctx, input)
	if err != nil {
		return err
	}
	if out.AudioStream == nil {
		return ErrNoAudio
	}
	defer out.AudioStream.Close()

	if _, err := io.Copy(w, out.AudioStream); err != nil {
		return fmt.Errorf("copy audio stream: %w", err)
	}
	return nil
}
