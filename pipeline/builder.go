package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevigo/newscast/chains"
	"github.com/sevigo/newscast/composer"
	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/crawler"
	"github.com/sevigo/newscast/documentloaders"
	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/llms/fake"
	"github.com/sevigo/newscast/llms/gemini"
	"github.com/sevigo/newscast/llms/ollama"
	"github.com/sevigo/newscast/llms/openai"
	"github.com/sevigo/newscast/parsers"
	"github.com/sevigo/newscast/podcast/castos"
	"github.com/sevigo/newscast/prompts"
	"github.com/sevigo/newscast/textsplitter"
	"github.com/sevigo/newscast/tokenizer"
	"github.com/sevigo/newscast/tts"
)

// SourceDir selects saved articles on disk instead of a crawler.
const SourceDir = "dir"

// DefaultOllamaModel is used when the ollama provider is selected without
// naming a model.
const DefaultOllamaModel = "llama3.2"

var ErrTokenizerUnsupported = errors.New("pipeline: model does not count tokens")

// NewModel builds the configured summarization model. Mock mode answers
// every call with chains.MockSummary and never touches the network.
func NewModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	if cfg.LLM.Mock {
		logger.Info("Using mock summarization model")
		return fake.NewFakeLLM([]string{chains.MockSummary}), nil
	}

	model := cfg.LLM.Model
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		llm, err := openai.New(
			openai.WithModel(model),
			openai.WithAPIKey(cfg.LLM.APIKey),
			openai.WithBaseURL(cfg.LLM.BaseURL),
			openai.WithMaxRetries(cfg.LLM.MaxRetries),
			openai.WithRetryDelay(cfg.LLM.RetryDelay),
			openai.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case config.ProviderOllama:
		if model == "" || model == config.DefaultModel {
			model = DefaultOllamaModel
		}
		opts := []ollama.Option{
			ollama.WithModel(model),
			ollama.WithContextWindow(cfg.LLM.MaxInputTokens),
			ollama.WithPullMissing(true),
			ollama.WithLogger(logger),
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.LLM.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case config.ProviderGemini:
		if model == config.DefaultModel {
			model = ""
		}
		opts := []gemini.Option{
			gemini.WithAPIKey(cfg.LLM.APIKey),
			gemini.WithLogger(logger),
		}
		if model != "" {
			opts = append(opts, gemini.WithModel(model))
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.LLM.BaseURL))
		}
		llm, err := gemini.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// NewTokenizer builds the token counter the chunker budgets with. The model
// kind asks the model itself and needs a provider that implements
// llms.Tokenizer.
func NewTokenizer(cfg *config.Config, model llms.Model, logger *slog.Logger) (llms.Tokenizer, error) {
	switch cfg.Tokenizer.Kind {
	case config.TokenizerEstimate:
		return tokenizer.Estimator{}, nil
	case config.TokenizerModel:
		tok, ok := model.(llms.Tokenizer)
		if !ok {
			return nil, ErrTokenizerUnsupported
		}
		return tok, nil
	default:
		tok, err := tokenizer.New(tokenizer.WithEncoding(cfg.Tokenizer.Encoding), tokenizer.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return tok, nil
	}
}

// NewSummarizer assembles the token splitter and the recursive summarize
// chain over model.
func NewSummarizer(cfg *config.Config, model llms.Model, tok llms.Tokenizer, logger *slog.Logger) (*chains.Summarize, error) {
	splitter, err := textsplitter.NewTokenSplitter(tok,
		textsplitter.WithMaxTokens(cfg.MaxLength()),
		textsplitter.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []chains.Option{
		chains.WithMaxResponseTokens(cfg.LLM.MaxResponseTokens),
		chains.WithMaxDepth(cfg.LLM.MaxDepth),
		chains.WithTemperature(cfg.LLM.Temperature),
		chains.WithLogger(logger),
	}
	if cfg.LLM.SystemPrompt != "" {
		opts = append(opts, chains.WithSystemPrompt(cfg.LLM.SystemPrompt))
	}
	if cfg.LLM.Prompt != "" {
		opts = append(opts, chains.WithPrompt(prompts.NewPromptTemplate(cfg.LLM.Prompt)))
	}
	return chains.NewSummarize(model, splitter, opts...)
}

// NewSource builds the configured story source. The dir source reads saved
// articles from disk; every other source crawls the web.
func NewSource(cfg *config.Config, logger *slog.Logger) (ArticleSource, error) {
	if cfg.Source.Name == SourceDir {
		registry, err := parsers.RegisterDefaultParsers(logger)
		if err != nil {
			return nil, err
		}
		return documentloaders.NewFiles(cfg.Source.Path, registry, documentloaders.WithLogger(logger)), nil
	}
	c, err := NewCrawler(cfg, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewCrawler builds the configured web source on top of the default
// content parsers.
func NewCrawler(cfg *config.Config, logger *slog.Logger) (*crawler.Crawler, error) {
	timeout := cfg.Source.Timeout
	if timeout <= 0 {
		timeout = crawler.DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	source, err := crawler.New(cfg.Source.Name,
		crawler.WithHTTPClient(client),
		crawler.WithUserAgent(cfg.Source.UserAgent),
		crawler.WithFeedURL(cfg.Source.FeedURL),
		crawler.WithSourceName(cfg.Source.FeedName),
		crawler.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	registry, err := parsers.RegisterDefaultParsers(logger)
	if err != nil {
		return nil, err
	}
	fetcher := parsers.NewFetcher(registry,
		parsers.WithHTTPClient(client),
		parsers.WithUserAgent(cfg.Source.UserAgent),
		parsers.WithLogger(logger),
	)
	return crawler.NewCrawler(source, fetcher, logger)
}

// FromConfig builds a ready to run pipeline. Audio and publishing are wired
// only when enabled.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	model, err := NewModel(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	tok, err := NewTokenizer(cfg, model, logger)
	if err != nil {
		return nil, fmt.Errorf("build tokenizer: %w", err)
	}
	summarizer, err := NewSummarizer(cfg, model, tok, logger)
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}
	source, err := NewSource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build story source: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	opts := []Option{
		WithLimits(cfg.Pipeline.MaxStories, cfg.Pipeline.MaxSummaries),
		WithLocation(loc),
		WithOutputDir(cfg.Pipeline.OutputDir),
		WithStoriesFile(cfg.Pipeline.StoriesFile),
		WithLogger(logger),
	}

	if cfg.TTS.Enabled {
		synth, err := tts.NewPolly(ctx,
			tts.WithProfile(cfg.TTS.Profile),
			tts.WithRegion(cfg.TTS.Region),
			tts.WithVoice(cfg.TTS.Voice),
			tts.WithEngine(cfg.TTS.Engine),
			tts.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("build synthesizer: %w", err)
		}
		comp, err := composer.New(cfg.FeedName(), synth,
			composer.WithAssetsDir(cfg.Composer.AssetsDir),
			composer.WithWorkDir(cfg.Composer.WorkDir),
			composer.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("build composer: %w", err)
		}
		opts = append(opts, WithComposer(comp))
	}

	if cfg.Castos.Enabled {
		client, err := castos.New(cfg.Castos.Token,
			castos.WithBaseURL(cfg.Castos.BaseURL),
			castos.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("build castos client: %w", err)
		}
		opts = append(opts, WithPublisher(client, cfg.Castos.PodcastID))

		if cfg.Pipeline.GenerateTitle {
			titler, err := chains.NewTitle(model, chains.WithLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("build title chain: %w", err)
			}
			opts = append(opts, WithTitler(titler))
		}
	}

	return New(source, summarizer, opts...)
}
