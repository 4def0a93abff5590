// Package config holds the explicit run configuration. Values come from
// defaults, an optional YAML file, a .env file and the environment, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// MaxInputTokens is the context window of the default summarization model.
	MaxInputTokens = 4096
	// MaxResponseTokens is reserved in the window for each summary.
	MaxResponseTokens = 256

	DefaultMaxStories   = 10
	DefaultMaxSummaries = 5
	DefaultTimezone     = "America/New_York"
	DefaultStoriesFile  = "stories.json"
	DefaultPodcastID    = 52699
	DefaultVoice        = "Joanna"
	DefaultModel        = "gpt-3.5-turbo"
	DefaultConfigFile   = "newscast.yaml"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	TokenizerBPE      = "bpe"
	TokenizerEstimate = "estimate"
	TokenizerModel    = "model"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	LLM       LLMConfig       `yaml:"llm"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	TTS       TTSConfig       `yaml:"tts"`
	Composer  ComposerConfig  `yaml:"composer"`
	Castos    CastosConfig    `yaml:"castos"`
	Log       LogConfig       `yaml:"log"`
}

type SourceConfig struct {
	// Name is one of hackernews, feed, sample or dir.
	Name      string        `yaml:"name"`
	// Path is the directory of saved articles read by the dir source.
	Path      string        `yaml:"path"`
	FeedURL   string        `yaml:"feed_url"`
	FeedName  string        `yaml:"feed_name"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"-"`
	BaseURL           string        `yaml:"base_url"`
	Mock              bool          `yaml:"mock"`
	MaxInputTokens    int           `yaml:"max_input_tokens"`
	MaxResponseTokens int           `yaml:"max_response_tokens"`
	MaxDepth          int           `yaml:"max_depth"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	SystemPrompt      string        `yaml:"system_prompt"`
	// Prompt replaces the per-chunk template and must use {{.text}}.
	Prompt            string        `yaml:"prompt"`
	Temperature       float64       `yaml:"temperature"`
}

type TokenizerConfig struct {
	// Kind is bpe, estimate or model.
	Kind     string `yaml:"kind"`
	Encoding string `yaml:"encoding"`
}

type PipelineConfig struct {
	MaxStories    int    `yaml:"max_stories"`
	MaxSummaries  int    `yaml:"max_summaries"`
	Timezone      string `yaml:"timezone"`
	OutputDir     string `yaml:"output_dir"`
	StoriesFile   string `yaml:"stories_file"`
	GenerateTitle bool   `yaml:"generate_title"`
}

type TTSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Voice   string `yaml:"voice"`
	Engine  string `yaml:"engine"`
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

type ComposerConfig struct {
	AssetsDir string `yaml:"assets_dir"`
	WorkDir   string `yaml:"work_dir"`
}

type CastosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"-"`
	PodcastID int    `yaml:"podcast_id"`
	BaseURL   string `yaml:"base_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Name:    "hackernews",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:          ProviderOpenAI,
			Model:             DefaultModel,
			MaxInputTokens:    MaxInputTokens,
			MaxResponseTokens: MaxResponseTokens,
			MaxDepth:          8,
			MaxRetries:        3,
			RetryDelay:        2 * time.Second,
		},
		Tokenizer: TokenizerConfig{
			Kind:     TokenizerBPE,
			Encoding: "r50k_base",
		},
		Pipeline: PipelineConfig{
			MaxStories:   DefaultMaxStories,
			MaxSummaries: DefaultMaxSummaries,
			Timezone:     DefaultTimezone,
			OutputDir:    ".",
			StoriesFile:  DefaultStoriesFile,
		},
		TTS: TTSConfig{
			Voice: DefaultVoice,
		},
		Composer: ComposerConfig{
			AssetsDir: "data",
			WorkDir:   "data",
		},
		Castos: CastosConfig{
			PodcastID: DefaultPodcastID,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. An empty path reads DefaultConfigFile when
// it exists; an explicit path must exist. Overrides, such as command line
// flags, are applied last and are subject to validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg.applyEnv()
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Source.Name = getEnv("NEWSCAST_SOURCE", c.Source.Name)
	c.Source.FeedURL = getEnv("NEWSCAST_FEED_URL", c.Source.FeedURL)
	c.Source.FeedName = getEnv("NEWSCAST_FEED_NAME", c.Source.FeedName)
	c.Source.Path = getEnv("NEWSCAST_SOURCE_DIR", c.Source.Path)

	c.LLM.Provider = getEnv("NEWSCAST_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("NEWSCAST_LLM_MODEL", c.LLM.Model)
	c.LLM.Mock = getEnvBool("NEWSCAST_MOCK", c.LLM.Mock)
	c.LLM.MaxRetries = getEnvInt("NEWSCAST_LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.RetryDelay = getEnvDuration("NEWSCAST_LLM_RETRY_DELAY", c.LLM.RetryDelay)
	switch c.LLM.Provider {
	case ProviderOpenAI:
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
		c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	case ProviderGemini:
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	case ProviderOllama:
		c.LLM.BaseURL = getEnv("OLLAMA_URL", c.LLM.BaseURL)
	}

	c.Tokenizer.Kind = getEnv("NEWSCAST_TOKENIZER", c.Tokenizer.Kind)

	c.Pipeline.MaxStories = getEnvInt("NEWSCAST_MAX_STORIES", c.Pipeline.MaxStories)
	c.Pipeline.MaxSummaries = getEnvInt("NEWSCAST_MAX_SUMMARIES", c.Pipeline.MaxSummaries)
	c.Pipeline.Timezone = getEnv("NEWSCAST_TIMEZONE", c.Pipeline.Timezone)
	c.Pipeline.OutputDir = getEnv("NEWSCAST_OUTPUT_DIR", c.Pipeline.OutputDir)
	c.Pipeline.GenerateTitle = getEnvBool("NEWSCAST_GENERATE_TITLE", c.Pipeline.GenerateTitle)

	c.TTS.Enabled = getEnvBool("NEWSCAST_TTS", c.TTS.Enabled)
	c.TTS.Profile = getEnv("AWS_PROFILE", c.TTS.Profile)
	c.TTS.Region = getEnv("AWS_REGION", c.TTS.Region)

	c.Castos.Enabled = getEnvBool("NEWSCAST_PUBLISH", c.Castos.Enabled)
	c.Castos.Token = getEnv("CASTOS_API_TOKEN", c.Castos.Token)
	c.Castos.PodcastID = getEnvInt("CASTOS_PODCAST_ID", c.Castos.PodcastID)

	c.Log.Level = getEnv("NEWSCAST_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("NEWSCAST_LOG_FORMAT", c.Log.Format)
}

// MaxLength is the token budget of one chunk: the input window minus the
// space reserved for the response.
func (c *Config) MaxLength() int {
	return c.LLM.MaxInputTokens - c.LLM.MaxResponseTokens
}

// Validate checks internal consistency. Credentials are only required for
// the features that use them.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.MaxLength() <= 0 {
		add("max_input_tokens (%d) must exceed max_response_tokens (%d)", c.LLM.MaxInputTokens, c.LLM.MaxResponseTokens)
	}
	if c.LLM.MaxResponseTokens <= 0 {
		add("max_response_tokens must be positive, got %d", c.LLM.MaxResponseTokens)
	}
	if c.LLM.MaxDepth <= 0 {
		add("max_depth must be positive, got %d", c.LLM.MaxDepth)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("temperature must be 0-2, got %g", c.LLM.Temperature)
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 10 {
		add("max_retries must be 0-10, got %d", c.LLM.MaxRetries)
	}
	if !c.LLM.Mock {
		switch c.LLM.Provider {
		case ProviderOpenAI, ProviderGemini:
			if c.LLM.APIKey == "" {
				add("%s provider requires an API key", c.LLM.Provider)
			}
		case ProviderOllama:
		default:
			add("unknown llm provider %q", c.LLM.Provider)
		}
	}
	switch c.Tokenizer.Kind {
	case TokenizerBPE, TokenizerEstimate:
	case TokenizerModel:
		if c.LLM.Provider == ProviderOpenAI && !c.LLM.Mock {
			add("tokenizer kind %q is not available for the openai provider", c.Tokenizer.Kind)
		}
	default:
		add("unknown tokenizer kind %q", c.Tokenizer.Kind)
	}
	switch c.Source.Name {
	case "hackernews", "sample":
	case "feed":
		if c.Source.FeedURL == "" {
			add("feed source requires feed_url")
		}
	case "dir":
		if c.Source.Path == "" {
			add("dir source requires path")
		}
	default:
		add("unknown source %q", c.Source.Name)
	}
	if c.Pipeline.MaxStories <= 0 || c.Pipeline.MaxSummaries <= 0 {
		add("max_stories and max_summaries must be positive")
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		add("invalid timezone %q: %v", c.Pipeline.Timezone, err)
	}
	if c.Castos.Enabled {
		if !c.TTS.Enabled {
			add("publishing requires tts to be enabled")
		}
		if c.Castos.Token == "" {
			add("publishing requires CASTOS_API_TOKEN")
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		add("log format must be text or json, got %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// FeedName is the key used for composer assets and work directories.
func (c *Config) FeedName() string {
	if c.Source.FeedName != "" {
		return c.Source.FeedName
	}
	return c.Source.Name
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// NewLogger builds the root logger described by l.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
