package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	TimeoutSecs int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"60"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	StoreDriver  string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"smartreach.db"`

	LLM    LLM
	Search Search

	WorkerPoolSize   int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	CampaignCacheTTL time.Duration `env:"CAMPAIGN_CACHE_TTL" envDefault:"30m"`
	RefineMinScore   int           `env:"REFINE_MIN_SCORE" envDefault:"70"`
	RefineMaxRounds  int           `env:"REFINE_MAX_ROUNDS" envDefault:"2"`
	DefaultSender    string        `env:"DEFAULT_SENDER_NAME" envDefault:"Marketmind AI Hub"`

	// Saved campaigns are posted here when both are set.
	SinkURL    string `env:"SINK_URL"`
	SinkSecret string `env:"SINK_SECRET"`
}

type LLM struct {
	Provider      string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	GeminiKey     string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	ResearchModel string `env:"OPENAI_MODEL_RESEARCH" envDefault:"gpt-4"`
	EnrichModel   string `env:"OPENAI_MODEL_ENRICH" envDefault:"gpt-3.5-turbo"`
	ContentModel  string `env:"OPENAI_MODEL_CONTENT" envDefault:"gpt-4"`
	QualityModel  string `env:"OPENAI_MODEL_QUALITY" envDefault:"gpt-3.5-turbo"`
}

type Search struct {
	SerpAPIKey     string `env:"SERPAPI_API_KEY"`
	GoogleKey      string `env:"GOOGLE_SEARCH_API_KEY"`
	GoogleEngineID string `env:"GOOGLE_SEARCH_ENGINE_ID"`
	ClearbitKey    string `env:"CLEARBIT_API_KEY"`
}

// VerificationEnabled mirrors the rule that verification only runs when a search key is present.
func (s Search) VerificationEnabled() bool {
	return s.SerpAPIKey != "" || s.GoogleKey != ""
}

var ErrMissingCredential = errors.New("missing credential")

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.HTTPTimeout = 60 * time.Second
	if cfg.TimeoutSecs > 0 {
		cfg.HTTPTimeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	cfg.LogLevel = slog.LevelInfo
	switch strings.ToLower(cfg.LogLevelRaw) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 1
	}
	return cfg, nil
}

// Validate fails when the selected generation provider has no credential.
func (c Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "":
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY: %w", ErrMissingCredential)
		}
	case "gemini":
		if c.LLM.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY: %w", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.StoreDriver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
