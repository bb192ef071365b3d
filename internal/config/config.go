package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider names accepted by DEFAULT_PROVIDER.
const (
	ProviderDoubao = "doubao"
	ProviderGoogle = "google"
	ProviderOllama = "ollama"
)

// Rate limit backends accepted by RATE_LIMIT_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	HTTPAddr     string     `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevelName string     `envconfig:"LOG_LEVEL" default:"info"`
	LogLevel     slog.Level `ignored:"true"`

	DefaultProvider string `envconfig:"DEFAULT_PROVIDER" default:"google"`

	ArkAPIKey     string `envconfig:"ARK_API_KEY"`
	ArkBaseURL    string `envconfig:"ARK_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	ArkChatModel  string `envconfig:"ARK_CHAT_MODEL" default:"doubao-seed-1-8-251228"`
	ArkImageModel string `envconfig:"ARK_IMAGE_MODEL" default:"doubao-seedream-4-5-251128"`
	ArkImageSize  string `envconfig:"ARK_IMAGE_SIZE" default:"1920x1920"`

	GoogleAPIKey              string   `envconfig:"GOOGLE_GENERATIVE_AI_API_KEY"`
	GeminiBaseURL             string   `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiChatModel           string   `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-2.0-flash"`
	GeminiImageModel          string   `envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.0-flash-exp-image-generation"`
	GeminiImageFallbackModels []string `envconfig:"GEMINI_IMAGE_FALLBACK_MODELS"`

	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL"`
	OllamaModel   string `envconfig:"OLLAMA_MODEL" default:"qwen2.5:7b"`

	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	ImageTimeout time.Duration `envconfig:"IMAGE_TIMEOUT" default:"120s"`
	AssetDir     string        `envconfig:"ASSET_DIR" default:"public"`

	RateLimitBackend string `envconfig:"RATE_LIMIT_BACKEND" default:"memory"`
	RedisAddr        string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD"`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`

	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	level, err := parseLogLevel(c.LogLevelName)
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level
	c.GeminiImageFallbackModels = trimAll(c.GeminiImageFallbackModels)
	c.CORSAllowOrigins = trimAll(c.CORSAllowOrigins)

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.DefaultProvider {
	case ProviderDoubao:
		if c.ArkAPIKey == "" {
			return fmt.Errorf("ARK_API_KEY is required when DEFAULT_PROVIDER=%s", ProviderDoubao)
		}
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_GENERATIVE_AI_API_KEY is required when DEFAULT_PROVIDER=%s", ProviderGoogle)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("invalid DEFAULT_PROVIDER %q", c.DefaultProvider)
	}

	switch c.RateLimitBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if c.LLMTimeout <= 0 || c.ImageTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (LLM_TIMEOUT=%s IMAGE_TIMEOUT=%s)", c.LLMTimeout, c.ImageTimeout)
	}
	return nil
}

// OllamaEnabled reports whether the local provider should be registered.
func (c Config) OllamaEnabled() bool {
	return c.OllamaBaseURL != "" || c.DefaultProvider == ProviderOllama
}

func trimAll(items []string) []string {
	var out []string
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
