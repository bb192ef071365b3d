package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_GENERATIVE_AI_API_KEY", "g-key")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, ProviderGoogle, c.DefaultProvider)
	assert.Equal(t, "doubao-seed-1-8-251228", c.ArkChatModel)
	assert.Equal(t, "1920x1920", c.ArkImageSize)
	assert.Equal(t, "gemini-2.0-flash", c.GeminiChatModel)
	assert.Equal(t, 60*time.Second, c.LLMTimeout)
	assert.Equal(t, BackendMemory, c.RateLimitBackend)
	assert.Equal(t, []string{"*"}, c.CORSAllowOrigins)
	assert.False(t, c.OllamaEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEFAULT_PROVIDER", "doubao")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("GEMINI_IMAGE_FALLBACK_MODELS", "a, b ,,c")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderDoubao, c.DefaultProvider)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, 15*time.Second, c.LLMTimeout)
	assert.Equal(t, BackendRedis, c.RateLimitBackend)
	assert.Equal(t, 2, c.RedisDB)
	assert.Equal(t, []string{"a", "b", "c"}, c.GeminiImageFallbackModels)
	assert.True(t, c.OllamaEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing google key", map[string]string{}},
		{"missing ark key", map[string]string{"DEFAULT_PROVIDER": "doubao"}},
		{"unknown provider", map[string]string{"DEFAULT_PROVIDER": "openrouter"}},
		{"bad log level", map[string]string{"DEFAULT_PROVIDER": "ollama", "LOG_LEVEL": "loud"}},
		{"bad duration", map[string]string{"DEFAULT_PROVIDER": "ollama", "LLM_TIMEOUT": "soon"}},
		{"bad backend", map[string]string{"DEFAULT_PROVIDER": "ollama", "RATE_LIMIT_BACKEND": "memcached"}},
		{"zero timeout", map[string]string{"DEFAULT_PROVIDER": "ollama", "IMAGE_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_GENERATIVE_AI_API_KEY", "")
			t.Setenv("ARK_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"Info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
