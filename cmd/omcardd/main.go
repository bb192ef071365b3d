package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Rayzi0417/om-card/internal/adapters/decks"
	httpadapter "github.com/Rayzi0417/om-card/internal/adapters/http"
	"github.com/Rayzi0417/om-card/internal/adapters/llm"
	"github.com/Rayzi0417/om-card/internal/adapters/llm/gemini"
	"github.com/Rayzi0417/om-card/internal/adapters/llm/ollama"
	"github.com/Rayzi0417/om-card/internal/adapters/llm/openai"
	"github.com/Rayzi0417/om-card/internal/app"
	"github.com/Rayzi0417/om-card/internal/config"
	"github.com/Rayzi0417/om-card/internal/ratelimit"
)

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }

const purgeInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, closers, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build providers", "error", err)
		os.Exit(1)
	}
	logger.Info("providers ready", "default", registry.Default(), "text", registry.Names())

	store, err := buildRateLimitStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to build rate limit store", "backend", cfg.RateLimitBackend, "error", err)
		os.Exit(1)
	}
	closers = append(closers, store)

	deckStore := decks.NewEmbeddedStore()
	if _, err := deckStore.Pool(ctx); err != nil {
		logger.Error("failed to load decks", "error", err)
		os.Exit(1)
	}

	draws := app.NewDrawService(deckStore, registry, stdRNG{}, stdRNG{}, uuid.NewString)
	images := app.NewImageResolver(cfg.AssetDir)
	chats := app.NewChatService(registry, nil, images, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{
			"Retry-After", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id",
		},
	}))
	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))

	handler := httpadapter.NewHandler(draws, chats, logger,
		httpadapter.WithRateLimiter(ratelimit.New(store)),
		httpadapter.WithTimeouts(cfg.ImageTimeout, cfg.LLMTimeout),
	)
	handler.Register(e)
	e.Static("/cards", filepath.Join(cfg.AssetDir, "cards"))

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("close error", "error", err)
		}
	}
}

// buildProviders registers every provider whose credentials are configured.
func buildProviders(ctx context.Context, cfg config.Config, logger *slog.Logger) (*llm.Registry, []io.Closer, error) {
	registry := llm.NewRegistry(cfg.DefaultProvider)
	var closers []io.Closer

	if cfg.ArkAPIKey != "" {
		doubao := openai.NewClient(openai.Config{
			APIKey:     cfg.ArkAPIKey,
			BaseURL:    cfg.ArkBaseURL,
			ChatModel:  cfg.ArkChatModel,
			ImageModel: cfg.ArkImageModel,
			ImageSize:  cfg.ArkImageSize,
			HTTPClient: &http.Client{Timeout: cfg.ImageTimeout},
		}, logger)
		registry.RegisterText(openai.Provider, doubao)
		registry.RegisterImage(openai.Provider, doubao.Images())
		go func() {
			if err := openai.LoadEncoding(); err != nil {
				logger.Warn("token estimator unavailable", "error", err)
			}
		}()
	}

	if cfg.GoogleAPIKey != "" {
		chat, err := gemini.NewChatClient(ctx, cfg.GoogleAPIKey, cfg.GeminiChatModel, logger)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, chat)
		registry.RegisterText(gemini.Provider, chat)
		registry.RegisterImage(gemini.Provider, gemini.NewImageClient(
			&http.Client{Timeout: cfg.ImageTimeout},
			cfg.GoogleAPIKey,
			cfg.GeminiBaseURL,
			cfg.GeminiImageModel,
			cfg.GeminiImageFallbackModels,
			logger,
		))
	}

	if cfg.OllamaEnabled() {
		local, err := ollama.NewClient(&http.Client{Timeout: cfg.LLMTimeout}, cfg.OllamaBaseURL, cfg.OllamaModel, logger)
		if err != nil {
			return nil, closers, err
		}
		registry.RegisterText(ollama.Provider, local)
	}
	return registry, closers, nil
}

type closingStore interface {
	ratelimit.Store
	io.Closer
}

func buildRateLimitStore(ctx context.Context, cfg config.Config) (closingStore, error) {
	if cfg.RateLimitBackend != config.BackendRedis {
		return ratelimit.NewMemoryStore(purgeInterval), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return redisStore{RedisStore: ratelimit.NewRedisStore(rdb, "omcard:ratelimit:"), client: rdb}, nil
}

type redisStore struct {
	*ratelimit.RedisStore
	client *redis.Client
}

func (s redisStore) Close() error { return s.client.Close() }
