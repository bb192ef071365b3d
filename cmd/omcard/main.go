package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rayzi0417/om-card/internal/adapters/decks"
	"github.com/Rayzi0417/om-card/internal/client"
	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/play"
)

type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }

type options struct {
	server   string
	provider string
	style    string
	timeout  time.Duration
	verbose  bool
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:   "omcard",
		Short: "Om card reflection rounds in the terminal",
		Long: `omcard talks to an omcardd server.

Commands:
  draw         Draw one card and print it as JSON
  play single  One card, open conversation
  play flip    Paradox flip with two cards
  play hero    Ten-step hero's journey`,
		SilenceUsage: true,
	}

	defaultServer := os.Getenv("OMCARD_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "omcardd base URL (env OMCARD_SERVER)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "model provider (doubao, google, ollama); empty uses the server default")
	root.PersistentFlags().StringVar(&opts.style, "style", string(domain.StyleFigurative), "deck style for AI cards (abstract, figurative)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "per-request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log fallbacks and retries to stderr")

	root.AddCommand(drawCmd(opts))
	root.AddCommand(playCmd(opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (o *options) backend() *client.Client {
	return client.New(&http.Client{Timeout: o.timeout}, o.server)
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *options) playConfig() (play.Config, error) {
	style, err := domain.ParseDeckStyle(o.style)
	if err != nil {
		return play.Config{}, err
	}
	if !style.Generative() {
		return play.Config{}, fmt.Errorf("%w: %s is not an AI deck", domain.ErrInvalidStyle, style)
	}
	cfg := play.DefaultConfig()
	cfg.Provider = o.provider
	cfg.DeckStyle = style
	cfg.Logger = o.logger()
	return cfg, nil
}

// composer deals the pre-rendered classic and saga decks locally.
func composer(ctx context.Context) (*domain.Composer, error) {
	pool, err := decks.NewEmbeddedStore().Pool(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewComposer(pool, stdRNG{}, stdRNG{}, uuid.NewString), nil
}
