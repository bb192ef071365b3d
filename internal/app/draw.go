package app

import (
	"context"
	"fmt"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/metrics"
	"github.com/Rayzi0417/om-card/internal/ports"
)

// DrawRequest is the application-level input (no HTTP types).
type DrawRequest struct {
	Provider   string
	DeckStyle  string
	ExcludeIDs []int
}

// DrawService composes a card and renders its image when the deck needs one.
type DrawService struct {
	deckStore ports.DeckStore
	providers ports.Providers
	words     domain.RNG
	imagery   domain.RNG
	newID     domain.IDGenerator
}

// NewDrawService takes separate word and imagery sources so the two halves of
// a card never share random state.
func NewDrawService(ds ports.DeckStore, providers ports.Providers, words, imagery domain.RNG, newID domain.IDGenerator) *DrawService {
	return &DrawService{
		deckStore: ds,
		providers: providers,
		words:     words,
		imagery:   imagery,
		newID:     newID,
	}
}

func (s *DrawService) Draw(ctx context.Context, req DrawRequest) (card domain.DrawnCard, err error) {
	style, err := domain.ParseDeckStyle(req.DeckStyle)
	if err != nil {
		return domain.DrawnCard{}, fmt.Errorf("%w: %q", err, req.DeckStyle)
	}
	defer func() { metrics.ObserveDraw(string(style), err) }()

	pool, err := s.deckStore.Pool(ctx)
	if err != nil {
		return domain.DrawnCard{}, fmt.Errorf("load pool: %w", err)
	}

	composer := domain.NewComposer(pool, s.words, s.imagery, s.newID)
	card, err = composer.ComposeCard(style, req.ExcludeIDs)
	if err != nil {
		return domain.DrawnCard{}, fmt.Errorf("compose card: %w", err)
	}
	if !style.Generative() {
		return card, nil
	}

	gen, err := s.providers.Image(req.Provider)
	if err != nil {
		return domain.DrawnCard{}, err
	}
	url, err := gen.Generate(ctx, card.ImagePrompt, card.NegativePrompt)
	if err != nil {
		return domain.DrawnCard{}, fmt.Errorf("%w: %w", domain.ErrImageGeneration, err)
	}
	card.ImageURL = url
	return card, nil
}
