package ports

import (
	"context"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// DeckStore provides the word, imagery and deck reference data.
type DeckStore interface {
	Pool(ctx context.Context) (*domain.Pool, error)
}
