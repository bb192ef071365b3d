package decks

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Rayzi0417/om-card/internal/domain"
)

//go:embed data/*.json
var deckFS embed.FS

const (
	wordsFile   = "data/words.json"
	imageryFile = "data/imagery.json"
)

// imageryFileContent mirrors data/imagery.json.
type imageryFileContent struct {
	Abstract    domain.ImagerySet `json:"abstract"`
	Figurative  domain.ImagerySet `json:"figurative"`
	ClassicSize int               `json:"classicSize"`
	SagaSize    int               `json:"sagaSize"`
}

// EmbeddedStore loads the card reference data from embedded JSON files.
type EmbeddedStore struct {
	once sync.Once
	pool *domain.Pool
	err  error
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	raw, err := deckFS.ReadFile(wordsFile)
	if err != nil {
		s.err = fmt.Errorf("read embedded words: %w", err)
		return
	}
	var words []domain.WordEntry
	if err := json.Unmarshal(raw, &words); err != nil {
		s.err = fmt.Errorf("parse embedded words: %w", err)
		return
	}

	raw, err = deckFS.ReadFile(imageryFile)
	if err != nil {
		s.err = fmt.Errorf("read embedded imagery: %w", err)
		return
	}
	var imagery imageryFileContent
	if err := json.Unmarshal(raw, &imagery); err != nil {
		s.err = fmt.Errorf("parse embedded imagery: %w", err)
		return
	}

	s.pool, s.err = domain.NewPool(words, map[domain.DeckStyle]domain.ImagerySet{
		domain.StyleAbstract:   imagery.Abstract,
		domain.StyleFigurative: imagery.Figurative,
	}, imagery.ClassicSize, imagery.SagaSize)
	if s.err != nil {
		s.err = fmt.Errorf("build pool: %w", s.err)
	}
}

// Pool returns the shared reference data, loading it on first use.
func (s *EmbeddedStore) Pool(_ context.Context) (*domain.Pool, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	return s.pool, nil
}
