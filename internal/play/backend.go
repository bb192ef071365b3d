package play

import (
	"context"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// DrawRequest asks the service for one card.
type DrawRequest struct {
	Provider   string
	DeckStyle  domain.DeckStyle
	ExcludeIDs []int
}

// ChatRequest carries a facilitator turn. The server is stateless, so mode,
// phase, step, story log and turn count travel with every request.
type ChatRequest struct {
	Messages       []domain.Message
	Provider       string
	Mode           domain.GameMode
	Phase          string
	Step           int
	Word           *domain.Word
	PromptKeywords []string
	ImageURL       string
	StoryLog       []domain.StoryEntry
	TurnCount      int
}

// Backend performs the side effects the machines need.
type Backend interface {
	Draw(ctx context.Context, req DrawRequest) (domain.DrawnCard, error)
	// Chat streams the reply; onChunk is called for every text chunk in order.
	Chat(ctx context.Context, req ChatRequest, onChunk func(string) error) error
}
