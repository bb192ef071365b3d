package http

import (
	"github.com/Rayzi0417/om-card/internal/app"
	"github.com/Rayzi0417/om-card/internal/domain"
)

// DrawRequest is the JSON body of POST /api/draw. Every field is optional.
type DrawRequest struct {
	Provider   string `json:"provider" validate:"max=32"`
	DeckStyle  string `json:"deckStyle" validate:"omitempty,oneof=abstract figurative classic saga"`
	ExcludeIDs []int  `json:"excludeIds" validate:"max=100,dive,min=1"`
}

// CardResponse is the JSON shape returned by POST /api/draw.
type CardResponse struct {
	CardID         string           `json:"cardId"`
	DeckID         int              `json:"deckId,omitempty"`
	Word           WordDTO          `json:"word"`
	ImageURL       string           `json:"imageUrl"`
	PromptKeywords []string         `json:"promptKeywords"`
	DeckStyle      domain.DeckStyle `json:"deckStyle"`
}

type WordDTO struct {
	EN string `json:"en" validate:"max=64"`
	CN string `json:"cn" validate:"max=64"`
}

type MessageDTO struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content" validate:"max=4000"`
}

type StoryEntryDTO struct {
	Step   int    `json:"step" validate:"min=1,max=10"`
	Answer string `json:"answer" validate:"max=2000"`
}

// ChatRequest is the JSON body of POST /api/chat. Mode state travels with
// every request since the server keeps none.
type ChatRequest struct {
	Messages       []MessageDTO    `json:"messages" validate:"max=200,dive"`
	Provider       string          `json:"provider" validate:"max=32"`
	Mode           string          `json:"mode" validate:"omitempty,oneof=single flip hero"`
	Phase          string          `json:"phase" validate:"max=32"`
	Step           int             `json:"step" validate:"min=0,max=13"`
	Word           *WordDTO        `json:"word"`
	PromptKeywords []string        `json:"promptKeywords" validate:"max=10,dive,max=200"`
	ImageURL       string          `json:"imageUrl"`
	StoryLog       []StoryEntryDTO `json:"storyLog" validate:"max=10,dive"`
	TurnCount      int             `json:"turnCount" validate:"min=0"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func toCardResponse(c domain.DrawnCard) CardResponse {
	keywords := c.PromptKeywords
	if keywords == nil {
		keywords = []string{}
	}
	return CardResponse{
		CardID:         c.CardID,
		DeckID:         c.DeckID,
		Word:           WordDTO{EN: c.Word.EN, CN: c.Word.CN},
		ImageURL:       c.ImageURL,
		PromptKeywords: keywords,
		DeckStyle:      c.DeckStyle,
	}
}

func (r ChatRequest) toApp() app.ChatRequest {
	msgs := make([]domain.Message, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = domain.Message{Role: domain.Role(m.Role), Content: m.Content}
	}
	log := make([]domain.StoryEntry, len(r.StoryLog))
	for i, e := range r.StoryLog {
		log[i] = domain.StoryEntry{Step: e.Step, UserAnswer: e.Answer}
	}
	var word *domain.Word
	if r.Word != nil {
		word = &domain.Word{EN: r.Word.EN, CN: r.Word.CN}
	}
	return app.ChatRequest{
		Messages:       msgs,
		Provider:       r.Provider,
		Mode:           r.Mode,
		Phase:          r.Phase,
		Step:           r.Step,
		Word:           word,
		PromptKeywords: r.PromptKeywords,
		ImageURL:       r.ImageURL,
		StoryLog:       log,
		TurnCount:      r.TurnCount,
	}
}
