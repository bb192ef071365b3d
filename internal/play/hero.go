package play

import (
	"fmt"
	"strings"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/facilitator"
)

type HeroStage string

const (
	HeroIntro      HeroStage = "intro"
	HeroPlaying    HeroStage = "playing"
	HeroGenerating HeroStage = "generating"
	HeroSummary    HeroStage = "summary"
	HeroReflection HeroStage = "reflection"
	HeroBlessing   HeroStage = "blessing"
)

// Hero is the hero's journey state. While playing, len(StoryLog) == Step-1.
// Messages holds the reflection transcript only.
type Hero struct {
	Stage     HeroStage
	Step      int
	StoryLog  []domain.StoryEntry
	UsedIDs   []int
	Card      *domain.DrawnCard
	Question  string
	Summary   string
	Messages  []domain.Message
	TurnCount int
	Blessing  string
}

func NewHero() *Hero {
	return &Hero{Stage: HeroIntro}
}

// Start begins a journey at step 1 with an empty log.
func (h *Hero) Start() error {
	if h.Stage != HeroIntro {
		return fmt.Errorf("%w: start in %s", ErrInvalidTransition, h.Stage)
	}
	*h = Hero{Stage: HeroPlaying, Step: 1}
	return nil
}

// SetCard installs the card drawn for the current step and marks it used.
func (h *Hero) SetCard(card domain.DrawnCard) error {
	if h.Stage != HeroPlaying || h.Card != nil {
		return fmt.Errorf("%w: card for step %d in %s", ErrInvalidTransition, h.Step, h.Stage)
	}
	h.Card = &card
	if card.DeckID > 0 {
		h.UsedIDs = append(h.UsedIDs, card.DeckID)
	}
	return nil
}

func (h *Hero) SetQuestion(q string) error {
	if h.Stage != HeroPlaying || h.Card == nil {
		return fmt.Errorf("%w: question in %s", ErrInvalidTransition, h.Stage)
	}
	h.Question = q
	return nil
}

// Answer records the current step and advances. After the last story step
// the journey moves to generating.
func (h *Hero) Answer(text string) error {
	if h.Stage != HeroPlaying || h.Card == nil {
		return fmt.Errorf("%w: answer in %s", ErrInvalidTransition, h.Stage)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyAnswer
	}
	h.StoryLog = append(h.StoryLog, domain.StoryEntry{
		Step:       h.Step,
		Card:       *h.Card,
		Question:   h.Question,
		UserAnswer: clip(text),
	})
	h.Step++
	h.Card = nil
	h.Question = ""
	if h.Step > facilitator.HeroStoryLength {
		h.Stage = HeroGenerating
	}
	return nil
}

// Skip records the silence sentinel for the current step.
func (h *Hero) Skip() error {
	return h.Answer(facilitator.SilenceAnswer)
}

// SetSummary always moves generating to summary.
func (h *Hero) SetSummary(text string) error {
	if h.Stage != HeroGenerating {
		return fmt.Errorf("%w: summary in %s", ErrInvalidTransition, h.Stage)
	}
	h.Summary = text
	h.Stage = HeroSummary
	return nil
}

// Talk opens the reflection dialogue.
func (h *Hero) Talk() error {
	if h.Stage != HeroSummary {
		return fmt.Errorf("%w: talk in %s", ErrInvalidTransition, h.Stage)
	}
	h.Stage = HeroReflection
	h.Messages = nil
	h.TurnCount = 0
	return nil
}

// SkipReflection goes from summary straight to the blessing.
func (h *Hero) SkipReflection() error {
	if h.Stage != HeroSummary {
		return fmt.Errorf("%w: skip reflection in %s", ErrInvalidTransition, h.Stage)
	}
	h.Stage = HeroBlessing
	return nil
}

func (h *Hero) Reflect(text string) error {
	if h.Stage != HeroReflection {
		return fmt.Errorf("%w: reflect in %s", ErrInvalidTransition, h.Stage)
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyAnswer
	}
	h.Messages = append(h.Messages, domain.Message{Role: domain.RoleUser, Content: clip(text)})
	h.TurnCount++
	return nil
}

func (h *Hero) AddAssistant(text string) error {
	if h.Stage != HeroReflection {
		return fmt.Errorf("%w: reply in %s", ErrInvalidTransition, h.Stage)
	}
	h.Messages = append(h.Messages, domain.Message{Role: domain.RoleAssistant, Content: text})
	return nil
}

// End closes the reflection dialogue.
func (h *Hero) End() error {
	if h.Stage != HeroReflection {
		return fmt.Errorf("%w: end in %s", ErrInvalidTransition, h.Stage)
	}
	h.Stage = HeroBlessing
	return nil
}

func (h *Hero) SetBlessing(text string) error {
	if h.Stage != HeroBlessing {
		return fmt.Errorf("%w: blessing in %s", ErrInvalidTransition, h.Stage)
	}
	h.Blessing = text
	return nil
}

// Restart returns to intro from any stage.
func (h *Hero) Restart() {
	*h = Hero{Stage: HeroIntro}
}
