package play

import (
	"fmt"

	"github.com/Rayzi0417/om-card/internal/domain"
)

type SingleStage string

const (
	SingleIdle    SingleStage = "idle"
	SingleDrawing SingleStage = "drawing"
	SingleDrawn   SingleStage = "drawn"
	SingleError   SingleStage = "error"
)

// Single is the single-draw state: one card and the conversation about it.
type Single struct {
	Stage     SingleStage
	Card      *domain.DrawnCard
	Messages  []domain.Message
	TurnCount int
	Err       string
}

func NewSingle() *Single {
	return &Single{Stage: SingleIdle}
}

// BeginDraw starts a draw. Redrawing discards the previous card and transcript.
func (s *Single) BeginDraw() error {
	switch s.Stage {
	case SingleIdle, SingleDrawn, SingleError:
	default:
		return fmt.Errorf("%w: draw from %s", ErrInvalidTransition, s.Stage)
	}
	s.Stage = SingleDrawing
	s.Card = nil
	s.Messages = nil
	s.TurnCount = 0
	s.Err = ""
	return nil
}

func (s *Single) DrawSucceeded(card domain.DrawnCard) error {
	if s.Stage != SingleDrawing {
		return fmt.Errorf("%w: card ready in %s", ErrInvalidTransition, s.Stage)
	}
	s.Stage = SingleDrawn
	s.Card = &card
	return nil
}

func (s *Single) DrawFailed(reason string) error {
	if s.Stage != SingleDrawing {
		return fmt.Errorf("%w: draw failed in %s", ErrInvalidTransition, s.Stage)
	}
	s.Stage = SingleError
	s.Err = reason
	return nil
}

// AddUser appends a user turn and counts it.
func (s *Single) AddUser(text string) error {
	if s.Stage != SingleDrawn {
		return fmt.Errorf("%w: talk in %s", ErrInvalidTransition, s.Stage)
	}
	if text == "" {
		return ErrEmptyAnswer
	}
	s.Messages = append(s.Messages, domain.Message{Role: domain.RoleUser, Content: clip(text)})
	s.TurnCount++
	return nil
}

func (s *Single) AddAssistant(text string) error {
	if s.Stage != SingleDrawn {
		return fmt.Errorf("%w: reply in %s", ErrInvalidTransition, s.Stage)
	}
	s.Messages = append(s.Messages, domain.Message{Role: domain.RoleAssistant, Content: text})
	return nil
}
