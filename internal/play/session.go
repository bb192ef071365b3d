package play

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/facilitator"
)

const (
	DefaultSwapDelay = 1200 * time.Millisecond
	DefaultDrawPause = 300 * time.Millisecond
)

// NoticeDrawFailed is shown when a single draw fails.
const NoticeDrawFailed = "抽卡失败，请重试"

// Config tunes the session drivers. Zero delays mean no waiting.
type Config struct {
	Provider string
	// DeckStyle is the AI deck used by single and flip sessions.
	DeckStyle domain.DeckStyle
	Detector  facilitator.SignalDetector
	Logger    *slog.Logger
	SwapDelay time.Duration
	DrawPause time.Duration
}

// DefaultConfig mirrors the interactive pacing of the web client.
func DefaultConfig() Config {
	return Config{
		DeckStyle: domain.StyleFigurative,
		SwapDelay: DefaultSwapDelay,
		DrawPause: DefaultDrawPause,
	}
}

type session struct {
	backend  Backend
	composer *domain.Composer
	cfg      Config
	logger   *slog.Logger
	detector facilitator.SignalDetector
}

func newSession(backend Backend, composer *domain.Composer, cfg Config) session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	detector := cfg.Detector
	if detector == nil {
		detector = facilitator.NewKeywordDetector(nil)
	}
	if cfg.DeckStyle == "" {
		cfg.DeckStyle = domain.StyleFigurative
	}
	return session{backend: backend, composer: composer, cfg: cfg, logger: logger, detector: detector}
}

// chat collects a streamed reply, forwarding chunks to onChunk.
func (s *session) chat(ctx context.Context, req ChatRequest, onChunk func(string)) (string, error) {
	req.Provider = s.cfg.Provider
	req.Messages = slices.Clone(req.Messages)

	var sb strings.Builder
	err := s.backend.Chat(ctx, req, func(chunk string) error {
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

// chatOrFallback never fails: a failed turn degrades to the fallback text.
func (s *session) chatOrFallback(ctx context.Context, req ChatRequest, fallback string, onChunk func(string)) string {
	reply, err := s.chat(ctx, req, onChunk)
	if err != nil {
		s.logger.WarnContext(ctx, "chat failed, using fallback",
			"mode", req.Mode, "phase", req.Phase, "step", req.Step, "error", err)
		return fallback
	}
	return reply
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SingleSession drives a single-draw round.
type SingleSession struct {
	session
	state *Single
}

func NewSingleSession(backend Backend, cfg Config) *SingleSession {
	return &SingleSession{session: newSession(backend, nil, cfg), state: NewSingle()}
}

func (s *SingleSession) State() *Single { return s.state }

// Draw fetches a new card, replacing the current one.
func (s *SingleSession) Draw(ctx context.Context) error {
	if err := s.state.BeginDraw(); err != nil {
		return err
	}
	card, err := s.backend.Draw(ctx, DrawRequest{Provider: s.cfg.Provider, DeckStyle: s.cfg.DeckStyle})
	if err != nil {
		s.logger.ErrorContext(ctx, "draw failed", "style", s.cfg.DeckStyle, "error", err)
		_ = s.state.DrawFailed(NoticeDrawFailed)
		return fmt.Errorf("draw: %w", err)
	}
	return s.state.DrawSucceeded(card)
}

// Send adds a user turn and returns the facilitator's reply.
func (s *SingleSession) Send(ctx context.Context, text string, onChunk func(string)) (string, error) {
	if err := s.state.AddUser(strings.TrimSpace(text)); err != nil {
		return "", err
	}
	card := s.state.Card
	word := card.Word
	reply := s.chatOrFallback(ctx, ChatRequest{
		Messages:       s.state.Messages,
		Mode:           domain.ModeSingle,
		Word:           &word,
		PromptKeywords: card.PromptKeywords,
		TurnCount:      s.state.TurnCount,
	}, facilitator.FallbackSingleReply, onChunk)
	return reply, s.state.AddAssistant(reply)
}

// FlipSession drives a paradox flip round.
type FlipSession struct {
	session
	state    *Flip
	swapMark int
}

func NewFlipSession(backend Backend, composer *domain.Composer, cfg Config) *FlipSession {
	return &FlipSession{session: newSession(backend, composer, cfg), state: NewFlip()}
}

func (s *FlipSession) State() *Flip { return s.state }

// Start loads candidates from source. When fewer than two cards can be
// obtained the round returns to init with a notice.
func (s *FlipSession) Start(ctx context.Context, source Source) error {
	if err := s.state.Choose(source); err != nil {
		return err
	}
	s.swapMark = 0

	var cards []domain.DrawnCard
	var err error
	switch source {
	case SourceClassic:
		cards, err = s.composer.ComposeCards(ClassicCandidates, domain.StyleClassic)
	case SourceLegacy:
		cards, err = s.composer.ComposeCards(pairSize, domain.StyleClassic)
	case SourceAI:
		cards = s.drawAI(ctx)
	}
	if err != nil || len(cards) < pairSize {
		s.logger.WarnContext(ctx, "flip candidates unavailable", "source", source, "cards", len(cards), "error", err)
		_ = s.state.LoadFailed(facilitator.NoticeCardGenerationRetry)
		return ErrNoCards
	}
	return s.state.CandidatesReady(cards)
}

// drawAI requests the AI candidates one after another with a short pause.
func (s *FlipSession) drawAI(ctx context.Context) []domain.DrawnCard {
	cards := make([]domain.DrawnCard, 0, AICandidates)
	for i := range AICandidates {
		card, err := s.backend.Draw(ctx, DrawRequest{Provider: s.cfg.Provider, DeckStyle: s.cfg.DeckStyle})
		if err != nil {
			s.logger.WarnContext(ctx, "flip card generation failed", "attempt", i+1, "error", err)
		} else {
			cards = append(cards, card)
		}
		if i < AICandidates-1 {
			if err := sleep(ctx, s.cfg.DrawPause); err != nil {
				break
			}
		}
	}
	return cards
}

// Begin confirms the zone assignment and lets the facilitator open.
func (s *FlipSession) Begin(ctx context.Context, onChunk func(string)) (string, error) {
	if err := s.state.Confirm(); err != nil {
		return "", err
	}
	return s.open(ctx, onChunk)
}

func (s *FlipSession) open(ctx context.Context, onChunk func(string)) (string, error) {
	phase := s.state.Phase()
	reply := s.chatOrFallback(ctx, ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: facilitator.CueFlipReady}},
		Mode:     domain.ModeFlip,
		Phase:    phase,
	}, facilitator.FlipFallback(phase), onChunk)
	return reply, s.state.AddAssistant(reply)
}

func (s *FlipSession) Send(ctx context.Context, text string, onChunk func(string)) (string, error) {
	if err := s.state.AddUser(strings.TrimSpace(text)); err != nil {
		return "", err
	}
	phase := s.state.Phase()
	reply := s.chatOrFallback(ctx, ChatRequest{
		Messages: s.state.Messages,
		Mode:     domain.ModeFlip,
		Phase:    phase,
	}, facilitator.FlipFallback(phase), onChunk)
	return reply, s.state.AddAssistant(reply)
}

// SwapOffered reports whether the facilitator has suggested the swap.
func (s *FlipSession) SwapOffered() bool {
	return s.state.Stage == FlipInitial && s.detector.Detect(facilitator.SignalSwap, s.state.Messages)
}

// IntegrationOffered reports whether the facilitator has suggested
// integration since the swap.
func (s *FlipSession) IntegrationOffered() bool {
	if s.state.Stage != FlipSwapped {
		return false
	}
	return s.detector.Detect(facilitator.SignalIntegration, s.state.Messages[s.swapMark:])
}

// Swap exchanges the cards after the swap animation delay and opens the
// second exploration. Without force it requires a swap suggestion.
func (s *FlipSession) Swap(ctx context.Context, force bool, onChunk func(string)) (string, error) {
	if !force && !s.SwapOffered() {
		return "", fmt.Errorf("%w: swap not offered yet", ErrInvalidTransition)
	}
	if err := s.state.BeginSwap(); err != nil {
		return "", err
	}
	// The swap completes even when the wait is cut short.
	_ = sleep(ctx, s.cfg.SwapDelay)
	if err := s.state.CompleteSwap(); err != nil {
		return "", err
	}
	s.swapMark = len(s.state.Messages)
	return s.open(ctx, onChunk)
}

// Conclude moves to the integration closing. Without force it requires an
// integration suggestion.
func (s *FlipSession) Conclude(ctx context.Context, force bool, onChunk func(string)) (string, error) {
	if !force && !s.IntegrationOffered() {
		return "", fmt.Errorf("%w: integration not offered yet", ErrInvalidTransition)
	}
	if err := s.state.Conclude(); err != nil {
		return "", err
	}
	return s.open(ctx, onChunk)
}

func (s *FlipSession) Restart() {
	s.state.Restart()
	s.swapMark = 0
}

// HeroSession drives a hero's journey.
type HeroSession struct {
	session
	state *Hero
}

func NewHeroSession(backend Backend, composer *domain.Composer, cfg Config) *HeroSession {
	return &HeroSession{session: newSession(backend, composer, cfg), state: NewHero()}
}

func (s *HeroSession) State() *Hero { return s.state }

// Start begins the journey and prepares step 1.
func (s *HeroSession) Start(ctx context.Context, onChunk func(string)) error {
	if err := s.state.Start(); err != nil {
		return err
	}
	return s.prepareStep(ctx, onChunk)
}

// prepareStep draws an unused saga card and asks the step question.
func (s *HeroSession) prepareStep(ctx context.Context, onChunk func(string)) error {
	card, err := s.composer.ComposeCard(domain.StyleSaga, s.state.UsedIDs)
	if err != nil {
		return fmt.Errorf("draw saga card: %w", err)
	}
	if err := s.state.SetCard(card); err != nil {
		return err
	}
	step := s.state.Step
	question := s.chatOrFallback(ctx, ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: facilitator.CueHeroQuestion}},
		Mode:     domain.ModeHero,
		Step:     step,
		ImageURL: card.ImageURL,
		StoryLog: s.state.StoryLog,
	}, facilitator.HeroQuestionFallback(step), onChunk)
	return s.state.SetQuestion(question)
}

// Answer records the answer and moves on: to the next step, or to the
// synthesised biography after the last one.
func (s *HeroSession) Answer(ctx context.Context, text string, onChunk func(string)) error {
	if err := s.state.Answer(text); err != nil {
		return err
	}
	return s.advance(ctx, onChunk)
}

// Skip answers the current step with silence.
func (s *HeroSession) Skip(ctx context.Context, onChunk func(string)) error {
	if err := s.state.Skip(); err != nil {
		return err
	}
	return s.advance(ctx, onChunk)
}

func (s *HeroSession) advance(ctx context.Context, onChunk func(string)) error {
	if s.state.Stage == HeroPlaying {
		return s.prepareStep(ctx, onChunk)
	}
	summary := s.chatOrFallback(ctx, ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: facilitator.CueHeroSynthesis}},
		Mode:     domain.ModeHero,
		Step:     facilitator.StepSynthesis,
		StoryLog: s.state.StoryLog,
	}, facilitator.FallbackSummary, onChunk)
	return s.state.SetSummary(summary)
}

// Talk opens the reflection dialogue with a facilitator question.
func (s *HeroSession) Talk(ctx context.Context, onChunk func(string)) (string, error) {
	if err := s.state.Talk(); err != nil {
		return "", err
	}
	opener := s.chatOrFallback(ctx, ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: facilitator.CueHeroReflection}},
		Mode:     domain.ModeHero,
		Step:     facilitator.StepReflection,
		StoryLog: s.state.StoryLog,
	}, facilitator.FallbackReflectionOpener, onChunk)
	return opener, s.state.AddAssistant(opener)
}

func (s *HeroSession) Reflect(ctx context.Context, text string, onChunk func(string)) (string, error) {
	if err := s.state.Reflect(text); err != nil {
		return "", err
	}
	reply := s.chatOrFallback(ctx, ChatRequest{
		Messages:  s.state.Messages,
		Mode:      domain.ModeHero,
		Step:      facilitator.StepReflection,
		StoryLog:  s.state.StoryLog,
		TurnCount: s.state.TurnCount,
	}, facilitator.FallbackReflectionReply, onChunk)
	return reply, s.state.AddAssistant(reply)
}

// End closes the reflection and returns the blessing.
func (s *HeroSession) End(ctx context.Context, onChunk func(string)) (string, error) {
	if err := s.state.End(); err != nil {
		return "", err
	}
	return s.bless(ctx, onChunk)
}

// SkipReflection goes from the summary straight to the blessing.
func (s *HeroSession) SkipReflection(ctx context.Context, onChunk func(string)) (string, error) {
	if err := s.state.SkipReflection(); err != nil {
		return "", err
	}
	return s.bless(ctx, onChunk)
}

func (s *HeroSession) bless(ctx context.Context, onChunk func(string)) (string, error) {
	blessing := s.chatOrFallback(ctx, ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: facilitator.CueHeroBlessing}},
		Mode:     domain.ModeHero,
		Step:     facilitator.StepBlessing,
		StoryLog: s.state.StoryLog,
	}, facilitator.FallbackBlessing, onChunk)
	return blessing, s.state.SetBlessing(blessing)
}

func (s *HeroSession) Restart() { s.state.Restart() }
