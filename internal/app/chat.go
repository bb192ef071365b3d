package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/facilitator"
	"github.com/Rayzi0417/om-card/internal/metrics"
	"github.com/Rayzi0417/om-card/internal/ports"
)

// ChatRequest is one facilitator turn. The server keeps no session, so the
// client sends the whole transcript and its mode state every time.
type ChatRequest struct {
	Messages       []domain.Message
	Provider       string
	Mode           string
	Phase          string
	Step           int
	Word           *domain.Word
	PromptKeywords []string
	ImageURL       string
	StoryLog       []domain.StoryEntry
	TurnCount      int
}

// ChatService builds the facilitator prompt and streams the model's reply.
type ChatService struct {
	providers ports.Providers
	builder   *facilitator.Builder
	images    *ImageResolver
	logger    *slog.Logger
}

func NewChatService(providers ports.Providers, builder *facilitator.Builder, images *ImageResolver, logger *slog.Logger) *ChatService {
	if builder == nil {
		builder = facilitator.NewBuilder(nil)
	}
	return &ChatService{
		providers: providers,
		builder:   builder,
		images:    images,
		logger:    logger,
	}
}

// Stream validates the request and calls onChunk for each reply fragment.
// Errors returned before the first chunk leave the response untouched.
func (s *ChatService) Stream(ctx context.Context, req ChatRequest, onChunk func(string) error) (err error) {
	if len(req.Messages) == 0 {
		return domain.ErrEmptyMessages
	}
	mode, err := domain.ParseGameMode(req.Mode)
	if err != nil {
		return fmt.Errorf("%w: %q", err, req.Mode)
	}
	defer func() { metrics.ObserveChat(string(mode), err) }()

	gen, err := s.providers.Text(req.Provider)
	if err != nil {
		return err
	}

	image := s.resolveImage(ctx, req.ImageURL)
	prompt := s.builder.Build(facilitator.PromptInput{
		Mode:      mode,
		Phase:     req.Phase,
		Step:      req.Step,
		TurnCount: req.TurnCount,
		StoryLog:  req.StoryLog,
		Word:      req.Word,
		Keywords:  req.PromptKeywords,
		Messages:  req.Messages,
		HasImage:  image != nil,
	})

	genReq := ports.GenerateRequest{
		SystemPrompt: prompt,
		Messages:     req.Messages,
		Image:        image,
	}
	if mode == domain.ModeHero && req.Step == facilitator.StepSynthesis {
		return s.generateOnce(ctx, gen, genReq, onChunk)
	}
	if err := gen.Stream(ctx, genReq, onChunk); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)
	}
	return nil
}

// generateOnce runs a one-shot generation and hands the whole reply to
// onChunk. The hero biography is shown as a single piece.
func (s *ChatService) generateOnce(ctx context.Context, gen ports.TextGenerator, req ports.GenerateRequest, onChunk func(string) error) error {
	text, err := gen.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)
	}
	if text == "" {
		return nil
	}
	return onChunk(text)
}

// resolveImage loads the card image for vision models. A card that cannot be
// loaded only degrades the turn to text.
func (s *ChatService) resolveImage(ctx context.Context, ref string) *ports.VisionImage {
	if ref == "" || s.images == nil {
		return nil
	}
	img, err := s.images.Resolve(ctx, ref)
	if err != nil {
		s.logger.WarnContext(ctx, "card image unavailable, continuing without it", "error", err)
		return nil
	}
	return img
}
