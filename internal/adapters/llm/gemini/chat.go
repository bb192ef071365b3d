package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/metrics"
	"github.com/Rayzi0417/om-card/internal/ports"
)

// Provider is the registry name of this adapter.
const Provider = "google"

const DefaultChatModel = "gemini-2.0-flash"

const (
	roleUser  = "user"
	roleModel = "model"
)

// openingTurn stands in for the user when a transcript starts with the
// facilitator, since Gemini requires the first turn to be the user's.
const openingTurn = "（开始）"

// ChatClient implements ports.TextGenerator with the Gemini SDK.
type ChatClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewChatClient(ctx context.Context, apiKey, model string, logger *slog.Logger, opts ...option.ClientOption) (*ChatClient, error) {
	if model == "" {
		model = DefaultChatModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &ChatClient{client: client, model: model, logger: logger}, nil
}

func (c *ChatClient) Close() error {
	return c.client.Close()
}

func (c *ChatClient) session(req ports.GenerateRequest) (*genai.ChatSession, []genai.Part) {
	m := c.client.GenerativeModel(c.model)
	m.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))

	contents := toContents(req.Messages, req.Image)
	last := contents[len(contents)-1]

	cs := m.StartChat()
	cs.History = contents[:len(contents)-1]
	return cs, last.Parts
}

func (c *ChatClient) Stream(ctx context.Context, req ports.GenerateRequest, onChunk func(string) error) (err error) {
	if len(req.Messages) == 0 {
		return domain.ErrEmptyMessages
	}
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindText, start, err) }()

	cs, parts := c.session(req)
	iter := cs.SendMessageStream(ctx, parts...)
	completion := 0
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		if resp.UsageMetadata != nil {
			completion = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		if text := responseText(resp); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
	metrics.ObserveCompletionTokens(Provider, completion, false)
	return nil
}

func (c *ChatClient) Generate(ctx context.Context, req ports.GenerateRequest) (text string, err error) {
	if len(req.Messages) == 0 {
		return "", domain.ErrEmptyMessages
	}
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindText, start, err) }()

	cs, parts := c.session(req)
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text = strings.TrimSpace(responseText(resp))
	if text == "" {
		c.logger.WarnContext(ctx, "gemini returned no text", "model", c.model)
		return "", errors.New("empty completion")
	}
	return text, nil
}

// toContents maps the transcript to Gemini turns. Consecutive messages of the
// same role are merged, a leading model turn gets a user opener, and the
// image is attached to the last user turn. The result is never empty.
func toContents(msgs []domain.Message, image *ports.VisionImage) []*genai.Content {
	lastUser := -1
	for i, m := range msgs {
		if m.Role == domain.RoleUser {
			lastUser = i
		}
	}

	var out []*genai.Content
	for i, m := range msgs {
		role := roleUser
		if m.Role == domain.RoleAssistant {
			role = roleModel
		}
		if len(out) == 0 && role == roleModel {
			out = append(out, &genai.Content{Role: roleUser, Parts: []genai.Part{genai.Text(openingTurn)}})
		}

		var parts []genai.Part
		parts = append(parts, genai.Text(m.Content))
		if i == lastUser && image != nil {
			parts = append(parts, genai.Blob{MIMEType: image.MIMEType, Data: image.Data})
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	if len(out) == 0 {
		out = append(out, &genai.Content{Role: roleUser, Parts: []genai.Part{genai.Text(openingTurn)}})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
