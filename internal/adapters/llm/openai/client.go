package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/metrics"
	"github.com/Rayzi0417/om-card/internal/ports"
)

// Provider is the registry name of this adapter.
const Provider = "doubao"

// Ark defaults. 1920x1920 is the smallest size the Seedream model accepts.
const (
	DefaultBaseURL    = "https://ark.cn-beijing.volces.com/api/v3"
	DefaultChatModel  = "doubao-seed-1-8-251228"
	DefaultImageModel = "doubao-seedream-4-5-251128"
	DefaultImageSize  = "1920x1920"
)

// Config configures the Ark (OpenAI-compatible) endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	ImageSize  string
	HTTPClient *http.Client
}

// Client implements ports.TextGenerator and ports.ImageGenerator for Doubao.
type Client struct {
	client     *openaigo.Client
	chatModel  string
	imageModel string
	imageSize  string
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	oc := openaigo.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Client{
		client:     openaigo.NewClientWithConfig(oc),
		chatModel:  orDefault(cfg.ChatModel, DefaultChatModel),
		imageModel: orDefault(cfg.ImageModel, DefaultImageModel),
		imageSize:  orDefault(cfg.ImageSize, DefaultImageSize),
		logger:     logger,
	}
}

func (c *Client) Stream(ctx context.Context, req ports.GenerateRequest, onChunk func(string) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindText, start, err) }()

	stream, err := c.client.CreateChatCompletionStream(ctx, openaigo.ChatCompletionRequest{
		Model:         c.chatModel,
		Messages:      toMessages(req),
		Stream:        true,
		StreamOptions: &openaigo.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	completion := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		if resp.Usage != nil && resp.Usage.CompletionTokens > 0 {
			completion = resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		reply.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return err
		}
	}

	if completion > 0 {
		metrics.ObserveCompletionTokens(Provider, completion, false)
	} else if n, ok := estimateTokens(reply.String()); ok {
		c.logger.DebugContext(ctx, "stream ended without usage, estimating tokens", "model", c.chatModel, "tokens", n)
		metrics.ObserveCompletionTokens(Provider, n, true)
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindText, start, err) }()

	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: toMessages(req),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}
	metrics.ObserveCompletionTokens(Provider, resp.Usage.CompletionTokens, false)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateImage renders a card image. The Ark endpoint has no negative prompt
// field, so the exclusions are appended to the prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt, negativePrompt string) (url string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindImage, start, err) }()

	resp, err := c.client.CreateImage(ctx, openaigo.ImageRequest{
		Model:          c.imageModel,
		Prompt:         FoldNegativePrompt(prompt, negativePrompt),
		Size:           c.imageSize,
		N:              1,
		ResponseFormat: openaigo.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "doubao image generation failed", "model", c.imageModel, "error", err)
		return "", fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("no image in response")
	}
	switch img := resp.Data[0]; {
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	case img.URL != "":
		return img.URL, nil
	default:
		return "", errors.New("no image in response")
	}
}

// Images adapts the client to ports.ImageGenerator.
func (c *Client) Images() ports.ImageGenerator { return imageGenerator{c} }

type imageGenerator struct{ c *Client }

func (g imageGenerator) Generate(ctx context.Context, prompt, negativePrompt string) (string, error) {
	return g.c.GenerateImage(ctx, prompt, negativePrompt)
}

// FoldNegativePrompt appends negativePrompt as an exclusion clause.
func FoldNegativePrompt(prompt, negativePrompt string) string {
	if negativePrompt == "" {
		return prompt
	}
	return prompt + " DO NOT include: " + negativePrompt
}

// toMessages prepends the system prompt and attaches the vision image to the
// last user turn.
func toMessages(req ports.GenerateRequest) []openaigo.ChatCompletionMessage {
	out := make([]openaigo.ChatCompletionMessage, 0, len(req.Messages)+1)
	out = append(out, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleSystem, Content: req.SystemPrompt})

	lastUser := -1
	for i, m := range req.Messages {
		if m.Role == domain.RoleUser {
			lastUser = i
		}
	}

	for i, m := range req.Messages {
		role := openaigo.ChatMessageRoleUser
		if m.Role == domain.RoleAssistant {
			role = openaigo.ChatMessageRoleAssistant
		}
		if i == lastUser && req.Image != nil {
			out = append(out, openaigo.ChatCompletionMessage{
				Role: role,
				MultiContent: []openaigo.ChatMessagePart{
					{Type: openaigo.ChatMessagePartTypeText, Text: m.Content},
					{Type: openaigo.ChatMessagePartTypeImageURL, ImageURL: &openaigo.ChatMessageImageURL{
						URL:    dataURL(req.Image),
						Detail: openaigo.ImageURLDetailAuto,
					}},
				},
			})
			continue
		}
		out = append(out, openaigo.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func dataURL(img *ports.VisionImage) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
