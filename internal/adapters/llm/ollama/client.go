package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/metrics"
	"github.com/Rayzi0417/om-card/internal/ports"
)

// Provider is the registry name of this adapter.
const Provider = "ollama"

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "qwen2.5:7b"
)

// Client implements ports.TextGenerator against a local Ollama server.
// It has no image capability.
type Client struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

func NewClient(httpClient *http.Client, baseURL, model string, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	// api.NewClient wants the bare host, without the OpenAI-compatible /v1 suffix.
	base := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base URL %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{client: api.NewClient(u, httpClient), model: model, logger: logger}, nil
}

func (c *Client) Stream(ctx context.Context, req ports.GenerateRequest, onChunk func(string) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindText, start, err) }()

	stream := true
	evalCount := 0
	err = c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: toMessages(req),
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			if err := onChunk(resp.Message.Content); err != nil {
				return err
			}
		}
		if resp.Done {
			evalCount = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama chat: %w", err)
	}
	metrics.ObserveCompletionTokens(Provider, evalCount, false)
	return nil
}

func (c *Client) Generate(ctx context.Context, req ports.GenerateRequest) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(Provider, metrics.KindText, start, err) }()

	stream := false
	var final api.ChatResponse
	err = c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: toMessages(req),
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.WarnContext(ctx, "ollama timed out", "model", c.model, "elapsed", time.Since(start))
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	text = strings.TrimSpace(final.Message.Content)
	if text == "" {
		return "", errors.New("empty completion")
	}
	metrics.ObserveCompletionTokens(Provider, final.EvalCount, false)
	return text, nil
}

func toMessages(req ports.GenerateRequest) []api.Message {
	out := make([]api.Message, 0, len(req.Messages)+1)
	out = append(out, api.Message{Role: "system", Content: req.SystemPrompt})

	lastUser := -1
	for i, m := range req.Messages {
		if m.Role == domain.RoleUser {
			lastUser = i
		}
	}
	for i, m := range req.Messages {
		msg := api.Message{Role: string(m.Role), Content: m.Content}
		if i == lastUser && req.Image != nil {
			msg.Images = []api.ImageData{req.Image.Data}
		}
		out = append(out, msg)
	}
	return out
}
