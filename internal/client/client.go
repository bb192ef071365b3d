// Package client talks to the om-card HTTP API and implements play.Backend,
// so the terminal sessions run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	httpadapter "github.com/Rayzi0417/om-card/internal/adapters/http"
	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/play"
)

const readChunk = 4096

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status     int
	Message    string
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("api status %d: %s (retry after %ds)", e.Status, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Unwrap maps 429 to domain.ErrRateLimited.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return nil
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ play.Backend = (*Client)(nil)

func New(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Draw(ctx context.Context, req play.DrawRequest) (domain.DrawnCard, error) {
	resp, err := c.post(ctx, "/api/draw", httpadapter.DrawRequest{
		Provider:   req.Provider,
		DeckStyle:  string(req.DeckStyle),
		ExcludeIDs: req.ExcludeIDs,
	})
	if err != nil {
		return domain.DrawnCard{}, err
	}
	defer resp.Body.Close()

	var card httpadapter.CardResponse
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return domain.DrawnCard{}, fmt.Errorf("decode card: %w", err)
	}
	return domain.DrawnCard{
		CardID:         card.CardID,
		DeckID:         card.DeckID,
		Word:           domain.Word{EN: card.Word.EN, CN: card.Word.CN},
		ImageURL:       card.ImageURL,
		PromptKeywords: card.PromptKeywords,
		DeckStyle:      card.DeckStyle,
	}, nil
}

// Chat posts one facilitator turn and feeds the streamed reply to onChunk.
// Chunks never split a UTF-8 sequence.
func (c *Client) Chat(ctx context.Context, req play.ChatRequest, onChunk func(string) error) error {
	resp, err := c.post(ctx, "/api/chat", toChatDTO(req))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := make([]byte, readChunk)
	var pending []byte
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completePrefix(pending)
			if cut > 0 {
				if err := onChunk(string(pending[:cut])); err != nil {
					return err
				}
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read chat stream: %w", readErr)
		}
	}
	if len(pending) > 0 {
		return onChunk(string(pending))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http call: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var e httpadapter.ErrorResponse
	if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(raw, &e) == nil && e.Error != "" {
		apiErr.Message = e.Error
		apiErr.RetryAfter = e.RetryAfter
	}
	return nil, apiErr
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte rune.
func completePrefix(b []byte) int {
	for back := 1; back <= utf8.UTFMax && back <= len(b); back++ {
		i := len(b) - back
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

func toChatDTO(req play.ChatRequest) httpadapter.ChatRequest {
	msgs := make([]httpadapter.MessageDTO, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = httpadapter.MessageDTO{Role: string(m.Role), Content: m.Content}
	}
	var log []httpadapter.StoryEntryDTO
	for _, e := range req.StoryLog {
		log = append(log, httpadapter.StoryEntryDTO{Step: e.Step, Answer: e.UserAnswer})
	}
	var word *httpadapter.WordDTO
	if req.Word != nil {
		word = &httpadapter.WordDTO{EN: req.Word.EN, CN: req.Word.CN}
	}
	return httpadapter.ChatRequest{
		Messages:       msgs,
		Provider:       req.Provider,
		Mode:           string(req.Mode),
		Phase:          req.Phase,
		Step:           req.Step,
		Word:           word,
		PromptKeywords: req.PromptKeywords,
		ImageURL:       req.ImageURL,
		StoryLog:       log,
		TurnCount:      req.TurnCount,
	}
}
