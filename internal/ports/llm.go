package ports

import (
	"context"

	"github.com/Rayzi0417/om-card/internal/domain"
)

// VisionImage is an image attached to the last user turn.
type VisionImage struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest holds everything a text model needs for one facilitator turn.
type GenerateRequest struct {
	SystemPrompt string
	Messages     []domain.Message
	Image        *VisionImage
}

// TextGenerator produces facilitator replies.
type TextGenerator interface {
	// Stream calls onChunk for every text fragment in order. An error from
	// onChunk stops the stream and is returned.
	Stream(ctx context.Context, req GenerateRequest, onChunk func(string) error) error
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ImageGenerator renders a card image and returns a URL the browser can load
// (either remote or a data: URL).
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, negativePrompt string) (string, error)
}

// Providers resolves the provider named in a request. An empty name selects
// the configured default.
type Providers interface {
	Text(name string) (TextGenerator, error)
	Image(name string) (ImageGenerator, error)
}
