package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Rayzi0417/om-card/internal/ports"
)

// MaxVisionImageBytes caps the size of a card image sent to a vision model.
const MaxVisionImageBytes = 8 << 20

var errImageTooLarge = errors.New("card image too large")

var errRemoteImage = errors.New("remote image URLs are not accepted")

// ImageResolver turns the imageUrl of a chat request into image bytes.
// It accepts data: URLs and site-relative paths served from assetDir. The
// server never fetches a client-supplied URL.
type ImageResolver struct {
	assetDir string
}

func NewImageResolver(assetDir string) *ImageResolver {
	return &ImageResolver{assetDir: assetDir}
}

func (r *ImageResolver) Resolve(_ context.Context, ref string) (*ports.VisionImage, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	case strings.HasPrefix(ref, "//"), strings.Contains(ref, "://"):
		return nil, fmt.Errorf("%w: %q", errRemoteImage, ref)
	case strings.HasPrefix(ref, "/"):
		return r.readAsset(ref)
	default:
		return nil, fmt.Errorf("unsupported image reference %q", ref)
	}
}

func decodeDataURL(ref string) (*ports.VisionImage, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, errors.New("data URL is not base64 encoded")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxVisionImageBytes {
		return nil, errImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &ports.VisionImage{MIMEType: mimeType, Data: data}, nil
}

func (r *ImageResolver) readAsset(ref string) (*ports.VisionImage, error) {
	if r.assetDir == "" {
		return nil, errors.New("no asset directory configured")
	}
	// path.Clean on a rooted path never climbs above the root.
	rel := strings.TrimPrefix(path.Clean(ref), "/")
	full := filepath.Join(r.assetDir, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("stat asset: %w", err)
	}
	if info.Size() > MaxVisionImageBytes {
		return nil, errImageTooLarge
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(full))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &ports.VisionImage{MIMEType: mimeType, Data: data}, nil
}
