package gemini_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Rayzi0417/om-card/internal/adapters/llm/gemini"
)

func imageResponse(mime, data string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{
				{"text": "Here is your image."},
				{"inlineData": map[string]any{"mimeType": mime, "data": data}},
			}}},
		},
	}
}

func TestImageClient_Generate_Success(t *testing.T) {
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/image-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("bad key param: %s", r.URL.Query().Get("key"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("bad content-type: %s", r.Header.Get("Content-Type"))
		}

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(imageResponse("image/png", "QUJD"))
	}))
	defer srv.Close()

	client := gemini.NewImageClient(srv.Client(), "test-key", srv.URL, "image-model", nil, slog.Default())

	url, err := client.Generate(context.Background(), "a lantern, serene", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "data:image/png;base64,QUJD" {
		t.Errorf("unexpected url: %s", url)
	}

	contents := gotReq["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	text := parts[0].(map[string]any)["text"].(string)
	if !strings.HasPrefix(text, "Generate an image: a lantern, serene") {
		t.Errorf("unexpected prompt: %s", text)
	}
	if !strings.HasSuffix(text, "DO NOT include: text") {
		t.Errorf("negative prompt not folded: %s", text)
	}
	modalities := gotReq["generationConfig"].(map[string]any)["responseModalities"].([]any)
	if len(modalities) != 2 || modalities[1] != "IMAGE" {
		t.Errorf("unexpected modalities: %v", modalities)
	}
}

func TestImageClient_Generate_FallbackModel(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "primary") {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(imageResponse("image/jpeg", "/9j/"))
	}))
	defer srv.Close()

	client := gemini.NewImageClient(srv.Client(), "key", srv.URL, "primary", []string{"secondary"}, slog.Default())

	url, err := client.Generate(context.Background(), "p", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("expected 2 calls (primary + fallback), got %d", len(paths))
	}
	if url != "data:image/jpeg;base64,/9j/" {
		t.Errorf("unexpected url: %s", url)
	}
}

func TestImageClient_Generate_NoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "I cannot draw that."}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := gemini.NewImageClient(srv.Client(), "key", srv.URL, "model", nil, slog.Default())

	if _, err := client.Generate(context.Background(), "p", ""); err == nil {
		t.Fatal("expected error for a text-only response, got nil")
	}
}

func TestImageClient_Generate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	client := gemini.NewImageClient(srv.Client(), "key", srv.URL, "model", nil, slog.Default())

	if _, err := client.Generate(context.Background(), "p", ""); err == nil {
		t.Fatal("expected error for upstream 500, got nil")
	}
}
