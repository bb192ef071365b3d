package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rayzi0417/om-card/internal/app"
)

func TestImageResolver_DataURL(t *testing.T) {
	r := app.NewImageResolver("")

	img, err := r.Resolve(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("hello"), img.Data)

	_, err = r.Resolve(context.Background(), "data:image/png,hello")
	assert.Error(t, err, "only base64 payloads are accepted")

	_, err = r.Resolve(context.Background(), "data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestImageResolver_AssetPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cards", "saga"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cards", "saga", "7.jpg"), []byte("jpeg"), 0o644))

	r := app.NewImageResolver(dir)

	img, err := r.Resolve(context.Background(), "/cards/saga/7.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, []byte("jpeg"), img.Data)

	img, err = r.Resolve(context.Background(), "/../../cards/saga/7.jpg")
	require.NoError(t, err, "parent segments are clamped to the asset root")
	assert.Equal(t, []byte("jpeg"), img.Data)

	_, err = r.Resolve(context.Background(), "/cards/saga/8.jpg")
	assert.Error(t, err)

	_, err = app.NewImageResolver("").Resolve(context.Background(), "/cards/saga/7.jpg")
	assert.Error(t, err)
}

func TestImageResolver_RemoteURLNeverFetched(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secret":"instance-credentials"}`))
	}))
	defer srv.Close()

	r := app.NewImageResolver(t.TempDir())
	for _, ref := range []string{
		srv.URL + "/latest/meta-data/iam",
		"https://example.com/card.png",
		"//" + strings.TrimPrefix(srv.URL, "http://") + "/card.png",
	} {
		img, err := r.Resolve(context.Background(), ref)
		assert.Error(t, err, ref)
		assert.Nil(t, img, ref)
	}
	assert.Zero(t, hits)
}

func TestImageResolver_Unsupported(t *testing.T) {
	_, err := app.NewImageResolver("").Resolve(context.Background(), "ftp://example.com/a.png")
	assert.Error(t, err)
}
