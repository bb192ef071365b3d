package openai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens_SkippedUntilLoaded(t *testing.T) {
	if enc.Load() != nil {
		t.Skip("encoding already loaded")
	}

	done := make(chan struct{})
	var (
		n  int
		ok bool
	)
	go func() {
		n, ok = estimateTokens("桥的那头是什么？")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("estimateTokens blocked without a loaded encoding")
	}
	assert.False(t, ok)
	assert.Zero(t, n)

	n, ok = estimateTokens("")
	assert.False(t, ok)
	assert.Zero(t, n)
}
