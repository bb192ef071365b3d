package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDraw(t *testing.T) {
	ok := testutil.ToFloat64(drawsTotal.WithLabelValues("saga", "success"))
	failed := testutil.ToFloat64(drawsTotal.WithLabelValues("saga", "error"))

	ObserveDraw("saga", nil)
	ObserveDraw("saga", nil)
	ObserveDraw("saga", errors.New("boom"))

	assert.Equal(t, ok+2, testutil.ToFloat64(drawsTotal.WithLabelValues("saga", "success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(drawsTotal.WithLabelValues("saga", "error")))
}

func TestObserveGeneration_DurationOnlyOnSuccess(t *testing.T) {
	before := testutil.CollectAndCount(generationDuration)

	ObserveGeneration("test-provider", KindImage, time.Now(), errors.New("quota"))
	assert.Equal(t, before, testutil.CollectAndCount(generationDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(generationsTotal.WithLabelValues("test-provider", KindImage, "error")))

	ObserveGeneration("test-provider", KindImage, time.Now(), nil)
	assert.Equal(t, before+1, testutil.CollectAndCount(generationDuration))
}

func TestObserveCompletionTokens_IgnoresEmpty(t *testing.T) {
	before := testutil.CollectAndCount(completionTokens)
	ObserveCompletionTokens("tokens-provider", 0, true)
	assert.Equal(t, before, testutil.CollectAndCount(completionTokens))

	ObserveCompletionTokens("tokens-provider", 42, true)
	assert.Equal(t, before+1, testutil.CollectAndCount(completionTokens))
}

func TestRateLimited(t *testing.T) {
	before := testutil.ToFloat64(rateLimitRejections.WithLabelValues("test-route"))
	RateLimited("test-route")
	assert.Equal(t, before+1, testutil.ToFloat64(rateLimitRejections.WithLabelValues("test-route")))
}
