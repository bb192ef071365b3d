package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

var (
	drawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omcard_draws_total",
			Help: "Total number of card draws by deck style and status.",
		},
		[]string{"deck_style", "status"},
	)

	chatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omcard_chats_total",
			Help: "Total number of facilitator turns by mode and status.",
		},
		[]string{"mode", "status"},
	)

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omcard_generations_total",
			Help: "Total number of upstream generation calls by provider, kind and status.",
		},
		[]string{"provider", "kind", "status"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omcard_generation_duration_seconds",
			Help:    "Histogram of upstream generation durations.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. 32s
		},
		[]string{"provider", "kind"},
	)

	completionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omcard_completion_tokens",
			Help:    "Histogram of completion token counts, exact or estimated.",
			Buckets: prometheus.LinearBuckets(20, 20, 15), // 20 .. 300
		},
		[]string{"provider", "estimated"},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omcard_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveDraw counts one draw.
func ObserveDraw(deckStyle string, err error) {
	drawsTotal.WithLabelValues(deckStyle, status(err)).Inc()
}

// ObserveChat counts one facilitator turn.
func ObserveChat(mode string, err error) {
	chatsTotal.WithLabelValues(mode, status(err)).Inc()
}

// ObserveGeneration records one upstream call started at start.
func ObserveGeneration(provider, kind string, start time.Time, err error) {
	generationsTotal.WithLabelValues(provider, kind, status(err)).Inc()
	if err == nil {
		generationDuration.WithLabelValues(provider, kind).Observe(time.Since(start).Seconds())
	}
}

// ObserveCompletionTokens records the size of one reply.
func ObserveCompletionTokens(provider string, n int, estimated bool) {
	if n <= 0 {
		return
	}
	e := "false"
	if estimated {
		e = "true"
	}
	completionTokens.WithLabelValues(provider, e).Observe(float64(n))
}

// RateLimited counts one rejected request on route.
func RateLimited(route string) {
	rateLimitRejections.WithLabelValues(route).Inc()
}
