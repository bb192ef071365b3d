package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Rayzi0417/om-card/internal/metrics"
	"github.com/Rayzi0417/om-card/internal/ratelimit"
)

const (
	headerRequestID          = "X-Request-Id"
	headerRetryAfter         = "Retry-After"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
)

// RequestIDMiddleware ensures every request has a unique X-Request-Id.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.Set("request_id", id)
			return next(c)
		}
	}
}

// LoggingMiddleware logs each request with structured fields.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("request",
				"request_id", c.Get("request_id"),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"ip", ClientIP(c.Request()),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, else X-Real-IP, else the
// loopback address. The headers are trusted as sent.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// RouteLimit binds a limiter preset to one route.
type RouteLimit struct {
	Route   string
	Limit   ratelimit.Config
	Key     func(ip string) string
	Message string
}

var (
	drawRouteLimit = RouteLimit{
		Route:   "draw",
		Limit:   ratelimit.DrawLimit,
		Key:     ratelimit.DrawKey,
		Message: "请求过于频繁，请稍后再试",
	}
	chatRouteLimit = RouteLimit{
		Route:   "chat",
		Limit:   ratelimit.ChatLimit,
		Key:     ratelimit.ChatKey,
		Message: "请求过于频繁",
	}
)

// RateLimitMiddleware rejects requests over the route's fixed window with 429.
// A failing store lets the request through.
func RateLimitMiddleware(limiter *ratelimit.Limiter, rl RouteLimit, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			res, err := limiter.Check(ctx, rl.Key(ClientIP(c.Request())), rl.Limit)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", c.Get("request_id"),
					"route", rl.Route,
					"error", err,
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set(headerRateLimitReset, strconv.FormatInt(res.ResetTime.UnixMilli(), 10))
			if !res.Success {
				metrics.RateLimited(rl.Route)
				h.Set(headerRetryAfter, strconv.Itoa(res.RetryAfter))
				h.Set(headerRateLimitRemaining, "0")
				return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: rl.Message, RetryAfter: res.RetryAfter})
			}
			h.Set(headerRateLimitRemaining, strconv.Itoa(res.Remaining))
			return next(c)
		}
	}
}
