package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rayzi0417/om-card/internal/app"
	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/ratelimit"
)

type Handler struct {
	draws       *app.DrawService
	chats       *app.ChatService
	logger      *slog.Logger
	limiter     *ratelimit.Limiter
	drawTimeout time.Duration
	chatTimeout time.Duration
}

type Option func(*Handler)

// WithRateLimiter enables the per-client draw and chat windows.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithTimeouts bounds the request context of each route. Zero means no bound.
func WithTimeouts(draw, chat time.Duration) Option {
	return func(h *Handler) { h.drawTimeout, h.chatTimeout = draw, chat }
}

func NewHandler(draws *app.DrawService, chats *app.ChatService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{draws: draws, chats: chats, logger: logger}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Register(e *echo.Echo) {
	e.Validator = newRequestValidator()

	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var drawMW, chatMW []echo.MiddlewareFunc
	if h.limiter != nil {
		drawMW = append(drawMW, RateLimitMiddleware(h.limiter, drawRouteLimit, h.logger))
		chatMW = append(chatMW, RateLimitMiddleware(h.limiter, chatRouteLimit, h.logger))
	}
	if h.drawTimeout > 0 {
		drawMW = append(drawMW, middleware.ContextTimeout(h.drawTimeout))
	}
	if h.chatTimeout > 0 {
		chatMW = append(chatMW, middleware.ContextTimeout(h.chatTimeout))
	}
	api := e.Group("/api")
	api.POST("/draw", h.Draw, drawMW...)
	api.POST("/chat", h.Chat, chatMW...)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Draw handles POST /api/draw. An empty body draws an abstract card from the
// default provider.
func (h *Handler) Draw(c echo.Context) error {
	var req DrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	card, err := h.draws.Draw(c.Request().Context(), app.DrawRequest{
		Provider:   req.Provider,
		DeckStyle:  req.DeckStyle,
		ExcludeIDs: req.ExcludeIDs,
	})
	if err != nil {
		return h.mapError(c, err, "服务器错误，请稍后重试")
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

// Chat handles POST /api/chat and streams the facilitator's reply as plain
// text. Errors before the first chunk are reported as JSON; later ones end
// the stream early.
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	res := c.Response()
	started := false
	onChunk := func(chunk string) error {
		if !started {
			started = true
			res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
			res.Header().Set("Cache-Control", "no-cache")
			res.Header().Set("X-Content-Type-Options", "nosniff")
			res.WriteHeader(http.StatusOK)
		}
		if _, err := res.Write([]byte(chunk)); err != nil {
			return err
		}
		res.Flush()
		return nil
	}

	err := h.chats.Stream(c.Request().Context(), req.toApp(), onChunk)
	switch {
	case err != nil && !started:
		return h.mapError(c, err, "服务器错误")
	case err != nil:
		h.logger.ErrorContext(c.Request().Context(), "chat stream interrupted",
			"request_id", c.Get("request_id"),
			"error", err,
		)
		return nil
	case !started:
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, nil)
	}
	return nil
}

// mapError writes the JSON error for err. fallback is the route's generic
// server error message.
func (h *Handler) mapError(c echo.Context, err error, fallback string) error {
	ctx := c.Request().Context()
	requestID, _ := c.Get("request_id").(string)

	switch {
	case errors.Is(err, domain.ErrEmptyMessages):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "消息不能为空"})
	case errors.Is(err, domain.ErrInvalidStyle),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidCount),
		errors.Is(err, domain.ErrUnknownProvider):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrImageGeneration):
		h.logger.ErrorContext(ctx, "image generation failure", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "图片生成失败，请稍后重试"})
	case errors.Is(err, domain.ErrUpstreamLLM):
		h.logger.ErrorContext(ctx, "upstream LLM failure", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	default:
		h.logger.ErrorContext(ctx, "internal error", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}
