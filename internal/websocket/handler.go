package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/askwhyharsh/nearhelp/internal/audio"
	"github.com/askwhyharsh/nearhelp/internal/controller"
	"github.com/askwhyharsh/nearhelp/internal/geolocation"
	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) error
}

type RecorderFactory interface {
	Recorder(sessionID string) controller.Recorder
}

type LocateLimiter interface {
	AllowLocate(ctx context.Context, sessionID string) (bool, error)
}

type HandlerConfig struct {
	Hub            *Hub
	Sessions       SessionValidator
	Recorders      RecorderFactory
	Limiter        LocateLimiter
	Catalog        controller.Catalog
	Options        geolocation.Options
	Alarm          audio.Track
	AllowedOrigins []string
	Logger         logger.Logger
}

type Handler struct {
	hub       *Hub
	sessions  SessionValidator
	recorders RecorderFactory
	limiter   LocateLimiter
	catalog   controller.Catalog
	options   geolocation.Options
	alarm     audio.Track
	upgrader  websocket.Upgrader
	logger    logger.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Handler{
		hub:       cfg.Hub,
		sessions:  cfg.Sessions,
		recorders: cfg.Recorders,
		limiter:   cfg.Limiter,
		catalog:   cfg.Catalog,
		options:   cfg.Options,
		alarm:     cfg.Alarm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
		logger: cfg.Logger,
	}
}

// checkOrigin accepts same-host requests, requests without an Origin, and
// any origin in allowed. "*" allows everything.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"message": "session_id required", "code": "SESSION_REQUIRED"},
		})
		return
	}

	if err := h.sessions.ValidateSession(c.Request.Context(), sessionID); err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			status, code = http.StatusUnauthorized, "INVALID_SESSION"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   gin.H{"message": "invalid session", "code": code},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "session_id", sessionID, "error", err)
		return
	}

	client := NewClient(h.hub, conn, sessionID, h.logger)

	var recorder controller.Recorder
	if h.recorders != nil {
		recorder = h.recorders.Recorder(sessionID)
	}
	ctrl := controller.New(controller.Config{
		Surface:  client,
		Provider: client,
		Player:   client,
		Catalog:  h.catalog,
		Options:  h.options,
		Alarm:    h.alarm,
		Recorder: recorder,
		Logger:   h.logger,
	})

	h.hub.Register(client)
	h.logger.Info("Page connected", "session_id", sessionID)

	go client.WritePump()
	go client.RunActions(&pageSession{handler: h, ctrl: ctrl})

	ctrl.Init()
	client.ReadPump()

	ctrl.Close()
	h.logger.Info("Page disconnected", "session_id", sessionID)
}

// pageSession binds one connection's actions to its controller.
type pageSession struct {
	handler *Handler
	ctrl    *controller.Controller
}

func (s *pageSession) HandleAction(ctx context.Context, c *Client, msg *IncomingMessage) {
	switch msg.Type {
	case TypeLocate:
		s.locate(ctx, c)
	case TypeToggleFlashlight:
		s.ctrl.ToggleFlashlight(ctx)
	case TypeOverlayClick:
		s.ctrl.OverlayClicked(ctx)
	case TypeToggleAlarm:
		if _, err := s.ctrl.ToggleAlarm(ctx); err != nil && !errors.Is(err, audio.ErrPlaybackRejected) {
			s.handler.logger.Warn("Alarm toggle failed", "session_id", c.SessionID(), "error", err)
		}
	}
}

func (s *pageSession) locate(ctx context.Context, c *Client) {
	if s.handler.limiter != nil {
		allowed, err := s.handler.limiter.AllowLocate(ctx, c.SessionID())
		if err != nil {
			s.handler.logger.Error("Locate rate limit check failed", "session_id", c.SessionID(), "error", err)
			c.SendError("Failed to check rate limit", "RATE_LIMIT_ERROR")
			return
		}
		if !allowed {
			c.SendError("Too many lookups. Please wait a minute.", "RATE_LIMIT_LOCATE")
			return
		}
	}

	out := s.ctrl.Locate(ctx)
	s.handler.logger.Debug("Locate finished",
		"session_id", c.SessionID(),
		"phase", out.Phase.String(),
		"kind", out.Kind.String(),
		"shared", out.Shared,
	)
}
