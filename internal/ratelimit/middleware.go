package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
	"github.com/askwhyharsh/nearhelp/pkg/validator"
)

// SessionIDKey is where SessionRateLimit stores the caller's session ID.
const SessionIDKey = "session_id"

// SessionValidator confirms that a session exists.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) error
}

type Middleware struct {
	limiter   RateLimiter
	sessions  SessionValidator
	validator validator.Validator
	logger    logger.Logger
}

func NewMiddleware(limiter RateLimiter, sessions SessionValidator, log logger.Logger) *Middleware {
	if log == nil {
		log = logger.NewNop()
	}
	return &Middleware{
		limiter:   limiter,
		sessions:  sessions,
		validator: validator.NewValidator(),
		logger:    log,
	}
}

func abort(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"message": message,
			"code":    code,
		},
	})
}

// IPRateLimit middleware for general IP-based rate limiting
func (m *Middleware) IPRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, err := m.limiter.AllowIPRequest(c.Request.Context(), ip)
		if err != nil {
			m.logger.Error("IP rate limit check failed", "ip", ip, "error", err)
			abort(c, http.StatusInternalServerError, "Failed to check rate limit", "RATE_LIMIT_ERROR")
			return
		}

		if !allowed {
			abort(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "RATE_LIMIT_IP")
			return
		}

		c.Next()
	}
}

// SessionRateLimit requires the ID of an existing session and stores it in
// the context for handlers. Per-session limits key on it, so unknown IDs are
// refused.
func (m *Middleware) SessionRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-ID")
		if sessionID == "" {
			sessionID = c.Query("session_id")
		}

		if sessionID == "" {
			abort(c, http.StatusUnauthorized, "Session ID required", "SESSION_REQUIRED")
			return
		}

		if err := m.validator.ValidateSessionID(sessionID); err != nil {
			abort(c, http.StatusUnauthorized, "Invalid session", "INVALID_SESSION")
			return
		}

		if err := m.sessions.ValidateSession(c.Request.Context(), sessionID); err != nil {
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				abort(c, http.StatusUnauthorized, "Invalid session", "INVALID_SESSION")
				return
			}
			m.logger.Error("Session check failed", "session_id", sessionID, "error", err)
			abort(c, http.StatusInternalServerError, "Failed to check session", "INTERNAL_ERROR")
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}

// LocateRateLimit caps nearest-station lookups per session and reports the
// remaining allowance in X-RateLimit-Remaining. It must run after
// SessionRateLimit.
func (m *Middleware) LocateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sessionID := c.GetString(SessionIDKey)

		allowed, err := m.limiter.AllowLocate(ctx, sessionID)
		if err != nil {
			m.logger.Error("Locate rate limit check failed", "session_id", sessionID, "error", err)
			abort(c, http.StatusInternalServerError, "Failed to check rate limit", "RATE_LIMIT_ERROR")
			return
		}

		remaining, err := m.limiter.RemainingLocates(ctx, sessionID)
		if err != nil {
			m.logger.Warn("Counting remaining locates failed", "session_id", sessionID, "error", err)
		} else {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		if !allowed {
			abort(c, http.StatusTooManyRequests, "Too many lookups. Please wait a minute.", "RATE_LIMIT_LOCATE")
			return
		}

		c.Next()
	}
}
