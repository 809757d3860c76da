package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askwhyharsh/nearhelp/internal/config"
	"github.com/askwhyharsh/nearhelp/internal/storage"
	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) *Limiter {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := storage.NewRedisClient(&config.Config{Redis: config.RedisConfig{Host: mr.Host(), Port: mr.Port()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(client, cfg)
}

func TestAllowLocateWindow(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{LocatePerMin: 3})
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		ok, err := l.AllowLocate(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
	}

	ok, err := l.AllowLocate(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// other sessions are unaffected
	ok, err = l.AllowLocate(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, ok)

	remaining, err := l.RemainingLocates(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	l.now = func() time.Time { return base.Add(61 * time.Second) }
	ok, err = l.AllowLocate(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemainingLocates(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{LocatePerMin: 2})
	ctx := context.Background()

	remaining, err := l.RemainingLocates(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	ok, err := l.AllowLocate(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	remaining, err = l.RemainingLocates(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestAllowSessionCreation(t *testing.T) {
	l := newTestLimiter(t, config.RateLimitConfig{SessionsPerIPPerHour: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.AllowSessionCreation(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.AllowSessionCreation(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

type knownSessions map[string]bool

func (k knownSessions) ValidateSession(_ context.Context, sessionID string) error {
	if !k[sessionID] {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func TestLocateMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	known := uuid.NewString()
	l := newTestLimiter(t, config.RateLimitConfig{LocatePerMin: 1, RequestsPerMinute: 100})
	m := NewMiddleware(l, knownSessions{known: true}, nil)

	r := gin.New()
	r.GET("/locate", m.IPRateLimit(), m.SessionRateLimit(), m.LocateRateLimit(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SessionIDKey))
	})

	do := func(sessionID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/locate", nil)
		if sessionID != "" {
			req.Header.Set("X-Session-ID", sessionID)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)

	w := do(known)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, known, w.Body.String())
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(known)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_LOCATE")
}

func TestSessionRateLimitRejectsUnknownSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := newTestLimiter(t, config.RateLimitConfig{LocatePerMin: 1, RequestsPerMinute: 100})
	m := NewMiddleware(l, knownSessions{}, nil)

	r := gin.New()
	r.GET("/locate", m.SessionRateLimit(), m.LocateRateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Each made-up ID would otherwise get a fresh locate budget.
	for _, id := range []string{"abc", uuid.NewString(), uuid.NewString(), uuid.NewString()} {
		req := httptest.NewRequest(http.MethodGet, "/locate", nil)
		req.Header.Set("X-Session-ID", id)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, id)
		assert.Contains(t, w.Body.String(), "INVALID_SESSION")
	}
}

type brokenSessions struct{}

func (brokenSessions) ValidateSession(context.Context, string) error {
	return errors.New("redis down")
}

func TestSessionRateLimitStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := newTestLimiter(t, config.RateLimitConfig{LocatePerMin: 1, RequestsPerMinute: 100})
	m := NewMiddleware(l, brokenSessions{}, nil)

	r := gin.New()
	r.GET("/locate", m.SessionRateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/locate", nil)
	req.Header.Set("X-Session-ID", uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
