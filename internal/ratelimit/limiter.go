package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/askwhyharsh/nearhelp/internal/config"
	"github.com/askwhyharsh/nearhelp/internal/storage"
)

// RateLimiter defines the contract for enforcing and managing rate limits.
type RateLimiter interface {
	// AllowLocate checks if a session may run another nearest-station lookup.
	AllowLocate(ctx context.Context, sessionID string) (bool, error)

	// AllowSessionCreation checks if an IP can create a new session.
	AllowSessionCreation(ctx context.Context, ip string) (bool, error)

	// AllowIPRequest checks if an IP can make a request.
	AllowIPRequest(ctx context.Context, ip string) (bool, error)

	// RemainingLocates returns how many lookups a session has left in the current window.
	RemainingLocates(ctx context.Context, sessionID string) (int, error)
}

type Limiter struct {
	redis  storage.RedisClient
	config config.RateLimitConfig
	now    func() time.Time
}

func NewLimiter(redisClient storage.RedisClient, config config.RateLimitConfig) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: config,
		now:    time.Now,
	}
}

func locateKey(sessionID string) string {
	return fmt.Sprintf("ratelimit:locate:%s", sessionID)
}

// AllowLocate checks if a session can run a locate
func (l *Limiter) AllowLocate(ctx context.Context, sessionID string) (bool, error) {
	return l.checkSlidingWindow(ctx, locateKey(sessionID), l.config.LocatePerMin, time.Minute)
}

// AllowSessionCreation checks if an IP can create a new session
func (l *Limiter) AllowSessionCreation(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:sessions", ip)

	count, err := l.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check session creation rate limit: %w", err)
	}

	// Set expiration on first increment (1 hour)
	if count == 1 {
		if err := l.redis.Expire(ctx, key, time.Hour); err != nil {
			return false, fmt.Errorf("failed to set session window: %w", err)
		}
	}

	return count <= int64(l.config.SessionsPerIPPerHour), nil
}

// AllowIPRequest checks if an IP can make a request
func (l *Limiter) AllowIPRequest(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:requests", ip)
	return l.checkSlidingWindow(ctx, key, l.config.RequestsPerMinute, time.Minute)
}

// checkSlidingWindow implements a sliding window rate limiter using sorted
// sets. Members are unique so hits within the same instant all count.
func (l *Limiter) checkSlidingWindow(ctx context.Context, key string, maxCount int, window time.Duration) (bool, error) {
	now := l.now()
	windowStart := now.Add(-window).UnixNano()

	// Remove old entries outside the window
	if err := l.redis.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10)); err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := l.redis.ZCard(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(maxCount) {
		return false, nil
	}

	if err := l.redis.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	}); err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	if err := l.redis.Expire(ctx, key, window); err != nil {
		return false, fmt.Errorf("failed to set window expiry: %w", err)
	}

	return true, nil
}

// RemainingLocates returns how many lookups a session can still run
func (l *Limiter) RemainingLocates(ctx context.Context, sessionID string) (int, error) {
	count, err := l.redis.ZCard(ctx, locateKey(sessionID))
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	remaining := l.config.LocatePerMin - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}
