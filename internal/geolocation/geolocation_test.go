package geolocation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindFromCode(t *testing.T) {
	assert.Equal(t, PermissionDenied, KindFromCode(1))
	assert.Equal(t, PositionUnavailable, KindFromCode(2))
	assert.Equal(t, Timeout, KindFromCode(3))
	assert.Equal(t, Unknown, KindFromCode(0))
	assert.Equal(t, Unknown, KindFromCode(42))
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("locate: %w", &PositionError{Kind: PermissionDenied, Reason: "User denied Geolocation"})

	assert.Equal(t, PermissionDenied, KindOf(wrapped))
	assert.Equal(t, Timeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, Unknown, KindOf(context.Canceled))
	assert.Equal(t, Unknown, KindOf(errors.New("boom")))
}

func TestPositionErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &PositionError{Kind: Timeout, Reason: "slow gps"})

	assert.ErrorIs(t, err, &PositionError{Kind: Timeout})
	assert.NotErrorIs(t, err, &PositionError{Kind: PermissionDenied})
	assert.EqualError(t, err, "wrapped: position request failed: timeout: slow gps")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.HighAccuracy)
	assert.Equal(t, "10s", opts.Timeout.String())
	assert.Zero(t, opts.MaximumAge)

	opts = OptionsWithTimeout(2500 * time.Millisecond)
	assert.True(t, opts.HighAccuracy)
	assert.Equal(t, 2500*time.Millisecond, opts.Timeout)
	assert.Zero(t, opts.MaximumAge)
}
