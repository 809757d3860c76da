// Package geolocation describes the host capability that produces position
// fixes, and the closed set of ways a request for one can fail.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/askwhyharsh/nearhelp/internal/location"
)

// ErrUnsupported means the host cannot provide positions at all.
var ErrUnsupported = errors.New("geolocation is not supported")

// ErrorKind follows the numbering of the browser geolocation API so codes
// reported by the page can be used directly.
type ErrorKind int

const (
	Unknown             ErrorKind = 0
	PermissionDenied    ErrorKind = 1
	PositionUnavailable ErrorKind = 2
	Timeout             ErrorKind = 3
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// KindFromCode maps a reported numeric code; anything unrecognised is Unknown.
func KindFromCode(code int) ErrorKind {
	switch k := ErrorKind(code); k {
	case PermissionDenied, PositionUnavailable, Timeout:
		return k
	default:
		return Unknown
	}
}

// PositionError is a categorized failure of a single position request.
type PositionError struct {
	Kind   ErrorKind
	Reason string
}

func (e *PositionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("position request failed: %s", e.Kind)
	}
	return fmt.Sprintf("position request failed: %s: %s", e.Kind, e.Reason)
}

// Is lets errors.Is match on kind alone.
func (e *PositionError) Is(target error) bool {
	t, ok := target.(*PositionError)
	return ok && t.Kind == e.Kind && t.Reason == ""
}

// KindOf classifies any error returned by a Provider.
func KindOf(err error) ErrorKind {
	var pe *PositionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Unknown
}

// Options mirror the browser's PositionOptions.
type Options struct {
	HighAccuracy bool          `json:"enableHighAccuracy"`
	Timeout      time.Duration `json:"-"`
	MaximumAge   time.Duration `json:"-"`
}

// DefaultOptions always asks for a fresh, high accuracy fix within 10s.
func DefaultOptions() Options {
	return OptionsWithTimeout(10 * time.Second)
}

// OptionsWithTimeout asks for a fresh, high accuracy fix within timeout.
func OptionsWithTimeout(timeout time.Duration) Options {
	return Options{
		HighAccuracy: true,
		Timeout:      timeout,
		MaximumAge:   0,
	}
}

// Fix is one resolved position.
type Fix struct {
	Coordinate location.Coordinate
	AccuracyM  float64
	Timestamp  time.Time
}

// Provider acquires position fixes.
type Provider interface {
	// Supported reports whether the host can produce positions at all.
	Supported() bool
	// RequestPosition blocks until a fix arrives or the request fails. Failures
	// are *PositionError, ErrUnsupported, or a context error.
	RequestPosition(ctx context.Context, opts Options) (Fix, error)
}
