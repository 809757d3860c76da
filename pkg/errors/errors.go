package errors

import "errors"

var (
	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session ID")

	// Validation errors
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidLatitude    = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude   = errors.New("longitude must be between -180 and 180")

	// Station catalog errors
	ErrNoStations     = errors.New("no stations available")
	ErrInvalidStation = errors.New("invalid station record")
	ErrCatalogSource  = errors.New("station catalog source unavailable")

	// Rate limit errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// WebSocket errors
	ErrWebSocketClosed = errors.New("websocket connection closed")
	ErrSendBufferFull  = errors.New("send buffer full")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}
