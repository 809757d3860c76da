package api

import (
	"errors"
	"net/http"

	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(message, code string) Response {
	return Response{
		Success: false,
		Error: &ErrorData{
			Message: message,
			Code:    code,
		},
	}
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// First match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{apperrors.ErrInvalidSessionID, http.StatusBadRequest, "INVALID_SESSION_ID"},
	{apperrors.ErrInvalidCoordinates, http.StatusBadRequest, "INVALID_COORDINATES"},
	{apperrors.ErrInvalidLatitude, http.StatusBadRequest, "INVALID_COORDINATES"},
	{apperrors.ErrInvalidLongitude, http.StatusBadRequest, "INVALID_COORDINATES"},
	{apperrors.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{apperrors.ErrNoStations, http.StatusNotFound, "NO_STATIONS"},
	{apperrors.ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT"},
}

// toAppError attaches a status to err. Unrecognised errors become a 500
// that hides the cause.
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return apperrors.NewAppError(err, "", m.status)
		}
	}
	return apperrors.NewAppError(err, "Internal server error", http.StatusInternalServerError)
}

func errorCode(err error) string {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return "INTERNAL_ERROR"
}
