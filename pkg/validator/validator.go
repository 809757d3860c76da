package validator

import (
	"math"

	"github.com/google/uuid"

	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
)

type Validator interface {
	ValidateCoordinates(lat, lon float64) error
	ValidateSessionID(sessionID string) error
}

type validator struct{}

func NewValidator() Validator {
	return &validator{}
}

func (v *validator) ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return apperrors.ErrInvalidCoordinates
	}

	if lat < -90 || lat > 90 {
		return apperrors.ErrInvalidLatitude
	}

	if lon < -180 || lon > 180 {
		return apperrors.ErrInvalidLongitude
	}

	return nil
}

func (v *validator) ValidateSessionID(sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return apperrors.ErrInvalidSessionID
	}

	return nil
}
