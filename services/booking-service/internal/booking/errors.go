package booking

import (
	"errors"
	"strings"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/validation"
)

var (
	// ErrConflict marks a booking that lost the race for its slot after passing validation.
	ErrConflict = errors.New("booking conflict")
	// ErrInvalidTimestamp is returned for starts_at values that are not RFC 3339 with an offset.
	ErrInvalidTimestamp = errors.New("starts_at must be an RFC 3339 timestamp with offset")
)

// ValidationError carries every rule a booking request broke.
type ValidationError struct {
	Violations []validation.Violation
	cause      error
}

func (e *ValidationError) Error() string {
	return "booking rejected: " + strings.Join(validation.Messages(e.Violations), "; ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

func conflictError() *ValidationError {
	return &ValidationError{
		Violations: []validation.Violation{validation.SlotTaken()},
		cause:      ErrConflict,
	}
}
