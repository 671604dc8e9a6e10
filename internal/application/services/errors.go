package services

import (
	"errors"
	"fmt"
)

// ErrRoomNotFound is returned for a room id outside the configured registry.
var ErrRoomNotFound = errors.New("room not found")

// ValidationError rejects a request before any state is touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
