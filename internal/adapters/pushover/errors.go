package pushover

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the user key or app token is missing.
	ErrNotConfigured = errors.New("pushover not configured")
	// ErrDelivery marks a response that was not accepted.
	ErrDelivery = errors.New("push delivery rejected")
)

// statusError carries the last HTTP response of a rejected attempt.
type statusError struct {
	code int
	body map[string]any
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status=%d", ErrDelivery, e.code)
}

func (e *statusError) Unwrap() error { return ErrDelivery }
