package service

import "errors"

// ValidationMessage is returned to the caller when the action is missing.
const ValidationMessage = "Missing or empty 'action' field in webhook payload"

var (
	// ErrValidation marks an event that cannot be processed.
	ErrValidation = errors.New("invalid webhook event")
	// ErrPanic marks a pipeline run that panicked.
	ErrPanic = errors.New("notify pipeline panicked")
)
