package catalog

import "errors"

var (
	// ErrDisabled is returned when enrichment is off or no API key is set.
	ErrDisabled = errors.New("catalog lookups disabled")
	// ErrNotFound is returned when the title cannot be parsed or the catalog has no match.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrUnavailable wraps transport failures and non-success responses.
	ErrUnavailable = errors.New("catalog service unavailable")
)
