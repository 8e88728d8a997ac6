package guide

import "errors"

// ErrSnapshot reports a guide snapshot that could not be read or decoded.
// Callers treat it as an empty guide.
var ErrSnapshot = errors.New("guide snapshot unavailable")
