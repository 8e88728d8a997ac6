package queue

import "errors"

// ErrFull is returned by callers that need an error when Enqueue refuses a task.
var ErrFull = errors.New("queue full or closed")
