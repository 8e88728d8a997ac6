package search

import "errors"

var (
	// ErrDisabled is returned when remote search is turned off.
	ErrDisabled = errors.New("remote search disabled")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("remote search returned non-success status")
)
