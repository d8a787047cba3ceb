package srs

import "errors"

var (
	// ErrInvalidInput is returned for out-of-range ratings and malformed requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned by callers when the referenced item does not exist.
	ErrNotFound = errors.New("not found")
)
