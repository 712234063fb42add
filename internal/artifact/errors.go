package artifact

import "errors"

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidKey is returned when the key fails validation.
	ErrInvalidKey = errors.New("invalid artifact key")
)
