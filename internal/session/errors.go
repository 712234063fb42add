package session

import "errors"

// ErrInvalidSessionID is returned when a session id fails the charset or
// length validation.
var ErrInvalidSessionID = errors.New("invalid session id")
