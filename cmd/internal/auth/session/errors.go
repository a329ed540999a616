package session

import "errors"

// ErrInvalidToken is returned when a token cannot be decoded into the raw
// fixed-length form the store keeps.
var ErrInvalidToken = errors.New("invalid token")
