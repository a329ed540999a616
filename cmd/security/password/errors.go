package password

import "errors"

var (
	// ErrHashing is returned when the hashing primitive fails internally.
	// It is hard and non-retryable; callers must never substitute a weaker
	// hash on this path.
	ErrHashing = errors.New("password hashing failed")

	// ErrInvalidSalt is returned when the supplied salt has the wrong length.
	ErrInvalidSalt = errors.New("invalid salt length")
)
