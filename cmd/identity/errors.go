package identity

import "errors"

var (
	// ErrConflict is returned when a unique field (email) already exists.
	ErrConflict = errors.New("record exists")

	// ErrNotFound is returned when a referenced user or token is absent
	// or expired.
	ErrNotFound = errors.New("record does not exist")

	// ErrCredentials is returned for a failed login. It deliberately does
	// not distinguish unknown email from wrong password.
	ErrCredentials = errors.New("invalid credentials")
)

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCredentials reports whether err represents ErrCredentials.
func IsCredentials(err error) bool { return errors.Is(err, ErrCredentials) }
