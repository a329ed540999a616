package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when a unique name already exists.
	ErrConflict = errors.New("record exists")

	// ErrNotFound is returned when a referenced role or permission is absent.
	ErrNotFound = errors.New("record does not exist")

	// ErrValidation is returned for semantically invalid requests: missing
	// referenced permission ids, or mutation of the reserved admin role.
	ErrValidation = errors.New("validation failed")
)

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err represents ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// MissingPermissionsError reports permission ids referenced by a mutation
// that do not exist. It unwraps to ErrValidation.
type MissingPermissionsError struct {
	IDs []int32
}

func (e MissingPermissionsError) Error() string {
	return fmt.Sprintf("%v: permissions %v do not exist", ErrValidation, e.IDs)
}

func (e MissingPermissionsError) Unwrap() error { return ErrValidation }
