package password

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLength is the size of the random per-user salt in bytes.
	SaltLength = 16

	// HashLength is the size of the derived key in bytes.
	HashLength = 32

	// Argon2id parameters. Compiled constants: verification re-derives with
	// the same settings, so changing them invalidates stored credentials.
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 2
)

// CreateSalt returns a fresh cryptographically random salt.
func CreateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("password: read salt: %w", err)
	}
	return salt, nil
}

// Hash derives a fixed-length Argon2id hash of password under salt.
//
// The password buffer is zeroed before Hash returns, on every exit path.
// An internal failure of the primitive (including a panic) is converted to
// ErrHashing instead of crashing the caller.
func Hash(password []byte, salt []byte) (hash []byte, err error) {
	defer scrub(password)
	defer func() {
		if r := recover(); r != nil {
			hash = nil
			err = fmt.Errorf("%w: %v", ErrHashing, r)
		}
	}()

	if len(salt) != SaltLength {
		return nil, ErrInvalidSalt
	}

	hash = argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, HashLength)
	if len(hash) != HashLength {
		return nil, ErrHashing
	}
	return hash, nil
}

// Verify reports whether password hashes to expected under salt.
// The comparison is constant-time; the password buffer is zeroed before
// Verify returns.
func Verify(password []byte, salt []byte, expected []byte) (bool, error) {
	hash, err := Hash(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(hash, expected) == 1, nil
}

func scrub(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
