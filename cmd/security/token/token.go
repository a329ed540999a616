package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const (
	// Length is the raw token size in bytes, before base64 encoding.
	Length = 32

	// idBytes is the leading slice that stores the big-endian user id.
	idBytes = 4
)

// New mints a fresh token owned by userID and returns it base64-encoded.
func New(userID int32) (string, error) {
	raw, err := NewRaw(userID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// NewRaw mints a fresh raw token buffer owned by userID.
func NewRaw(userID int32) ([Length]byte, error) {
	var buf [Length]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return buf, fmt.Errorf("token: read random: %w", err)
	}
	binary.BigEndian.PutUint32(buf[:idBytes], uint32(userID))
	return buf, nil
}

// DecodeUserID extracts the user id embedded in a base64-encoded token.
// Returns ErrInvalidToken for malformed base64 or a buffer shorter than
// the id prefix.
func DecodeUserID(tok string) (int32, error) {
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if len(raw) < idBytes {
		return 0, ErrInvalidToken
	}
	return int32(binary.BigEndian.Uint32(raw[:idBytes])), nil
}

// Decode decodes a base64-encoded token into its fixed-length raw form.
// Returns ErrInvalidToken when the decoded buffer is not exactly Length bytes.
func Decode(tok string) ([Length]byte, error) {
	var buf [Length]byte
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return buf, ErrInvalidToken
	}
	if len(raw) != Length {
		return buf, ErrInvalidToken
	}
	copy(buf[:], raw)
	return buf, nil
}
