package token

import "errors"

// ErrInvalidToken is returned when a token is not valid base64 or the
// decoded buffer is too short to carry a user id.
var ErrInvalidToken = errors.New("invalid token")
