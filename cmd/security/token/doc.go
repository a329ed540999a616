// Package token implements Warden's opaque session-token format.
//
// A token is a fixed 32-byte buffer: the first four bytes carry the owning
// user id (big-endian int32), the remainder is cryptographically random
// filler. On the wire the buffer travels base64-encoded.
//
// The embedded id exists purely so the session store can jump to the right
// per-user entry list; every other component treats tokens as opaque strings.
package token
