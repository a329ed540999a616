// Package identity is Warden's authentication facade.
//
// It composes the credential hasher, the token codec, the in-memory session
// store and the permission graph into the operations the transports call:
// user lifecycle, login, token validation and rotation, logout, and
// permission checks. One Service instance is shared by every server loop;
// it is safe for concurrent use.
package identity
