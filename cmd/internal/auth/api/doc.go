// Package authapi exposes Warden's REST surface: login, token refresh,
// logout and role administration. Handlers are thin adapters over the
// identity facade and the role graph; protected routes gate on a bearer
// request token plus a named permission.
package authapi
