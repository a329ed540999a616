// Package session implements Warden's in-memory session-token store.
//
// Each login owns one entry holding a request token (short-lived, presented
// on every authorized call) and a refresh token (longer-lived, used only to
// mint a new request token). Entries self-expire: the store keeps declared
// TTLs plus an anchor instant and recomputes the live TTL on every read, so
// an invalidated or decayed entry stops matching immediately even though it
// is removed only by a later sweep.
//
// Session state lives in this one process; there is no persistence and no
// replication. All operations serialize on a single mutex; per-user entry
// lists are tiny, and coarse locking totally orders concurrent rotations on
// the same refresh token (last writer wins).
package session
