package session

import (
	"time"

	"warden/cmd/security/token"
)

// entry is one live session. Tokens are kept in their raw fixed-length form
// to halve the per-entry footprint versus base64 strings.
type entry struct {
	requestToken [token.Length]byte
	refreshToken [token.Length]byte

	// Declared lifetimes in seconds, counted from anchor.
	requestTTL int64
	refreshTTL int64

	anchor time.Time
}

func newEntry(now time.Time, requestToken, refreshToken [token.Length]byte) *entry {
	return &entry{
		requestToken: requestToken,
		refreshToken: refreshToken,
		requestTTL:   RequestTokenTTL,
		refreshTTL:   RefreshTokenTTL,
		anchor:       now,
	}
}

// liveRequestTTL is the remaining request-token lifetime at now.
// 0 means just expired; -1 is the canonical invalid sentinel.
func (e *entry) liveRequestTTL(now time.Time) int32 {
	return liveTTL(e.requestTTL, e.anchor, now)
}

// liveRefreshTTL is the remaining refresh-token lifetime at now.
func (e *entry) liveRefreshTTL(now time.Time) int32 {
	return liveTTL(e.refreshTTL, e.anchor, now)
}

// setRequestToken installs a new request token and restarts BOTH lifetimes
// from now. A successful refresh proves liveness, so both windows reset:
// idle sessions die within the refresh window while active ones can renew
// indefinitely.
func (e *entry) setRequestToken(now time.Time, requestToken [token.Length]byte) {
	e.requestToken = requestToken
	e.requestTTL = RequestTokenTTL
	e.refreshTTL = RefreshTokenTTL
	e.anchor = now
}

// invalidate expires both tokens immediately. The entry stays in the store
// until the next sweep; validators recompute live TTLs and stop matching it.
func (e *entry) invalidate() {
	e.requestTTL = 0
	e.refreshTTL = 0
}

func liveTTL(declared int64, anchor, now time.Time) int32 {
	elapsed := int64(now.Sub(anchor) / time.Second)
	ttl := declared - elapsed
	if ttl < -1 {
		ttl = -1
	}
	return int32(ttl)
}
