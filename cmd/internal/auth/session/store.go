package session

import (
	"sync"
	"time"

	"warden/cmd/security/token"
)

// Store owns every active session entry, keyed by the user id embedded in
// the tokens. One mutex guards the whole structure; every operation, reads
// included, holds it for its full duration. The lock is never held across
// I/O.
type Store struct {
	mu      sync.Mutex
	entries map[int32][]*entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{entries: make(map[int32][]*entry)}
}

// Insert records a new session for the token pair, anchored at now with the
// starting TTLs. If a live entry already exists for the same refresh token,
// its request token is replaced in place instead of duplicating the session
// (idempotent re-login). Expired entries are swept first; Insert is the only
// sweep trigger, there is no background timer.
func (s *Store) Insert(now time.Time, requestToken, refreshToken string) error {
	userID, err := token.DecodeUserID(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	reqRaw, err := token.Decode(requestToken)
	if err != nil {
		return ErrInvalidToken
	}
	refRaw, err := token.Decode(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	for _, e := range s.entries[userID] {
		if e.refreshToken == refRaw && e.liveRefreshTTL(now) > 0 {
			e.setRequestToken(now, reqRaw)
			return nil
		}
	}

	s.entries[userID] = append(s.entries[userID], newEntry(now, reqRaw, refRaw))
	return nil
}

// RequestTokenTTL reports whether tok matches a live request token and its
// remaining lifetime. A miss (unknown, expired, or invalidated) yields
// (-1, false); that is an expected result, not an error.
func (s *Store) RequestTokenTTL(now time.Time, tok string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.findByRequestTokenLocked(now, tok); e != nil {
		return e.liveRequestTTL(now), true
	}
	return -1, false
}

// RefreshTokenTTL reports whether tok matches a live refresh token and its
// remaining lifetime.
func (s *Store) RefreshTokenTTL(now time.Time, tok string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.findByRefreshTokenLocked(now, tok); e != nil {
		return e.liveRefreshTTL(now), true
	}
	return -1, false
}

// Rotate installs newRequestToken on the entry owning refreshToken and
// restarts both TTL windows. Returns false when no live entry matches.
// Concurrent rotations on one refresh token are ordered by the store lock;
// the last writer wins.
func (s *Store) Rotate(now time.Time, refreshToken, newRequestToken string) bool {
	reqRaw, err := token.Decode(newRequestToken)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.findByRefreshTokenLocked(now, refreshToken)
	if e == nil {
		return false
	}
	e.setRequestToken(now, reqRaw)
	return true
}

// Invalidate expires the session owning requestToken (logout). The entry is
// not removed synchronously; it stops matching and is dropped by the next
// sweep. Returns false when no live entry matches.
func (s *Store) Invalidate(now time.Time, requestToken string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.findByRequestTokenLocked(now, requestToken)
	if e == nil {
		return false
	}
	e.invalidate()
	return true
}

// Sweep drops every entry whose live refresh TTL has run out, recomputed
// against now. Entries in the request-expired-only state survive: their
// refresh token can still mint a new request token.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
}

func (s *Store) sweepLocked(now time.Time) {
	for userID, list := range s.entries {
		kept := list[:0]
		for _, e := range list {
			if e.liveRefreshTTL(now) > 0 {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.entries, userID)
			continue
		}
		s.entries[userID] = kept
	}
}

func (s *Store) findByRequestTokenLocked(now time.Time, tok string) *entry {
	userID, err := token.DecodeUserID(tok)
	if err != nil {
		return nil
	}
	raw, err := token.Decode(tok)
	if err != nil {
		return nil
	}
	for _, e := range s.entries[userID] {
		if e.requestToken == raw && e.liveRequestTTL(now) > 0 {
			return e
		}
	}
	return nil
}

func (s *Store) findByRefreshTokenLocked(now time.Time, tok string) *entry {
	userID, err := token.DecodeUserID(tok)
	if err != nil {
		return nil
	}
	raw, err := token.Decode(tok)
	if err != nil {
		return nil
	}
	for _, e := range s.entries[userID] {
		if e.refreshToken == raw && e.liveRefreshTTL(now) > 0 {
			return e
		}
	}
	return nil
}
