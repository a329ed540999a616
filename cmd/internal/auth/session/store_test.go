package session

import (
	"sync"
	"testing"
	"time"

	"warden/cmd/security/token"
)

func mintPair(t *testing.T, userID int32) (request, refresh string) {
	t.Helper()

	request, err := token.New(userID)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	refresh, err = token.New(userID)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	return request, refresh
}

func TestInsert_StartingTTLs(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()
	req, ref := mintPair(t, 1)

	if err := st.Insert(now, req, ref); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ttl, ok := st.RequestTokenTTL(now, req)
	if !ok || ttl != RequestTokenTTL {
		t.Fatalf("request ttl = (%d,%v), want (%d,true)", ttl, ok, RequestTokenTTL)
	}
	ttl, ok = st.RefreshTokenTTL(now, ref)
	if !ok || ttl != RefreshTokenTTL {
		t.Fatalf("refresh ttl = (%d,%v), want (%d,true)", ttl, ok, RefreshTokenTTL)
	}
}

func TestTTL_DecaysWithElapsedTime(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()
	req, ref := mintPair(t, 1)

	if err := st.Insert(now, req, ref); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	later := now.Add(45 * time.Second)
	ttl, ok := st.RequestTokenTTL(later, req)
	if !ok || ttl != RequestTokenTTL-45 {
		t.Fatalf("request ttl after 45s = (%d,%v), want (%d,true)", ttl, ok, RequestTokenTTL-45)
	}
	ttl, ok = st.RefreshTokenTTL(later, ref)
	if !ok || ttl != RefreshTokenTTL-45 {
		t.Fatalf("refresh ttl after 45s = (%d,%v), want (%d,true)", ttl, ok, RefreshTokenTTL-45)
	}
}

func TestRequestToken_ExpiresBeforeRefreshToken(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()
	req, ref := mintPair(t, 1)

	if err := st.Insert(now, req, ref); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Past the request window but inside the refresh window.
	later := now.Add((RequestTokenTTL + 1) * time.Second)

	if ttl, ok := st.RequestTokenTTL(later, req); ok {
		t.Fatalf("expired request token still matches (ttl=%d)", ttl)
	}
	if _, ok := st.RefreshTokenTTL(later, ref); !ok {
		t.Fatalf("refresh token should still be valid")
	}
}

func TestRotate_ResetsBothTTLs(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()
	req, ref := mintPair(t, 1)

	if err := st.Insert(now, req, ref); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Decay well into both windows, then rotate.
	later := now.Add(2 * time.Hour)
	newReq, err := token.New(1)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	if !st.Rotate(later, ref, newReq) {
		t.Fatalf("Rotate returned false for live refresh token")
	}

	ttl, ok := st.RequestTokenTTL(later, newReq)
	if !ok || ttl != RequestTokenTTL {
		t.Fatalf("rotated request ttl = (%d,%v), want (%d,true)", ttl, ok, RequestTokenTTL)
	}
	ttl, ok = st.RefreshTokenTTL(later, ref)
	if !ok || ttl != RefreshTokenTTL {
		t.Fatalf("rotated refresh ttl = (%d,%v), want (%d,true)", ttl, ok, RefreshTokenTTL)
	}

	// The pre-rotation request token must no longer match.
	if _, ok := st.RequestTokenTTL(later, req); ok {
		t.Fatalf("pre-rotation request token still validates")
	}
}

func TestInsert_SameRefreshTokenReplacesInPlace(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()
	req, ref := mintPair(t, 7)

	if err := st.Insert(now, req, ref); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	req2, err := token.New(7)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	if err := st.Insert(now, req2, ref); err != nil {
		t.Fatalf("re-Insert: %v", err)
	}

	if got := len(st.entries[7]); got != 1 {
		t.Fatalf("entry count after re-login = %d, want 1", got)
	}
	if _, ok := st.RequestTokenTTL(now, req); ok {
		t.Fatalf("replaced request token still validates")
	}
	if _, ok := st.RequestTokenTTL(now, req2); !ok {
		t.Fatalf("replacement request token does not validate")
	}
}

func TestInvalidate_EntrySurvivesUntilSweep(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()
	req, ref := mintPair(t, 3)

	if err := st.Insert(now, req, ref); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !st.Invalidate(now, req) {
		t.Fatalf("Invalidate returned false for live request token")
	}

	// Both validators miss; the entry is still physically present.
	if ttl, ok := st.RequestTokenTTL(now, req); ok || ttl != -1 {
		t.Fatalf("request validator after invalidate = (%d,%v), want (-1,false)", ttl, ok)
	}
	if ttl, ok := st.RefreshTokenTTL(now, ref); ok || ttl != -1 {
		t.Fatalf("refresh validator after invalidate = (%d,%v), want (-1,false)", ttl, ok)
	}
	if got := len(st.entries[3]); got != 1 {
		t.Fatalf("entry count after invalidate = %d, want 1 (lazy removal)", got)
	}

	st.Sweep(now.Add(time.Second))
	if got := len(st.entries[3]); got != 0 {
		t.Fatalf("entry count after sweep = %d, want 0", got)
	}
}

func TestInsert_SweepsRefreshExpiredEntries(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()

	deadReq, deadRef := mintPair(t, 5)
	liveReq, liveRef := mintPair(t, 5)

	if err := st.Insert(now, deadReq, deadRef); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Second session starts much later so only the first decays out.
	later := now.Add((RefreshTokenTTL + 10) * time.Second)
	if err := st.Insert(later, liveReq, liveRef); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if got := len(st.entries[5]); got != 1 {
		t.Fatalf("entry count after sweeping insert = %d, want 1", got)
	}
	if _, ok := st.RefreshTokenTTL(later, liveRef); !ok {
		t.Fatalf("surviving entry does not validate")
	}
	if _, ok := st.RefreshTokenTTL(later, deadRef); ok {
		t.Fatalf("swept entry still validates")
	}
}

func TestStore_UnknownAndMalformedTokens(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()

	unknown, err := token.New(9)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}

	if ttl, ok := st.RequestTokenTTL(now, unknown); ok || ttl != -1 {
		t.Fatalf("unknown token = (%d,%v), want (-1,false)", ttl, ok)
	}
	if ttl, ok := st.RefreshTokenTTL(now, "not-base64!!"); ok || ttl != -1 {
		t.Fatalf("malformed token = (%d,%v), want (-1,false)", ttl, ok)
	}
	if st.Rotate(now, unknown, unknown) {
		t.Fatalf("Rotate succeeded for unknown refresh token")
	}
	if st.Invalidate(now, unknown) {
		t.Fatalf("Invalidate succeeded for unknown request token")
	}
	if err := st.Insert(now, "short", unknown); err == nil {
		t.Fatalf("Insert accepted malformed request token")
	}
}

func TestStore_MultipleSessionsPerUser(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()

	reqA, refA := mintPair(t, 11)
	reqB, refB := mintPair(t, 11)

	if err := st.Insert(now, reqA, refA); err != nil {
		t.Fatalf("Insert A: %v", err)
	}
	if err := st.Insert(now, reqB, refB); err != nil {
		t.Fatalf("Insert B: %v", err)
	}

	if got := len(st.entries[11]); got != 2 {
		t.Fatalf("entry count = %d, want 2", got)
	}

	// Logging out one session leaves the other intact.
	if !st.Invalidate(now, reqA) {
		t.Fatalf("Invalidate A failed")
	}
	if _, ok := st.RequestTokenTTL(now, reqB); !ok {
		t.Fatalf("session B affected by session A logout")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	st := NewStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := range 16 {
		userID := int32(i % 4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := token.New(userID)
			if err != nil {
				t.Errorf("token.New: %v", err)
				return
			}
			ref, err := token.New(userID)
			if err != nil {
				t.Errorf("token.New: %v", err)
				return
			}
			if err := st.Insert(now, req, ref); err != nil {
				t.Errorf("Insert: %v", err)
				return
			}
			if _, ok := st.RequestTokenTTL(now, req); !ok {
				t.Errorf("inserted request token does not validate")
			}
			newReq, err := token.New(userID)
			if err != nil {
				t.Errorf("token.New: %v", err)
				return
			}
			if !st.Rotate(now, ref, newReq) {
				t.Errorf("Rotate failed")
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, list := range st.entries {
		total += len(list)
	}
	if total != 16 {
		t.Fatalf("total entries = %d, want 16", total)
	}
}
