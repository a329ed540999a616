package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/rbac"
)

// fakeUserStore is an in-memory UserStore keyed by email.
type fakeUserStore struct {
	nextID int32
	users  map[string]User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: make(map[string]User)}
}

func (f *fakeUserStore) Create(_ context.Context, name, email string, hash, salt []byte) (UserInfo, error) {
	if _, ok := f.users[email]; ok {
		return UserInfo{}, ErrConflict
	}
	u := User{ID: f.nextID, Name: name, Email: email, PasswordHash: hash, Salt: salt}
	f.nextID++
	f.users[email] = u
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

func (f *fakeUserStore) Get(_ context.Context, id int32) (UserInfo, error) {
	for _, u := range f.users {
		if u.ID == id {
			return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}, nil
		}
	}
	return UserInfo{}, ErrNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (User, error) {
	u, ok := f.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) List(_ context.Context) ([]UserInfo, error) {
	out := make([]UserInfo, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, UserInfo{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return out, nil
}

func (f *fakeUserStore) Update(_ context.Context, oldEmail, name, email string, hash, salt []byte) (UserInfo, error) {
	u, ok := f.users[oldEmail]
	if !ok {
		return UserInfo{}, ErrNotFound
	}
	if email != oldEmail {
		if _, taken := f.users[email]; taken {
			return UserInfo{}, ErrConflict
		}
	}
	u.Name, u.Email = name, email
	if hash != nil {
		u.PasswordHash, u.Salt = hash, salt
	}
	delete(f.users, oldEmail)
	f.users[email] = u
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

func (f *fakeUserStore) Delete(_ context.Context, email string) error {
	if _, ok := f.users[email]; !ok {
		return ErrNotFound
	}
	delete(f.users, email)
	return nil
}

// fakeGraph grants a fixed permission set per user id.
type fakeGraph struct {
	perms map[int32][]rbac.Permission
}

func (f *fakeGraph) HasPermission(_ context.Context, userID int32, permission string) (bool, error) {
	for _, p := range f.perms[userID] {
		if p.Name == permission {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGraph) PermissionsByUser(_ context.Context, userID int32) ([]rbac.Permission, error) {
	return f.perms[userID], nil
}

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeGraph, *time.Time) {
	t.Helper()
	users := newFakeUserStore()
	graph := &fakeGraph{perms: make(map[int32][]rbac.Permission)}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), users, graph, session.NewStore())

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, users, graph, &clock
}

func TestCreateUserAndLogin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if info.ID != 1 || info.Email != "alice@example.com" {
		t.Fatalf("unexpected user info: %+v", info)
	}

	toks, err := svc.CreateTokens(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("CreateTokens: %v", err)
	}
	if toks.RequestTTL != session.RequestTokenTTL || toks.RefreshTTL != session.RefreshTokenTTL {
		t.Fatalf("unexpected ttls: %d %d", toks.RequestTTL, toks.RefreshTTL)
	}
	if toks.RequestToken == toks.RefreshToken {
		t.Fatal("request and refresh tokens must differ")
	}

	if ok, ttl := svc.ValidateRequestToken(toks.RequestToken); !ok || ttl != session.RequestTokenTTL {
		t.Fatalf("ValidateRequestToken = %v, %d", ok, ttl)
	}
	if ok, ttl := svc.ValidateRefreshToken(toks.RefreshToken); !ok || ttl != session.RefreshTokenTTL {
		t.Fatalf("ValidateRefreshToken = %v, %d", ok, ttl)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "Other", "alice@example.com", "pw"); !IsConflict(err) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestCreateTokensRejectsBadCredentials(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Wrong password and unknown user must be indistinguishable.
	if _, err := svc.CreateTokens(ctx, "alice@example.com", "wrong"); !IsCredentials(err) {
		t.Fatalf("wrong password: want ErrCredentials, got %v", err)
	}
	if _, err := svc.CreateTokens(ctx, "nobody@example.com", "s3cret"); !IsCredentials(err) {
		t.Fatalf("unknown user: want ErrCredentials, got %v", err)
	}
}

func TestRefreshTokensRotatesRequestToken(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	toks, err := svc.CreateTokens(ctx, "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateTokens: %v", err)
	}

	*clock = clock.Add(30 * time.Second)

	fresh, err := svc.RefreshTokens(toks.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if fresh.RefreshToken != toks.RefreshToken {
		t.Fatal("refresh token must be kept across rotation")
	}
	if fresh.RequestToken == toks.RequestToken {
		t.Fatal("request token must be replaced by rotation")
	}
	if fresh.RequestTTL != session.RequestTokenTTL || fresh.RefreshTTL != session.RefreshTokenTTL {
		t.Fatalf("rotation must reset ttls, got %d %d", fresh.RequestTTL, fresh.RefreshTTL)
	}

	// The replaced request token is dead, the new one is live.
	if ok, _ := svc.ValidateRequestToken(toks.RequestToken); ok {
		t.Fatal("old request token still valid after rotation")
	}
	if ok, ttl := svc.ValidateRequestToken(fresh.RequestToken); !ok || ttl != session.RequestTokenTTL {
		t.Fatalf("new request token: %v, %d", ok, ttl)
	}
}

func TestRefreshTokensUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.RefreshTokens("not-a-token"); !IsNotFound(err) {
		t.Fatalf("malformed token: want ErrNotFound, got %v", err)
	}
}

func TestDeleteTokensLogsOut(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	toks, err := svc.CreateTokens(ctx, "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateTokens: %v", err)
	}

	if err := svc.DeleteTokens(toks.RequestToken); err != nil {
		t.Fatalf("DeleteTokens: %v", err)
	}
	if ok, _ := svc.ValidateRequestToken(toks.RequestToken); ok {
		t.Fatal("request token still valid after logout")
	}
	if ok, _ := svc.ValidateRefreshToken(toks.RefreshToken); ok {
		t.Fatal("refresh token still valid after logout")
	}

	if err := svc.DeleteTokens(toks.RequestToken); !IsNotFound(err) {
		t.Fatalf("second logout: want ErrNotFound, got %v", err)
	}
}

func TestRequestTokenExpiry(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	toks, err := svc.CreateTokens(ctx, "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateTokens: %v", err)
	}

	*clock = clock.Add(session.RequestTokenTTL*time.Second + time.Second)

	if ok, _ := svc.ValidateRequestToken(toks.RequestToken); ok {
		t.Fatal("request token valid past its ttl")
	}
	// The refresh token outlives the request token and can still rotate.
	if _, err := svc.RefreshTokens(toks.RefreshToken); err != nil {
		t.Fatalf("RefreshTokens after request expiry: %v", err)
	}
}

func TestUserIDForRequestToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	toks, err := svc.CreateTokens(ctx, "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateTokens: %v", err)
	}

	id, err := svc.UserIDForRequestToken(toks.RequestToken)
	if err != nil {
		t.Fatalf("UserIDForRequestToken: %v", err)
	}
	if id != info.ID {
		t.Fatalf("user id = %d, want %d", id, info.ID)
	}

	if _, err := svc.UserIDForRequestToken("bogus"); !IsNotFound(err) {
		t.Fatalf("bogus token: want ErrNotFound, got %v", err)
	}
}

func TestUpdateUserKeepsCredentialsWithoutPassword(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	before, _ := users.GetByEmail(ctx, "alice@example.com")

	if _, err := svc.UpdateUser(ctx, "alice@example.com", "Alice B", "aliceb@example.com", nil); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	after, _ := users.GetByEmail(ctx, "aliceb@example.com")
	if string(after.PasswordHash) != string(before.PasswordHash) {
		t.Fatal("credentials changed without a new password")
	}

	// Login still works with the old password under the new email.
	if _, err := svc.CreateTokens(ctx, "aliceb@example.com", "pw"); err != nil {
		t.Fatalf("CreateTokens after rename: %v", err)
	}
}

func TestPermissions(t *testing.T) {
	svc, _, graph, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateUser(ctx, "Alice", "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	graph.perms[info.ID] = []rbac.Permission{{ID: 1, Name: rbac.PermRoleView}}

	ok, err := svc.HasPermission(ctx, info.ID, rbac.PermRoleView)
	if err != nil || !ok {
		t.Fatalf("HasPermission = %v, %v", ok, err)
	}
	ok, err = svc.HasPermission(ctx, info.ID, rbac.PermRoleDelete)
	if err != nil || ok {
		t.Fatalf("HasPermission for missing perm = %v, %v", ok, err)
	}

	perms, err := svc.Permissions(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Permissions: %v", err)
	}
	if len(perms) != 1 || perms[0].Name != rbac.PermRoleView {
		t.Fatalf("unexpected permissions: %+v", perms)
	}

	if _, err := svc.Permissions(ctx, "nobody@example.com"); !IsNotFound(err) {
		t.Fatalf("unknown user: want ErrNotFound, got %v", err)
	}
}
