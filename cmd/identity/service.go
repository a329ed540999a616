package identity

import (
	"context"
	"log/slog"
	"time"

	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/rbac"
	"warden/cmd/security/password"
	"warden/cmd/security/token"
)

// Service is the authentication facade shared by the HTTP and RPC
// transports. It is safe for concurrent use.
type Service struct {
	log      *slog.Logger
	users    UserStore
	graph    PermissionGraph
	sessions *session.Store

	// now is swapped out in tests to control clock-driven expiry.
	now func() time.Time
}

// NewService wires the facade together.
func NewService(log *slog.Logger, users UserStore, graph PermissionGraph, sessions *session.Store) *Service {
	return &Service{
		log:      log,
		users:    users,
		graph:    graph,
		sessions: sessions,
		now:      time.Now,
	}
}

// CreateUser registers a new user with a fresh salt and password hash.
func (s *Service) CreateUser(ctx context.Context, name, email, pw string) (UserInfo, error) {
	salt, err := password.CreateSalt()
	if err != nil {
		return UserInfo{}, err
	}
	hash, err := password.Hash([]byte(pw), salt)
	if err != nil {
		return UserInfo{}, err
	}
	info, err := s.users.Create(ctx, name, email, hash, salt)
	if err != nil {
		return UserInfo{}, err
	}
	s.log.Info("user created", "user_id", info.ID, "email", info.Email)
	return info, nil
}

// UpdateUser rewrites the user identified by oldEmail. A nil pw keeps the
// stored credentials; a non-nil pw re-salts and re-hashes.
func (s *Service) UpdateUser(ctx context.Context, oldEmail, name, email string, pw *string) (UserInfo, error) {
	var hash, salt []byte
	if pw != nil {
		var err error
		salt, err = password.CreateSalt()
		if err != nil {
			return UserInfo{}, err
		}
		hash, err = password.Hash([]byte(*pw), salt)
		if err != nil {
			return UserInfo{}, err
		}
	}
	info, err := s.users.Update(ctx, oldEmail, name, email, hash, salt)
	if err != nil {
		return UserInfo{}, err
	}
	s.log.Info("user updated", "user_id", info.ID, "email", info.Email)
	return info, nil
}

// DeleteUser removes the user with the given email.
func (s *Service) DeleteUser(ctx context.Context, email string) error {
	if err := s.users.Delete(ctx, email); err != nil {
		return err
	}
	s.log.Info("user deleted", "email", email)
	return nil
}

// GetUser returns the public projection of the user with the given id.
func (s *Service) GetUser(ctx context.Context, id int32) (UserInfo, error) {
	return s.users.Get(ctx, id)
}

// GetUserByEmail returns the public projection of the user with the
// given email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (UserInfo, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return UserInfo{}, err
	}
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// ListUsers returns the public projection of every user.
func (s *Service) ListUsers(ctx context.Context) ([]UserInfo, error) {
	return s.users.List(ctx)
}

// CreateTokens performs a login: it verifies the password and registers a
// fresh token pair in the session store. A missing user and a wrong
// password are indistinguishable to the caller; both yield ErrCredentials.
func (s *Service) CreateTokens(ctx context.Context, email, pw string) (session.Tokens, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return session.Tokens{}, ErrCredentials
		}
		return session.Tokens{}, err
	}

	ok, err := password.Verify([]byte(pw), u.Salt, u.PasswordHash)
	if err != nil {
		return session.Tokens{}, err
	}
	if !ok {
		s.log.Debug("login rejected", "email", email)
		return session.Tokens{}, ErrCredentials
	}

	requestToken, err := token.New(u.ID)
	if err != nil {
		return session.Tokens{}, err
	}
	refreshToken, err := token.New(u.ID)
	if err != nil {
		return session.Tokens{}, err
	}
	if err := s.sessions.Insert(s.now(), requestToken, refreshToken); err != nil {
		return session.Tokens{}, err
	}

	s.log.Info("session created", "user_id", u.ID)
	return session.Tokens{
		RequestToken: requestToken,
		RefreshToken: refreshToken,
		RequestTTL:   session.RequestTokenTTL,
		RefreshTTL:   session.RefreshTokenTTL,
	}, nil
}

// ValidateRequestToken reports whether tok is a live request token and
// its remaining lifetime in seconds. Unknown or expired tokens yield
// (false, -1).
func (s *Service) ValidateRequestToken(tok string) (bool, int32) {
	ttl, ok := s.sessions.RequestTokenTTL(s.now(), tok)
	if !ok {
		return false, -1
	}
	return true, ttl
}

// ValidateRefreshToken reports whether tok is a live refresh token and
// its remaining lifetime in seconds.
func (s *Service) ValidateRefreshToken(tok string) (bool, int32) {
	ttl, ok := s.sessions.RefreshTokenTTL(s.now(), tok)
	if !ok {
		return false, -1
	}
	return true, ttl
}

// RefreshTokens rotates the session identified by refreshToken: it mints
// a replacement request token and resets both lifetimes. The refresh
// token itself is kept. Returns ErrNotFound when the refresh token is
// unknown or expired.
func (s *Service) RefreshTokens(refreshToken string) (session.Tokens, error) {
	userID, err := token.DecodeUserID(refreshToken)
	if err != nil {
		return session.Tokens{}, ErrNotFound
	}
	requestToken, err := token.New(userID)
	if err != nil {
		return session.Tokens{}, err
	}
	if !s.sessions.Rotate(s.now(), refreshToken, requestToken) {
		return session.Tokens{}, ErrNotFound
	}

	s.log.Debug("session rotated", "user_id", userID)
	return session.Tokens{
		RequestToken: requestToken,
		RefreshToken: refreshToken,
		RequestTTL:   session.RequestTokenTTL,
		RefreshTTL:   session.RefreshTokenTTL,
	}, nil
}

// DeleteTokens performs a logout: the session holding requestToken is
// invalidated. Returns ErrNotFound when the request token is unknown or
// already expired.
func (s *Service) DeleteTokens(requestToken string) error {
	if !s.sessions.Invalidate(s.now(), requestToken) {
		return ErrNotFound
	}
	return nil
}

// UserIDForRequestToken resolves a live request token to its user id.
// Returns ErrNotFound when the token is unknown, malformed or expired.
func (s *Service) UserIDForRequestToken(tok string) (int32, error) {
	if ok, _ := s.ValidateRequestToken(tok); !ok {
		return 0, ErrNotFound
	}
	userID, err := token.DecodeUserID(tok)
	if err != nil {
		return 0, ErrNotFound
	}
	return userID, nil
}

// HasPermission reports whether the user holds the named permission.
func (s *Service) HasPermission(ctx context.Context, userID int32, permission string) (bool, error) {
	return s.graph.HasPermission(ctx, userID, permission)
}

// Permissions returns the distinct permissions of the user with the
// given email.
func (s *Service) Permissions(ctx context.Context, email string) ([]rbac.Permission, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.graph.PermissionsByUser(ctx, u.ID)
}
