package identity

import (
	"context"

	"warden/cmd/internal/rbac"
)

// User is the stored user record including credential material. It is
// internal plumbing between the store and the Service; transports never
// see it.
type User struct {
	ID           int32
	Name         string
	Email        string
	PasswordHash []byte
	Salt         []byte
}

// UserInfo is the public projection of a user, safe to serialize.
type UserInfo struct {
	ID    int32  `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Email string `json:"email" msgpack:"email"`
}

// UserStore persists user records.
//
// Implementations map storage-level uniqueness violations to ErrConflict
// and missing rows to ErrNotFound.
type UserStore interface {
	// Create inserts a new user with the given credential material.
	Create(ctx context.Context, name, email string, hash, salt []byte) (UserInfo, error)

	// Get returns the public projection of the user with the given id.
	Get(ctx context.Context, id int32) (UserInfo, error)

	// GetByEmail returns the full record for the user with the given
	// email, including credential material.
	GetByEmail(ctx context.Context, email string) (User, error)

	// List returns the public projection of every user.
	List(ctx context.Context) ([]UserInfo, error)

	// Update rewrites the user identified by oldEmail. A nil hash keeps
	// the stored credential material unchanged.
	Update(ctx context.Context, oldEmail, name, email string, hash, salt []byte) (UserInfo, error)

	// Delete removes the user with the given email.
	Delete(ctx context.Context, email string) error
}

// PermissionGraph is the slice of the role graph the facade needs for
// authorization checks.
type PermissionGraph interface {
	HasPermission(ctx context.Context, userID int32, permission string) (bool, error)
	PermissionsByUser(ctx context.Context, userID int32) ([]rbac.Permission, error)
}
