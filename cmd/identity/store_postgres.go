package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements UserStore over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must not close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// InitSchema creates the users table when it does not exist yet. The role
// graph references it, so it must be created before rbac.InitSchema.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            SERIAL PRIMARY KEY,
			name          VARCHAR(255) NOT NULL,
			email         VARCHAR(255) UNIQUE NOT NULL,
			password_hash BYTEA NOT NULL,
			salt          BYTEA NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("identity: init schema: %w", err)
	}
	return nil
}

// Create inserts a new user record.
func (s *PostgresStore) Create(ctx context.Context, name, email string, hash, salt []byte) (UserInfo, error) {
	var out UserInfo
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, salt)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, email`,
		name, email, hash, salt,
	).Scan(&out.ID, &out.Name, &out.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return UserInfo{}, ErrConflict
		}
		return UserInfo{}, err
	}
	return out, nil
}

// Get returns the public projection of the user with the given id.
func (s *PostgresStore) Get(ctx context.Context, id int32) (UserInfo, error) {
	var out UserInfo
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, id,
	).Scan(&out.ID, &out.Name, &out.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserInfo{}, ErrNotFound
		}
		return UserInfo{}, err
	}
	return out, nil
}

// GetByEmail returns the full record, including credential material.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	var out User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, salt FROM users WHERE email = $1`, email,
	).Scan(&out.ID, &out.Name, &out.Email, &out.PasswordHash, &out.Salt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return out, nil
}

// List returns every user ordered by id.
func (s *PostgresStore) List(ctx context.Context) ([]UserInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserInfo
	for rows.Next() {
		var u UserInfo
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update rewrites the user identified by oldEmail. A nil hash keeps the
// stored credential material unchanged.
func (s *PostgresStore) Update(ctx context.Context, oldEmail, name, email string, hash, salt []byte) (UserInfo, error) {
	var (
		out UserInfo
		err error
	)
	if hash == nil {
		err = s.pool.QueryRow(ctx,
			`UPDATE users SET name = $1, email = $2
			 WHERE email = $3
			 RETURNING id, name, email`,
			name, email, oldEmail,
		).Scan(&out.ID, &out.Name, &out.Email)
	} else {
		err = s.pool.QueryRow(ctx,
			`UPDATE users SET name = $1, email = $2, password_hash = $3, salt = $4
			 WHERE email = $5
			 RETURNING id, name, email`,
			name, email, hash, salt, oldEmail,
		).Scan(&out.ID, &out.Name, &out.Email)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserInfo{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return UserInfo{}, ErrConflict
		}
		return UserInfo{}, err
	}
	return out, nil
}

// Delete removes the user with the given email. Role assignments cascade.
func (s *PostgresStore) Delete(ctx context.Context, email string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
