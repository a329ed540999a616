package identity

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require WARDEN_DATABASE_URL.

func TestPostgresStoreUserLifecycle(t *testing.T) {
	pool := mustOpenTestPool(t)
	defer pool.Close()

	store := mustNewUserStore(t, pool)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	email := testEmail("alice")
	created, err := store.Create(ctx, "Alice", email, []byte("hash"), []byte("salt"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(context.Background(), created.Email) })

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != created {
		t.Fatalf("get = %+v, want %+v", got, created)
	}

	full, err := store.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if string(full.PasswordHash) != "hash" || string(full.Salt) != "salt" {
		t.Fatalf("credential material lost: %+v", full)
	}

	renamed := testEmail("alice-b")
	updated, err := store.Update(ctx, email, "Alice B", renamed, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Email != renamed {
		t.Fatalf("update = %+v", updated)
	}
	full, err = store.GetByEmail(ctx, renamed)
	if err != nil {
		t.Fatalf("get by new email: %v", err)
	}
	if string(full.PasswordHash) != "hash" {
		t.Fatal("update without hash must keep credentials")
	}

	if err := store.Delete(ctx, renamed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("get after delete: want ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, renamed); !IsNotFound(err) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestPostgresStoreCreateConflict(t *testing.T) {
	pool := mustOpenTestPool(t)
	defer pool.Close()

	store := mustNewUserStore(t, pool)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	email := testEmail("dup")
	created, err := store.Create(ctx, "First", email, []byte("h"), []byte("s"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(context.Background(), created.Email) })

	if _, err := store.Create(ctx, "Second", email, []byte("h"), []byte("s")); !IsConflict(err) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("WARDEN_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: WARDEN_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("integration test skipped: Postgres unreachable: %v", err)
	}
	return pool
}

func mustNewUserStore(t *testing.T, pool *pgxpool.Pool) *PostgresStore {
	t.Helper()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return store
}

// testEmail makes per-run unique addresses so reruns do not collide.
func testEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@warden.test", prefix, time.Now().UnixNano())
}
