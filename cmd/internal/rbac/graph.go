package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRoleName is the reserved system role. It cannot be renamed or
// deleted; new roles and permissions are attached to it on creation.
// Single reserved role today; if more are ever needed this becomes a
// system-managed flag on the role row.
const AdminRoleName = "SUPERADMIN"

// Role is one row of the roles table.
type Role struct {
	ID          int32   `json:"id" msgpack:"id"`
	Name        string  `json:"name" msgpack:"name"`
	Description *string `json:"description" msgpack:"description"`
}

// Permission is one row of the permissions table.
type Permission struct {
	ID          int32   `json:"id" msgpack:"id"`
	Name        string  `json:"name" msgpack:"name"`
	Description *string `json:"description" msgpack:"description"`
}

// PermissionEntry is the input shape for bulk permission creation.
type PermissionEntry struct {
	Name        string `json:"name" msgpack:"name"`
	Description string `json:"description" msgpack:"description"`
}

// Graph is the transactional manager over the role/permission/assignment
// relations. The pgx pool is owned by the caller and hands out a connection
// per call; Graph never closes it.
type Graph struct {
	log  *slog.Logger
	pool *pgxpool.Pool

	// adminEmail identifies the admin principal that newly created roles
	// are attached to best-effort.
	adminEmail string
}

// Option configures a Graph.
type Option func(*Graph)

// WithAdminEmail overrides the admin principal used for best-effort
// role assignment (default DefaultAdminEmail).
func WithAdminEmail(email string) Option {
	return func(g *Graph) {
		if email != "" {
			g.adminEmail = email
		}
	}
}

// NewGraph constructs a Graph over the given pool.
func NewGraph(log *slog.Logger, pool *pgxpool.Pool, opts ...Option) (*Graph, error) {
	if log == nil {
		log = slog.Default()
	}
	if pool == nil {
		return nil, errors.New("rbac: nil pool")
	}
	g := &Graph{log: log, pool: pool, adminEmail: DefaultAdminEmail}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// GetRole loads a role by name.
func (g *Graph) GetRole(ctx context.Context, name string) (Role, error) {
	var r Role
	err := g.pool.QueryRow(ctx,
		`SELECT id, name, description FROM roles WHERE name = $1`,
		name,
	).Scan(&r.ID, &r.Name, &r.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	return r, nil
}

// GetRoles lists all roles.
func (g *Graph) GetRoles(ctx context.Context) ([]Role, error) {
	rows, err := g.pool.Query(ctx, `SELECT id, name, description FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// ByRole lists the permissions granted to a role.
func (g *Graph) ByRole(ctx context.Context, roleID int32) ([]Permission, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT p.id, p.name, p.description
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.id
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// ByUser lists the roles assigned to a user.
func (g *Graph) ByUser(ctx context.Context, userID int32) ([]Role, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT r.id, r.name, r.description
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// PermissionsByUser lists every permission a user holds through any role.
func (g *Graph) PermissionsByUser(ctx context.Context, userID int32) ([]Permission, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT DISTINCT p.id, p.name, p.description
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// HasPermission answers whether userID holds the named permission through
// any of its roles. This runs on every privileged call, so the query
// short-circuits on the first matching join row.
func (g *Graph) HasPermission(ctx context.Context, userID int32, permission string) (bool, error) {
	var exists bool
	err := g.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1 AND p.name = $2
		)
	`, userID, permission).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetNotExisting returns the subset of candidate permission ids absent from
// the permissions table, for pre-validating bulk inputs.
func (g *Graph) GetNotExisting(ctx context.Context, candidates []int32) ([]int32, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	rows, err := g.pool.Query(ctx,
		`SELECT id FROM permissions WHERE id = ANY($1)`, candidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[int32]struct{}, len(candidates))
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int32
	seen := make(map[int32]struct{}, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var out []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
