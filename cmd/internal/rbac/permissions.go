package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Built-in permission catalog guarding the management surface itself.
const (
	PermRoleView   = "ROLE_VIEW"
	PermRoleCreate = "ROLE_CREATE"
	PermRoleUpdate = "ROLE_UPDATE"
	PermRoleDelete = "ROLE_DELETE"
	PermUserView   = "USER_VIEW"
	PermUserUpdate = "USER_UPDATE"
)

// BuiltinPermissions is seeded at bootstrap and attached to the admin role.
var BuiltinPermissions = []PermissionEntry{
	{Name: PermRoleView, Description: "Allows seeing role information"},
	{Name: PermRoleCreate, Description: "Allows creating roles"},
	{Name: PermRoleUpdate, Description: "Allows updating roles"},
	{Name: PermRoleDelete, Description: "Allows deleting roles"},
	{Name: PermUserView, Description: "Allows seeing user information"},
	{Name: PermUserUpdate, Description: "Allows changing a user's name, email and password"},
}

// CreatePermissions creates every permission that does not exist yet and
// returns the full resolved list, existing rows included (idempotent bulk
// create). Each newly inserted permission is attached to the admin role
// best-effort: the attach runs in a savepoint and a failure is logged,
// never propagated.
func (g *Graph) CreatePermissions(ctx context.Context, entries []PermissionEntry) ([]Permission, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Permission, 0, len(entries))
	for _, entry := range entries {
		var p Permission
		err := tx.QueryRow(ctx,
			`SELECT id, name, description FROM permissions WHERE name = $1`,
			entry.Name,
		).Scan(&p.ID, &p.Name, &p.Description)
		switch {
		case err == nil:
			out = append(out, p)
			continue
		case errors.Is(err, pgx.ErrNoRows):
			// Falls through to insert.
		default:
			return nil, err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO permissions (name, description) VALUES ($1, $2) RETURNING id, name, description`,
			entry.Name, entry.Description,
		).Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}

		g.attachPermissionToAdminRoleTx(ctx, tx, p)
		out = append(out, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Graph) attachPermissionToAdminRoleTx(ctx context.Context, tx pgx.Tx, p Permission) {
	inner, err := tx.Begin(ctx)
	if err != nil {
		g.log.Debug("rbac.admin_attach.skip", "permission", p.Name, "err", err)
		return
	}

	_, err = inner.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ((SELECT id FROM roles WHERE name = $1), $2)
	`, AdminRoleName, p.ID)
	if err != nil {
		_ = inner.Rollback(ctx)
		g.log.Debug("rbac.admin_attach.fail", "permission", p.Name, "err", err)
		return
	}
	if err := inner.Commit(ctx); err != nil {
		g.log.Debug("rbac.admin_attach.fail", "permission", p.Name, "err", err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
