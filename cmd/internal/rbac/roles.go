package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CreateRole creates a role with the given permissions granted to it.
//
// The permission ids are re-validated inside the transaction, so a
// pre-validation by the caller cannot race a concurrent permission delete.
// On success the new role is also assigned to the admin user; that last
// step is best-effort (savepoint-guarded, logged on failure) and never
// affects the primary outcome. Any other failure rolls the whole
// transaction back.
func (g *Graph) CreateRole(ctx context.Context, name string, description *string, permissionIDs []int32) (Role, error) {
	permissionIDs = dedupe(permissionIDs)

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return Role{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name,
	).Scan(&exists); err != nil {
		return Role{}, err
	}
	if exists {
		return Role{}, ErrConflict
	}

	missing, err := missingPermissionsTx(ctx, tx, permissionIDs)
	if err != nil {
		return Role{}, err
	}
	if len(missing) > 0 {
		return Role{}, MissingPermissionsError{IDs: missing}
	}

	var role Role
	if err := tx.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id, name, description`,
		name, description,
	).Scan(&role.ID, &role.Name, &role.Description); err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrConflict
		}
		return Role{}, err
	}

	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			role.ID, permID,
		); err != nil {
			return Role{}, err
		}
	}

	g.assignRoleToAdminTx(ctx, tx, role)

	if err := tx.Commit(ctx); err != nil {
		return Role{}, err
	}
	return role, nil
}

// UpdateRole renames a role and reconciles its permission grants.
//
// The reserved admin role is immutable. The grant delta is the symmetric
// difference between current and requested permission ids; only the
// necessary inserts and deletes are issued.
func (g *Graph) UpdateRole(ctx context.Context, oldName, newName string, description *string, permissionIDs []int32) (Role, error) {
	if oldName == AdminRoleName {
		return Role{}, reservedRoleError()
	}
	permissionIDs = dedupe(permissionIDs)

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return Role{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var roleID int32
	err = tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, oldName).Scan(&roleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}

	// Collision only counts against a different role; renaming to the
	// current name is a no-op, not a conflict.
	var clash bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND id <> $2)`,
		newName, roleID,
	).Scan(&clash); err != nil {
		return Role{}, err
	}
	if clash {
		return Role{}, ErrConflict
	}

	missing, err := missingPermissionsTx(ctx, tx, permissionIDs)
	if err != nil {
		return Role{}, err
	}
	if len(missing) > 0 {
		return Role{}, MissingPermissionsError{IDs: missing}
	}

	var role Role
	if err := tx.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3 WHERE id = $1 RETURNING id, name, description`,
		roleID, newName, description,
	).Scan(&role.ID, &role.Name, &role.Description); err != nil {
		return Role{}, err
	}

	current, err := grantedPermissionsTx(ctx, tx, roleID)
	if err != nil {
		return Role{}, err
	}

	requested := make(map[int32]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		requested[id] = struct{}{}
	}

	for _, id := range permissionIDs {
		if _, ok := current[id]; ok {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			roleID, id,
		); err != nil {
			return Role{}, err
		}
	}
	for id := range current {
		if _, ok := requested[id]; ok {
			continue
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
			roleID, id,
		); err != nil {
			return Role{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role; dependent join rows go with it via cascade.
// The reserved admin role cannot be deleted.
func (g *Graph) DeleteRole(ctx context.Context, name string) error {
	if name == AdminRoleName {
		return reservedRoleError()
	}

	tag, err := g.pool.Exec(ctx, `DELETE FROM roles WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserRoles reconciles a user's role assignment against the requested
// role names and returns the resolved role set. Names that resolve to no
// role are ignored.
func (g *Graph) UpdateUserRoles(ctx context.Context, userID int32, roleNames []string) ([]Role, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT id FROM roles WHERE name = ANY($1)`, roleNames)
	if err != nil {
		return nil, err
	}
	requested, err := scanIDSet(rows)
	if err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	current, err := scanIDSet(rows)
	if err != nil {
		return nil, err
	}

	for id := range requested {
		if _, ok := current[id]; ok {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
			userID, id,
		); err != nil {
			return nil, err
		}
	}
	for id := range current {
		if _, ok := requested[id]; ok {
			continue
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
			userID, id,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g.ByUser(ctx, userID)
}

// assignRoleToAdminTx attaches a freshly created role to the admin user
// inside a savepoint, so a failure aborts only the side effect and not the
// enclosing transaction.
func (g *Graph) assignRoleToAdminTx(ctx context.Context, tx pgx.Tx, role Role) {
	inner, err := tx.Begin(ctx)
	if err != nil {
		g.log.Debug("rbac.admin_assign.skip", "role", role.Name, "err", err)
		return
	}

	_, err = inner.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ((SELECT id FROM users WHERE email = $1), $2)
	`, g.adminEmail, role.ID)
	if err != nil {
		_ = inner.Rollback(ctx)
		g.log.Debug("rbac.admin_assign.fail", "role", role.Name, "err", err)
		return
	}
	if err := inner.Commit(ctx); err != nil {
		g.log.Debug("rbac.admin_assign.fail", "role", role.Name, "err", err)
	}
}

func reservedRoleError() error {
	return MutationError{Msg: "the admin role cannot be altered"}
}

// MutationError reports a forbidden mutation. It unwraps to ErrValidation.
type MutationError struct {
	Msg string
}

func (e MutationError) Error() string { return ErrValidation.Error() + ": " + e.Msg }

func (e MutationError) Unwrap() error { return ErrValidation }

func missingPermissionsTx(ctx context.Context, tx pgx.Tx, ids []int32) ([]int32, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `SELECT id FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	existing, err := scanIDSet(rows)
	if err != nil {
		return nil, err
	}

	var missing []int32
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func grantedPermissionsTx(ctx context.Context, tx pgx.Tx, roleID int32) (map[int32]struct{}, error) {
	rows, err := tx.Query(ctx,
		`SELECT permission_id FROM role_permissions WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	return scanIDSet(rows)
}

func scanIDSet(rows pgx.Rows) (map[int32]struct{}, error) {
	defer rows.Close()
	set := make(map[int32]struct{})
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// dedupe returns a fresh slice; the caller's slice is left untouched.
func dedupe(ids []int32) []int32 {
	seen := make(map[int32]struct{}, len(ids))
	out := make([]int32, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
