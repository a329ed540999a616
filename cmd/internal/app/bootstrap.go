package app

import (
	"context"

	"warden/cmd/identity"
	"warden/cmd/internal/rbac"
)

// bootstrap brings up the schema and seeds the admin principal. Every
// step is idempotent so restarts are safe.
func (a *App) bootstrap(ctx context.Context) error {
	// The role graph references the users table, so users come first.
	if err := a.users.InitSchema(ctx); err != nil {
		return err
	}
	if err := a.graph.InitSchema(ctx); err != nil {
		return err
	}

	if a.cfg.AdminPassword != "" {
		email := a.cfg.AdminEmail
		if email == "" {
			email = rbac.DefaultAdminEmail
		}
		_, err := a.svc.CreateUser(ctx, "Warden Admin", email, a.cfg.AdminPassword)
		switch {
		case err == nil:
			a.log.Info("bootstrap.admin_user.created", "email", email)
		case identity.IsConflict(err):
			// Already seeded.
		default:
			return err
		}
	}

	if _, err := a.graph.CreateRole(ctx, rbac.AdminRoleName, nil, nil); err != nil && !rbac.IsConflict(err) {
		return err
	}
	if _, err := a.graph.CreatePermissions(ctx, rbac.BuiltinPermissions); err != nil {
		return err
	}
	return a.ensureAdminRole(ctx)
}

// ensureAdminRole makes sure the seeded admin user actually holds the
// reserved role. Role creation attaches it only when both rows already
// exist, which is not the case on the very first boot.
func (a *App) ensureAdminRole(ctx context.Context) error {
	email := a.cfg.AdminEmail
	if email == "" {
		email = rbac.DefaultAdminEmail
	}
	admin, err := a.svc.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			return nil
		}
		return err
	}

	roles, err := a.graph.ByUser(ctx, admin.ID)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		if r.Name == rbac.AdminRoleName {
			return nil
		}
		names = append(names, r.Name)
	}
	_, err = a.graph.UpdateUserRoles(ctx, admin.ID, append(names, rbac.AdminRoleName))
	return err
}
