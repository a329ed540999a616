package rbac

import "context"

// DefaultAdminEmail is the admin principal seeded at bootstrap when no
// override is configured.
const DefaultAdminEmail = "admin@warden.local"

// InitSchema creates the relation tables if they do not exist. The users
// table is owned by the identity store and must exist before this runs;
// the join tables reference it.
func (g *Graph) InitSchema(ctx context.Context) error {
	_, err := g.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS roles (
			id          SERIAL PRIMARY KEY,
			name        VARCHAR(128) UNIQUE NOT NULL,
			description VARCHAR(512)
		);

		CREATE TABLE IF NOT EXISTS permissions (
			id          SERIAL PRIMARY KEY,
			name        VARCHAR(128) UNIQUE NOT NULL,
			description VARCHAR(512)
		);

		CREATE TABLE IF NOT EXISTS user_roles (
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id INT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, role_id)
		);

		CREATE TABLE IF NOT EXISTS role_permissions (
			role_id       INT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id INT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		);
	`)
	return err
}
