// Package rbac manages Warden's role and permission relations.
//
// The model is the classic three-entity graph: permissions are granted to
// roles, roles are granted to users. Membership questions resolve through
// relational joins; every multi-statement mutation runs inside one
// all-or-nothing transaction so partial linkage is never observable. The
// reserved SUPERADMIN role cannot be renamed or deleted, and newly created
// roles and permissions are attached to the admin principal best-effort;
// a failure there is logged and swallowed, never rolled into the primary
// operation's outcome.
package rbac
