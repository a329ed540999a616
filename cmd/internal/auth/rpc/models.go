package rpc

import "warden/cmd/internal/rbac"

type tokenRequest struct {
	Token string `msgpack:"token"`
}

type getPermissionsRequest struct {
	Roles []int32 `msgpack:"roles"`
}

type createRoleRequest struct {
	Name        string  `msgpack:"name"`
	Description *string `msgpack:"description"`
	Permissions []int32 `msgpack:"permissions"`
}

type createPermissionsRequest struct {
	Permissions []rbac.PermissionEntry `msgpack:"permissions"`
}

// tokenValidity is serialized as the 2-element array [valid, ttl] rather
// than a map; clients index it positionally.
type tokenValidity struct {
	_msgpack struct{} `msgpack:",as_array"`

	Valid bool
	TTL   int32
}

type errorMessage struct {
	Message string `msgpack:"message"`
}

// infoEntry documents one method for MethodInfo responses.
type infoEntry struct {
	Name        string `msgpack:"name"`
	Method      string `msgpack:"method"`
	Description string `msgpack:"description"`
	Data        string `msgpack:"data"`
}
