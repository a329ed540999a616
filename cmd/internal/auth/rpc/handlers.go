package rpc

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"warden/cmd/internal/rbac"
	"warden/cmd/security/token"
)

// dispatch routes one request frame to its handler and always produces a
// response frame; failures become MethodError frames.
func (s *Server) dispatch(ctx context.Context, log *slog.Logger, msg Message) Message {
	requestsTotal.WithLabelValues(methodLabel(msg.Method)).Inc()

	var (
		resp Message
		err  error
	)
	switch msg.Method {
	case MethodInfo:
		resp, err = s.handleInfo()
	case MethodValidateToken:
		resp, err = s.handleValidateToken(msg.Data)
	case MethodGetRoles:
		resp, err = s.handleGetRoles(ctx, msg.Data)
	case MethodGetRolePermissions:
		resp, err = s.handleGetRolePermissions(ctx, msg.Data)
	case MethodCreateRole:
		resp, err = s.handleCreateRole(ctx, msg.Data)
	case MethodCreatePermission:
		resp, err = s.handleCreatePermissions(ctx, msg.Data)
	default:
		return errorFrame("Invalid Method")
	}
	if err != nil {
		log.Debug("rpc request failed", "method", msg.Method.String(), "err", err)
		return errorFrame(err.Error())
	}
	return resp
}

func (s *Server) handleInfo() (Message, error) {
	entries := []infoEntry{
		{"info", MethodInfo.String(), "Shows this entry", ""},
		{"validate token", MethodValidateToken.String(), "Validates a request token", "{token: String}"},
		{"get roles", MethodGetRoles.String(), "Returns the roles the user is assigned to", "{token: String}"},
		{"get permissions", MethodGetRolePermissions.String(), "Returns all permissions the given roles are assigned to", "{roles: [i32]}"},
		{"create role", MethodCreateRole.String(), "Creates a new role with the given permissions", "{name: String, description: String, permissions: [i32]}"},
		{"create permissions", MethodCreatePermission.String(), "Creates all given permissions if they don't exist.", "{permissions: [{name: String, description: String}]}"},
	}
	return marshalFrame(MethodInfo, entries)
}

func (s *Server) handleValidateToken(data []byte) (Message, error) {
	var req tokenRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return Message{}, err
	}
	valid, ttl := s.svc.ValidateRequestToken(req.Token)
	return marshalFrame(MethodValidateToken, tokenValidity{Valid: valid, TTL: ttl})
}

func (s *Server) handleGetRoles(ctx context.Context, data []byte) (Message, error) {
	var req tokenRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return Message{}, err
	}
	if valid, _ := s.svc.ValidateRequestToken(req.Token); !valid {
		return Message{}, errInvalidRequestToken
	}
	userID, err := token.DecodeUserID(req.Token)
	if err != nil {
		return Message{}, errInvalidRequestToken
	}
	roles, err := s.graph.ByUser(ctx, userID)
	if err != nil {
		return Message{}, err
	}
	return marshalFrame(MethodGetRoles, roles)
}

func (s *Server) handleGetRolePermissions(ctx context.Context, data []byte) (Message, error) {
	var req getPermissionsRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return Message{}, err
	}
	out := make(map[string][]rbac.Permission, len(req.Roles))
	for _, roleID := range req.Roles {
		perms, err := s.graph.ByRole(ctx, roleID)
		if err != nil {
			return Message{}, err
		}
		out[strconv.FormatInt(int64(roleID), 10)] = perms
	}
	return marshalFrame(MethodGetRolePermissions, out)
}

func (s *Server) handleCreateRole(ctx context.Context, data []byte) (Message, error) {
	var req createRoleRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return Message{}, err
	}
	role, err := s.graph.CreateRole(ctx, req.Name, req.Description, req.Permissions)
	if err != nil {
		return Message{}, err
	}
	return marshalFrame(MethodCreateRole, role)
}

func (s *Server) handleCreatePermissions(ctx context.Context, data []byte) (Message, error) {
	var req createPermissionsRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return Message{}, err
	}
	perms, err := s.graph.CreatePermissions(ctx, req.Permissions)
	if err != nil {
		return Message{}, err
	}
	return marshalFrame(MethodCreatePermission, perms)
}

// ---- helpers ----

type rpcError string

func (e rpcError) Error() string { return string(e) }

const errInvalidRequestToken = rpcError("Invalid request token")

func marshalFrame(method Method, v any) (Message, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Method: method, Data: data}, nil
}

func errorFrame(msg string) Message {
	data, err := msgpack.Marshal(errorMessage{Message: msg})
	if err != nil {
		// Marshaling a plain struct of one string cannot fail; an empty
		// error frame is still a valid response.
		data = nil
	}
	return Message{Method: MethodError, Data: data}
}

func methodLabel(m Method) string {
	switch m {
	case MethodInfo:
		return "info"
	case MethodValidateToken:
		return "validate_token"
	case MethodGetRoles:
		return "get_roles"
	case MethodGetRolePermissions:
		return "get_role_permissions"
	case MethodCreateRole:
		return "create_role"
	case MethodCreatePermission:
		return "create_permission"
	default:
		return "unknown"
	}
}
