package authapi

import (
	"fmt"
	"net/http"
	"strings"

	"warden/cmd/internal/rbac"
)

// handleRolesList serves GET /roles.
func (h *Handler) handleRolesList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requirePermission(w, r, rbac.PermRoleView); !ok {
		return
	}

	roles, err := h.graph.GetRoles(r.Context())
	if err != nil {
		h.log.Error("role list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// handleRolesSub dispatches the /roles/ subtree: the create/update/delete
// verbs, and GET /roles/{name} for everything else.
func (h *Handler) handleRolesSub(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/roles/")
	switch suffix {
	case "create":
		h.handleRoleCreate(w, r)
	case "update":
		h.handleRoleUpdate(w, r)
	case "delete":
		h.handleRoleDelete(w, r)
	default:
		h.handleRoleGet(w, r, suffix)
	}
}

func (h *Handler) handleRoleGet(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not_found", "role does not exist")
		return
	}
	if _, ok := h.requirePermission(w, r, rbac.PermRoleView); !ok {
		return
	}

	ctx := r.Context()
	role, err := h.graph.GetRole(ctx, name)
	if err != nil {
		if rbac.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", "role does not exist")
			return
		}
		h.log.Error("role get failed", "err", err, "role", name)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	perms, err := h.graph.ByRole(ctx, role.ID)
	if err != nil {
		h.log.Error("role permissions failed", "err", err, "role", name)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
	})
}

func (h *Handler) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requirePermission(w, r, rbac.PermRoleCreate); !ok {
		return
	}

	var req createRoleRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	ctx := r.Context()

	// Reject unknown permission ids up front for a precise message; the
	// graph re-validates inside its transaction.
	missing, err := h.graph.GetNotExisting(ctx, req.Permissions)
	if err != nil {
		h.log.Error("permission lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("permissions do not exist: %v", missing))
		return
	}

	role, err := h.graph.CreateRole(ctx, name, req.Description, req.Permissions)
	if err != nil {
		h.writeRoleMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *Handler) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requirePermission(w, r, rbac.PermRoleUpdate); !ok {
		return
	}

	var req updateRoleRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	newName := name
	if req.NewName != nil && strings.TrimSpace(*req.NewName) != "" {
		newName = strings.TrimSpace(*req.NewName)
	}

	role, err := h.graph.UpdateRole(r.Context(), name, newName, req.Description, req.Permissions)
	if err != nil {
		h.writeRoleMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *Handler) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.requirePermission(w, r, rbac.PermRoleDelete); !ok {
		return
	}

	var req deleteRoleRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	if err := h.graph.DeleteRole(r.Context(), name); err != nil {
		h.writeRoleMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeRoleMutationError maps graph errors onto HTTP statuses.
func (h *Handler) writeRoleMutationError(w http.ResponseWriter, err error) {
	switch {
	case rbac.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "role already exists")
	case rbac.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "role does not exist")
	case rbac.IsValidation(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.Error("role mutation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
