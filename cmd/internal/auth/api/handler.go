package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"warden/cmd/identity"
	"warden/cmd/internal/rbac"
)

// RoleGraph is the slice of the permission graph the REST surface
// administers.
type RoleGraph interface {
	GetRole(ctx context.Context, name string) (rbac.Role, error)
	GetRoles(ctx context.Context) ([]rbac.Role, error)
	ByRole(ctx context.Context, roleID int32) ([]rbac.Permission, error)
	GetNotExisting(ctx context.Context, candidates []int32) ([]int32, error)
	CreateRole(ctx context.Context, name string, description *string, permissionIDs []int32) (rbac.Role, error)
	UpdateRole(ctx context.Context, oldName, newName string, description *string, permissionIDs []int32) (rbac.Role, error)
	DeleteRole(ctx context.Context, name string) error
}

// Handler wires the REST endpoints to the identity facade and role graph.
type Handler struct {
	log   *slog.Logger
	cfg   Config
	svc   *identity.Service
	graph RoleGraph
}

// NewHandler constructs the auth Handler.
func NewHandler(log *slog.Logger, cfg Config, svc *identity.Service, graph RoleGraph) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("authapi: nil identity service")
	}
	if graph == nil {
		return nil, errors.New("authapi: nil role graph")
	}
	return &Handler{log: log, cfg: cfg, svc: svc, graph: graph}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/info", h.handleInfo)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/new-token", h.handleRefresh)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.HandleFunc("/roles", h.handleRolesList)
	mux.HandleFunc("/roles/", h.handleRolesSub)
}

// ---- token handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	tokens, err := h.svc.CreateTokens(r.Context(), email, req.Password)
	if err != nil {
		if identity.IsCredentials(err) {
			loginsTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	// Clear the token material once the response is written.
	defer tokens.Scrub()

	loginsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	tokens, err := h.svc.RefreshTokens(refreshToken)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusBadRequest, "invalid_token", "invalid refresh token")
			return
		}
		h.log.Error("token refresh failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	defer tokens.Scrub()

	refreshesTotal.Inc()
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// The request token comes from the body, falling back to the
	// Authorization header.
	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}
	requestToken := strings.TrimSpace(req.RequestToken)
	if requestToken == "" {
		requestToken = bearerToken(r)
	}
	if requestToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_token is required")
		return
	}

	if err := h.svc.DeleteTokens(requestToken); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token", "invalid request token")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ---- helpers ----

// requirePermission authenticates the bearer request token and checks the
// named permission. It writes the error response itself when the check
// fails.
func (h *Handler) requirePermission(w http.ResponseWriter, r *http.Request, permission string) (int32, bool) {
	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return 0, false
	}
	userID, err := h.svc.UserIDForRequestToken(tok)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid request token")
		return 0, false
	}
	ok, err := h.svc.HasPermission(r.Context(), userID, permission)
	if err != nil {
		h.log.Error("permission check failed", "err", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return 0, false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "missing permission "+permission)
		return 0, false
	}
	return userID, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
