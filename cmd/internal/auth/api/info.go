package authapi

import "net/http"

// routeDoc documents one REST endpoint for /info responses.
type routeDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Body        string `json:"body,omitempty"`
}

// handleInfo serves GET /info, a self-description of the REST surface.
// The endpoint is unauthenticated; it exposes route shapes, not data.
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	docs := []routeDoc{
		{http.MethodGet, "/info", "Shows this entry", ""},
		{http.MethodPost, "/login", "Returns request and refresh tokens",
			`{"email": String, "password": String}`},
		{http.MethodPost, "/new-token", "Returns a new request token",
			`{"refresh_token": String}`},
		{http.MethodPost, "/logout", "Invalidates the refresh and request tokens",
			`{"request_token": String}`},
		{http.MethodGet, "/roles", "Returns a list of all roles", ""},
		{http.MethodGet, "/roles/{name}", "Returns the role with the given name", ""},
		{http.MethodPost, "/roles/create", "Creates a new role",
			`{"name": String, "description": String, "permissions": [i32]}`},
		{http.MethodPost, "/roles/update", "Updates an existing role",
			`{"name": String, "new_name": String, "description": String, "permissions": [i32]}`},
		{http.MethodPost, "/roles/delete", "Deletes a role",
			`{"name": String}`},
	}
	writeJSON(w, http.StatusOK, docs)
}
