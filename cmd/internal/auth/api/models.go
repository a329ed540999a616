package authapi

import "warden/cmd/internal/rbac"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RequestToken string `json:"request_token"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type createRoleRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Permissions []int32 `json:"permissions"`
}

type updateRoleRequest struct {
	Name        string  `json:"name"`
	NewName     *string `json:"new_name"`
	Description *string `json:"description"`
	Permissions []int32 `json:"permissions"`
}

type deleteRoleRequest struct {
	Name string `json:"name"`
}

type roleResponse struct {
	ID          int32             `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Permissions []rbac.Permission `json:"permissions"`
}
