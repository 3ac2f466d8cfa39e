package dto

import "encoding/json"

// CreateUserRequest represents an admin request to create a tenant
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin user"`
}

// UpdateUserRequest represents an admin request to update a tenant.
// Empty fields are left unchanged.
type UpdateUserRequest struct {
	Username string `json:"username,omitempty" binding:"omitempty,min=3"`
	Password string `json:"password,omitempty" binding:"omitempty,min=6"`
	Role     string `json:"role,omitempty" binding:"omitempty,oneof=admin user"`
}

// ConfigDocument wraps a tenant's preference document. Raw JSON keeps the
// gateway agnostic to the engine-side schema; only well-formedness is checked.
type ConfigDocument struct {
	Config json.RawMessage `json:"config"`
}
