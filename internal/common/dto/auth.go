package dto

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response. The token is also set as an
// httpOnly cookie; the body copy is for non-browser clients.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the tenant view returned by the API. The secret path is only
// disclosed to the tenant it belongs to (or an admin).
type UserInfo struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	SecretPath string `json:"secretPath,omitempty"`
}

// ChangePasswordRequest represents a request to change password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// ChangeUsernameRequest represents a request to rename the calling tenant
type ChangeUsernameRequest struct {
	Password    string `json:"password" binding:"required"`
	NewUsername string `json:"newUsername" binding:"required,min=3"`
}

// ResetPathResponse carries the freshly minted secret path
type ResetPathResponse struct {
	SecretPath string `json:"secretPath"`
}
