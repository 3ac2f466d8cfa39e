package database

import (
	"context"
)

// Database defines the tenant store operations consumed by the gateway
type Database interface {
	// Init migrates the schema and provisions the default admin tenant
	Init(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// GetUserByID gets a tenant by id
	GetUserByID(ctx context.Context, id uint) (*User, error)

	// GetUserByUsername gets a tenant by its unique username (case-sensitive)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserBySecretPath gets a tenant by exact secret-path match
	GetUserBySecretPath(ctx context.Context, secretPath string) (*User, error)

	// ListUsers lists all tenants
	ListUsers(ctx context.Context) ([]*User, error)

	// CreateUser creates a tenant; returns cnst.ErrConflict on duplicate
	// username or secret path
	CreateUser(ctx context.Context, user *User) error

	// UpdateUser persists all mutable fields of a tenant
	UpdateUser(ctx context.Context, user *User) error

	// UpdateCredential replaces a tenant's password hash
	UpdateCredential(ctx context.Context, id uint, passwordHash string) error

	// UpdateSecretPath replaces a tenant's secret path; returns
	// cnst.ErrConflict if the path is already taken
	UpdateSecretPath(ctx context.Context, id uint, newPath string) error

	// UpdateConfig replaces a tenant's config document
	UpdateConfig(ctx context.Context, id uint, doc string) error

	// DeleteUser removes a tenant
	DeleteUser(ctx context.Context, id uint) error
}
