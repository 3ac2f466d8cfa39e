package database

import (
	"time"

	"github.com/tidwall/gjson"
)

// UserRole represents the role of a tenant
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User represents a tenant of the gateway. SecretPath is the unguessable
// lowercase-hex segment that isolates the tenant's upstream namespace.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	SecretPath   string    `json:"secretPath" gorm:"type:varchar(64);uniqueIndex;not null"`
	Role         UserRole  `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	Config       string    `json:"config" gorm:"type:text;not null;default:'{}'"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the tenant holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SyncEnabled reads the sync opt-in flag from the tenant config document.
// The document is tenant-owned JSON; absent or malformed flags mean opted out.
func (u *User) SyncEnabled() bool {
	return gjson.Get(u.Config, "sync.enabled").Bool()
}

// NotifyOnSync reads the notification preference from the config document
func (u *User) NotifyOnSync() bool {
	return gjson.Get(u.Config, "sync.notify").Bool()
}
