package database

import (
	"fmt"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"

	"go.uber.org/zap"
)

// NewDatabase creates a tenant store based on configuration
func NewDatabase(cfg *config.DatabaseConfig, admin config.SuperAdminConfig, logger *zap.Logger) (Database, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgres(cfg, admin, logger)
	case "sqlite":
		return NewSQLite(cfg, admin, logger)
	case "mysql":
		return NewMySQL(cfg, admin, logger)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
