package database

import (
	"fmt"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewSQLite creates a tenant store backed by SQLite
func NewSQLite(cfg *config.DatabaseConfig, admin config.SuperAdminConfig, logger *zap.Logger) (Database, error) {
	dsn, err := cfg.GetDSN()
	if err != nil {
		return nil, err
	}
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return newStore(gormDB, admin, logger), nil
}
