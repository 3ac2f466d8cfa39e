package database

import (
	"fmt"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres creates a tenant store backed by PostgreSQL
func NewPostgres(cfg *config.DatabaseConfig, admin config.SuperAdminConfig, logger *zap.Logger) (Database, error) {
	dsn, err := cfg.GetDSN()
	if err != nil {
		return nil, err
	}
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	return newStore(gormDB, admin, logger), nil
}
