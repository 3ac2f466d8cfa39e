package database

import (
	"fmt"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL creates a tenant store backed by MySQL
func NewMySQL(cfg *config.DatabaseConfig, admin config.SuperAdminConfig, logger *zap.Logger) (Database, error) {
	dsn, err := cfg.GetDSN()
	if err != nil {
		return nil, err
	}
	gormDB, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}
	return newStore(gormDB, admin, logger), nil
}
