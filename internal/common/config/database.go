package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DatabaseConfig describes the tenant store connection
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // sqlite, postgres, mysql
	Host     string `yaml:"host"`     // localhost
	Port     int    `yaml:"port"`     // 5432 (postgres), 3306 (mysql)
	User     string `yaml:"user"`     // postgres (postgres), root (mysql)
	Password string `yaml:"password"` // password
	DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
	SSLMode  string `yaml:"sslmode"`  // disable (postgres)
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() (string, error) {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName), nil
	case "sqlite":
		// For SQLite, DBName is the file path
		if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
			return "", fmt.Errorf("create directory for sqlite database: %w", err)
		}
		return c.DBName, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Type)
	}
}
