package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// store implements Database on top of gorm; the driver-specific
// constructors in sqlite.go, postgres.go and mysql.go build the *gorm.DB.
type store struct {
	db     *gorm.DB
	logger *zap.Logger
	admin  config.SuperAdminConfig
}

func newStore(db *gorm.DB, admin config.SuperAdminConfig, logger *zap.Logger) *store {
	return &store{
		db:     db,
		logger: logger.Named("database"),
		admin:  admin,
	}
}

// Init migrates the schema and provisions the default admin tenant on first boot
func (s *store) Init(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	username := s.admin.Username
	if username == "" {
		username = "admin"
	}
	_, err := s.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, cnst.ErrNotFound) {
		return err
	}

	password := s.admin.Password
	if password == "" {
		password = "admin"
		s.logger.Warn("no super admin password configured, using default; change it after first login")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	secretPath, err := utils.RandomSecretPath(cnst.SecretPathLength)
	if err != nil {
		return fmt.Errorf("generate admin secret path: %w", err)
	}

	admin := &User{
		Username:     username,
		PasswordHash: string(hash),
		SecretPath:   secretPath,
		Role:         RoleAdmin,
		Config:       "{}",
	}
	if err := s.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	s.logger.Info("created default admin tenant", zap.String("username", username))
	return nil
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *store) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *store) GetUserBySecretPath(ctx context.Context, secretPath string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("secret_path = ?", secretPath).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, translateError(err)
	}
	return users, nil
}

func (s *store) CreateUser(ctx context.Context, user *User) error {
	if user.Config == "" {
		user.Config = "{}"
	}
	return translateError(s.db.WithContext(ctx).Create(user).Error)
}

func (s *store) UpdateUser(ctx context.Context, user *User) error {
	return translateError(s.db.WithContext(ctx).Save(user).Error)
}

func (s *store) UpdateCredential(ctx context.Context, id uint, passwordHash string) error {
	return s.updateColumn(ctx, id, "password_hash", passwordHash)
}

func (s *store) UpdateSecretPath(ctx context.Context, id uint, newPath string) error {
	return s.updateColumn(ctx, id, "secret_path", newPath)
}

func (s *store) UpdateConfig(ctx context.Context, id uint, doc string) error {
	return s.updateColumn(ctx, id, "config", doc)
}

func (s *store) updateColumn(ctx context.Context, id uint, column string, value any) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return cnst.ErrNotFound
	}
	return nil
}

func (s *store) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return cnst.ErrNotFound
	}
	return nil
}

// translateError maps driver errors to the gateway's error taxonomy
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return cnst.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return cnst.ErrConflict
	case isUniqueViolation(err):
		return cnst.ErrConflict
	default:
		return err
	}
}

// isUniqueViolation catches drivers that report unique-index violations as
// plain errors instead of gorm.ErrDuplicatedKey
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
