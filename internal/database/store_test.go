package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) Database {
	t.Helper()
	cfg := &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "panel.db")}
	db, err := NewSQLite(cfg, config.SuperAdminConfig{Username: "admin", Password: "admin"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Init(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustCreateUser(t *testing.T, db Database, username string) *User {
	t.Helper()
	secret, err := utils.RandomSecretPath(cnst.SecretPathLength)
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{Username: username, PasswordHash: string(hash), SecretPath: secret, Role: RoleUser}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func TestInit_ProvisionsDefaultAdminOnce(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	admin, err := db.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.Len(t, admin.SecretPath, cnst.SecretPathLength)
	assert.True(t, utils.IsLowerHex(admin.SecretPath))

	// Second Init must not create a second admin or rotate the secret path
	require.NoError(t, db.Init(ctx))
	again, err := db.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
	assert.Equal(t, admin.SecretPath, again.SecretPath)
}

func TestGetUserBySecretPath_ExactMatch(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "alice")

	found, err := db.GetUserBySecretPath(ctx, u.SecretPath)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	// A prefix or extension of a registered path must not match
	_, err = db.GetUserBySecretPath(ctx, u.SecretPath[:16])
	assert.ErrorIs(t, err, cnst.ErrNotFound)
	_, err = db.GetUserBySecretPath(ctx, u.SecretPath+"0")
	assert.ErrorIs(t, err, cnst.ErrNotFound)
}

func TestCreateUser_DuplicateUsernameAndPath(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "alice")

	dup := &User{Username: "alice", PasswordHash: "x", SecretPath: "ffffffffffffffffffffffffffffffff", Role: RoleUser}
	assert.ErrorIs(t, db.CreateUser(ctx, dup), cnst.ErrConflict)

	dup = &User{Username: "bob", PasswordHash: "x", SecretPath: u.SecretPath, Role: RoleUser}
	assert.ErrorIs(t, db.CreateUser(ctx, dup), cnst.ErrConflict)
}

func TestUpdateSecretPath(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	require.NoError(t, db.UpdateSecretPath(ctx, alice.ID, "0123456789abcdef0123456789abcdef"))
	found, err := db.GetUserBySecretPath(ctx, "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	// Old path no longer routes
	_, err = db.GetUserBySecretPath(ctx, alice.SecretPath)
	assert.ErrorIs(t, err, cnst.ErrNotFound)

	// Taking another tenant's path is a conflict
	assert.ErrorIs(t, db.UpdateSecretPath(ctx, bob.ID, "0123456789abcdef0123456789abcdef"), cnst.ErrConflict)

	// Unknown tenant
	assert.ErrorIs(t, db.UpdateSecretPath(ctx, 9999, "fedcba9876543210fedcba9876543210"), cnst.ErrNotFound)
}

func TestUpdateCredentialAndConfig(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "alice")

	require.NoError(t, db.UpdateCredential(ctx, u.ID, "new-hash"))
	require.NoError(t, db.UpdateConfig(ctx, u.ID, `{"sync":{"enabled":true}}`))

	got, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.True(t, got.SyncEnabled())
	assert.False(t, got.NotifyOnSync())
}

func TestDeleteUser(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "alice")

	require.NoError(t, db.DeleteUser(ctx, u.ID))
	_, err := db.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, cnst.ErrNotFound)
	assert.ErrorIs(t, db.DeleteUser(ctx, u.ID), cnst.ErrNotFound)
}

func TestListUsers(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, db, "alice")
	mustCreateUser(t, db, "bob")

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	// admin + alice + bob
	assert.Len(t, users, 3)
}

func TestTranslateError_PassThrough(t *testing.T) {
	plain := errors.New("disk on fire")
	assert.Equal(t, plain, translateError(plain))
	assert.NoError(t, translateError(nil))
}
