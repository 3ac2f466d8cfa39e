package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/internal/database"
	"github.com/Vonzhen/sub-store-panel/internal/syncgate"
	"github.com/Vonzhen/sub-store-panel/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRefresher struct {
	mu       sync.Mutex
	calls    []string
	failFor  map[string]error
}

func (f *fakeRefresher) Refresh(_ context.Context, user *database.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, user.Username)
	if err, ok := f.failFor[user.Username]; ok {
		return err
	}
	return nil
}

func (f *fakeRefresher) refreshed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestScheduler(t *testing.T, refresher Refresher) (*Scheduler, *syncgate.Gate, database.Database) {
	t.Helper()
	dir := t.TempDir()
	gate, err := syncgate.New(filepath.Join(dir, "sync_config.json"), 1, zap.NewNop())
	require.NoError(t, err)

	dbCfg := &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(dir, "panel.db")}
	db, err := database.NewSQLite(dbCfg, config.SuperAdminConfig{Username: "admin", Password: "admin"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Init(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	s := New(gate, db, refresher, Config{TickInterval: time.Hour, SweepTimeout: 5 * time.Second}, zap.NewNop(), nil)
	return s, gate, db
}

func seedTenant(t *testing.T, db database.Database, username, configDoc string) *database.User {
	t.Helper()
	secret, err := utils.RandomSecretPath(cnst.SecretPathLength)
	require.NoError(t, err)
	u := &database.User{Username: username, PasswordHash: "x", SecretPath: secret, Role: database.RoleUser, Config: configDoc}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func TestSweep_RefreshesOnlyOptedInTenants(t *testing.T) {
	refresher := &fakeRefresher{}
	s, gate, db := newTestScheduler(t, refresher)
	seedTenant(t, db, "alice", `{"sync":{"enabled":true}}`)
	seedTenant(t, db, "bob", `{"sync":{"enabled":false}}`)
	seedTenant(t, db, "carol", `{}`)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.TriggerSweep()
	require.Eventually(t, func() bool {
		return gate.LastRun() != 0
	}, 5*time.Second, 10*time.Millisecond, "sweep must mark the gate complete")

	assert.Equal(t, []string{"alice"}, refresher.refreshed())
}

func TestSweep_TenantFailureDoesNotStopSweep(t *testing.T) {
	refresher := &fakeRefresher{failFor: map[string]error{"alice": errors.New("engine down")}}
	s, gate, db := newTestScheduler(t, refresher)
	seedTenant(t, db, "alice", `{"sync":{"enabled":true}}`)
	seedTenant(t, db, "bob", `{"sync":{"enabled":true}}`)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.TriggerSweep()
	require.Eventually(t, func() bool {
		return gate.LastRun() != 0
	}, 5*time.Second, 10*time.Millisecond)

	// Both tenants were attempted and the sweep still completed
	assert.ElementsMatch(t, []string{"alice", "bob"}, refresher.refreshed())
}

func TestTriggerSweep_CoalescesWhileQueued(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeRefresher{})

	// Not started: the queued trigger stays pending, so a second trigger
	// returns the same sweep ID
	first := s.TriggerSweep()
	second := s.TriggerSweep()
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestStart_Twice(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeRefresher{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Error(t, s.Start(context.Background()))
}

func TestStop_Idempotent(t *testing.T) {
	s, _, _ := newTestScheduler(t, &fakeRefresher{})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}
