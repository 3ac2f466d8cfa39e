// Package syncgate holds the durable interval/timestamp pair that decides
// whether a scheduled sync sweep may run. The record survives restarts; it
// is written with a temp-file-plus-rename so the scheduler never observes a
// torn read on its next wake.
package syncgate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"

	"go.uber.org/zap"
)

// State is the persisted gate record. LastRunTime is a unix timestamp in
// milliseconds; zero means the sweep has never run.
type State struct {
	IntervalHours int   `json:"interval_hours"`
	LastRunTime   int64 `json:"last_run_time"`
}

// Settings is the tenant-facing view of the gate configuration
type Settings struct {
	IntervalHours int `json:"intervalHours"`
}

// Gate is the mutex-guarded in-memory copy of the durable record
type Gate struct {
	mu     sync.Mutex
	path   string
	state  State
	logger *zap.Logger

	// now is injectable for tests
	now func() time.Time
}

// New loads the gate record from path, creating it with the given default
// interval when it does not exist yet
func New(path string, defaultIntervalHours int, logger *zap.Logger) (*Gate, error) {
	if defaultIntervalHours < 1 {
		defaultIntervalHours = 1
	}
	g := &Gate{
		path:   path,
		state:  State{IntervalHours: defaultIntervalHours},
		logger: logger.Named("syncgate"),
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var st State
		if jsonErr := json.Unmarshal(data, &st); jsonErr != nil {
			// A corrupt record falls back to defaults rather than blocking startup
			g.logger.Error("sync gate record unreadable, using defaults", zap.Error(jsonErr))
		} else {
			if st.IntervalHours < 1 {
				st.IntervalHours = defaultIntervalHours
			}
			g.state = st
			return g, nil
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read sync gate record: %w", err)
	}

	if err := g.persistLocked(&g.state); err != nil {
		return nil, err
	}
	return g, nil
}

// GetSettings returns the current interval
func (g *Gate) GetSettings() Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Settings{IntervalHours: g.state.IntervalHours}
}

// LastRun returns the unix-millisecond timestamp of the last completed
// sweep; zero when no sweep has run yet
func (g *Gate) LastRun() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.LastRunTime
}

// UpdateSettings sets the interval and persists atomically. Fails with
// cnst.ErrInvalidInterval unless hours is a positive integer.
func (g *Gate) UpdateSettings(hours int) error {
	if hours < 1 {
		return cnst.ErrInvalidInterval
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	staged := g.state
	staged.IntervalHours = hours
	if err := g.persistLocked(&staged); err != nil {
		return err
	}
	g.state = staged
	return nil
}

// ShouldRun reports whether enough time has elapsed since the last
// completed sweep. A gate that has never run is always eligible.
func (g *Gate) ShouldRun() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.LastRunTime == 0 {
		return true
	}
	elapsed := g.now().UnixMilli() - g.state.LastRunTime
	return elapsed >= int64(g.state.IntervalHours)*int64(time.Hour/time.Millisecond)
}

// MarkComplete records the sweep completion time and persists
func (g *Gate) MarkComplete() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	staged := g.state
	staged.LastRunTime = g.now().UnixMilli()
	if err := g.persistLocked(&staged); err != nil {
		return err
	}
	g.state = staged
	g.logger.Info("sync sweep recorded", zap.Time("at", time.UnixMilli(g.state.LastRunTime)))
	return nil
}

// persistLocked writes the record via temp file + rename; callers hold g.mu.
// The in-memory state is only replaced by the staged copy after the write
// lands, so a persist failure leaves the gate unchanged.
func (g *Gate) persistLocked(st *State) error {
	if err := os.MkdirAll(filepath.Dir(g.path), 0755); err != nil {
		return fmt.Errorf("create sync gate directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sync gate record: %w", err)
	}
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write sync gate record: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("replace sync gate record: %w", err)
	}
	return nil
}
