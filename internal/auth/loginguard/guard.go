// Package loginguard tracks failed login attempts per source address and
// locks an address out after a configurable number of consecutive failures.
// Records live in process memory only; a background sweeper evicts records
// whose lockout and failure history are no longer relevant so the table
// cannot grow without bound.
package loginguard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls the guard thresholds
type Config struct {
	Threshold       int           // consecutive failures before lockout
	LockoutDuration time.Duration // how long a locked address stays locked
	SweepInterval   time.Duration // cadence of the eviction sweeper
}

type record struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// Guard is a mutex-guarded failed-attempt table keyed by source address
type Guard struct {
	mu      sync.Mutex
	records map[string]*record
	cfg     Config
	logger  *zap.Logger

	// now is injectable for tests
	now func() time.Time
}

// New creates a login guard with the given configuration
func New(cfg Config, logger *zap.Logger) *Guard {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	return &Guard{
		records: make(map[string]*record),
		cfg:     cfg,
		logger:  logger.Named("loginguard"),
		now:     time.Now,
	}
}

// CheckLocked reports whether the address may attempt a login now.
// It returns false while the address is locked out.
func (g *Guard) CheckLocked(addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[addr]
	if !ok {
		return true
	}
	return !g.now().Before(rec.lockedUntil)
}

// RecordFailure increments the failure count for the address and locks it
// out once the threshold is reached
func (g *Guard) RecordFailure(addr string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, ok := g.records[addr]
	if !ok {
		rec = &record{}
		g.records[addr] = rec
	}
	rec.failures++
	rec.lastFailure = now
	if rec.failures >= g.cfg.Threshold {
		rec.lockedUntil = now.Add(g.cfg.LockoutDuration)
		rec.failures = 0
		g.logger.Warn("address locked out after repeated login failures",
			zap.String("addr", addr),
			zap.Time("locked_until", rec.lockedUntil))
	}
}

// RecordSuccess clears the record for the address entirely
func (g *Guard) RecordSuccess(addr string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records, addr)
}

// Prune evicts records whose lockout has expired and whose last failure is
// older than the lockout duration. Returns the number of evicted records.
func (g *Guard) Prune(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	evicted := 0
	stale := now.Add(-g.cfg.LockoutDuration)
	for addr, rec := range g.records {
		if rec.lockedUntil.After(now) {
			continue
		}
		if rec.lastFailure.After(stale) {
			continue
		}
		delete(g.records, addr)
		evicted++
	}
	return evicted
}

// StartSweeper runs the eviction loop until the context is cancelled
func (g *Guard) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := g.Prune(g.now()); n > 0 {
				g.logger.Debug("evicted stale login records", zap.Int("count", n))
			}
		}
	}
}

// Size returns the current number of tracked addresses
func (g *Guard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}
