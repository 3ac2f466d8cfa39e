// Package scheduler runs the periodic sync sweep: on every tick it consults
// the durable sync gate and, when due, asks the upstream engine to refresh
// each opted-in tenant's subscriptions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vonzhen/sub-store-panel/internal/database"
	"github.com/Vonzhen/sub-store-panel/internal/syncgate"
	"github.com/Vonzhen/sub-store-panel/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Refresher performs one upstream refresh for a tenant
type Refresher interface {
	Refresh(ctx context.Context, user *database.User) error
}

// Config controls the sweep loop
type Config struct {
	TickInterval time.Duration // wake cadence; the gate decides whether to sweep
	SweepTimeout time.Duration // budget for one whole sweep
}

// Scheduler owns the sweep loop. One sweep runs at a time; ticks that fire
// while a sweep is in flight are skipped.
type Scheduler struct {
	gate      *syncgate.Gate
	db        database.Database
	refresher Refresher
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Metrics

	runningMu sync.Mutex
	running   bool

	// trigger carries at most one queued manual sweep; pending is its ID
	triggerMu sync.Mutex
	pending   string
	trigger   chan string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a sweep scheduler
func New(gate *syncgate.Gate, db database.Database, refresher Refresher, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Hour
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 10 * time.Minute
	}
	return &Scheduler{
		gate:      gate,
		db:        db,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.Named("scheduler"),
		metrics:   m,
		trigger:   make(chan string, 1),
		done:      make(chan struct{}),
	}
}

// Start begins the sweep loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("starting sync scheduler", zap.Duration("tick_interval", s.cfg.TickInterval))
	go s.loop()
	return nil
}

// Stop halts the loop and waits for an in-flight sweep to finish
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.done
	s.running = false
	s.logger.Info("sync scheduler stopped")
}

// TriggerSweep queues an immediate sweep, bypassing the interval gate, and
// returns the sweep ID. A trigger while a manual sweep is already queued
// coalesces into it.
func (s *Scheduler) TriggerSweep() string {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()
	if s.pending != "" {
		return s.pending
	}
	id := uuid.New().String()
	s.pending = id
	s.trigger <- id
	return id
}

func (s *Scheduler) takePending() {
	s.triggerMu.Lock()
	s.pending = ""
	s.triggerMu.Unlock()
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case sweepID := <-s.trigger:
			s.takePending()
			s.runSweep(sweepID, true)
		case <-ticker.C:
			if !s.gate.ShouldRun() {
				continue
			}
			s.runSweep(uuid.New().String(), false)
		}
	}
}

// runSweep refreshes every opted-in tenant. A failing tenant never stops the
// sweep; the gate is marked complete exactly once, after the last tenant.
func (s *Scheduler) runSweep(sweepID string, forced bool) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SweepTimeout)
	defer cancel()

	log := s.logger.With(zap.String("sweep_id", sweepID), zap.Bool("forced", forced))
	log.Info("sync sweep started")

	users, err := s.db.ListUsers(ctx)
	if err != nil {
		log.Error("list tenants failed, sweep aborted", zap.Error(err))
		if s.metrics != nil {
			s.metrics.SweepDone("error", start)
		}
		return
	}

	var refreshed, failed, skipped int
	for _, user := range users {
		if !user.SyncEnabled() {
			skipped++
			continue
		}
		if err := s.refresher.Refresh(ctx, user); err != nil {
			failed++
			log.Warn("tenant refresh failed",
				zap.String("username", user.Username),
				zap.Error(err))
			if s.metrics != nil {
				s.metrics.SweepTenant("failure")
			}
			continue
		}
		refreshed++
		if s.metrics != nil {
			s.metrics.SweepTenant("success")
		}
	}

	if err := s.gate.MarkComplete(); err != nil {
		log.Error("persist sweep completion failed", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.SweepDone("completed", start)
	}
	log.Info("sync sweep finished",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)))
}
