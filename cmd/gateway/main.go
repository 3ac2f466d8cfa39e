package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Vonzhen/sub-store-panel/internal/apiserver/handler"
	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/auth/loginguard"
	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/Vonzhen/sub-store-panel/internal/core"
	"github.com/Vonzhen/sub-store-panel/internal/database"
	"github.com/Vonzhen/sub-store-panel/internal/proxy"
	"github.com/Vonzhen/sub-store-panel/internal/scheduler"
	"github.com/Vonzhen/sub-store-panel/internal/syncgate"
	pkglogger "github.com/Vonzhen/sub-store-panel/pkg/logger"
	"github.com/Vonzhen/sub-store-panel/pkg/metrics"
	"github.com/Vonzhen/sub-store-panel/pkg/trace"
	"github.com/Vonzhen/sub-store-panel/pkg/utils"
	"github.com/Vonzhen/sub-store-panel/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the gateway",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("substore-panel version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "substore-panel",
		Short: "Multi-tenant gateway for the sub-store engine",
		Long:  "substore-panel puts a tenant database, session auth and secret-path routing in front of a single upstream sub-store engine",
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/gateway.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", cfgPath, err)
	}

	logger, err := pkglogger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting substore-panel",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	if cfg.PID != "" {
		if err := os.WriteFile(cfg.PID, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			logger.Fatal("failed to write pid file", zap.String("path", cfg.PID), zap.Error(err))
		}
		defer func() { _ = os.Remove(cfg.PID) }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing is optional; a disabled config yields a no-op shutdown
	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	if cfg.JWT.SecretKey == "" {
		// An ephemeral secret keeps the gateway usable out of the box;
		// sessions will not survive a restart
		secret, err := utils.RandomSecretPath(64)
		if err != nil {
			logger.Fatal("failed to generate session secret", zap.Error(err))
		}
		cfg.JWT.SecretKey = secret
		logger.Warn("no jwt secret configured, generated an ephemeral one; sessions reset on restart")
	}

	jwtService, err := jwt.NewService(jwt.Config{SecretKey: cfg.JWT.SecretKey, Duration: cfg.JWT.Duration})
	if err != nil {
		logger.Fatal("failed to initialize session tokens", zap.Error(err))
	}

	db, err := database.NewDatabase(&cfg.Database, cfg.SuperAdmin, logger)
	if err != nil {
		logger.Fatal("failed to open tenant store", zap.Error(err))
	}
	if err := db.Init(ctx); err != nil {
		logger.Fatal("failed to initialize tenant store", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	gate, err := syncgate.New(cfg.Sync.StatePath, cfg.Sync.DefaultIntervalHours, logger)
	if err != nil {
		logger.Fatal("failed to load sync gate record", zap.Error(err))
	}

	guard := loginguard.New(loginguard.Config{
		Threshold:       cfg.Lockout.Threshold,
		LockoutDuration: cfg.Lockout.Duration,
	}, logger)
	go guard.StartSweeper(ctx)

	m := metrics.New(cfg.Metrics)

	forwarder, err := proxy.NewForwarder(cfg.Upstream, logger, m)
	if err != nil {
		logger.Fatal("failed to initialize upstream forwarder", zap.Error(err))
	}
	refresher, err := proxy.NewEngineRefresher(cfg.Upstream, cfg.Sync.RefreshTokenTTL, jwtService, logger)
	if err != nil {
		logger.Fatal("failed to initialize engine refresher", zap.Error(err))
	}

	sched := scheduler.New(gate, db, refresher, scheduler.Config{TickInterval: cfg.Sync.TickInterval}, logger, m)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("failed to start sync scheduler", zap.Error(err))
	}
	defer sched.Stop()

	authHandler := handler.NewHandler(db, jwtService, guard, cfg, logger, m)
	syncHandler := handler.NewSyncHandler(gate, sched, logger)

	srv, err := core.NewServer(logger, cfg, jwtService, authHandler, syncHandler, proxy.NewRouter(db), forwarder, m)
	if err != nil {
		logger.Fatal("failed to assemble server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("gateway exited with error", zap.Error(err))
	}
	logger.Info("gateway stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
