package config

import (
	"os"
	"regexp"
	"time"

	"github.com/Vonzhen/sub-store-panel/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// GatewayConfig is the root configuration for the gateway process
	GatewayConfig struct {
		Port         int              `yaml:"port"`
		PID          string           `yaml:"pid"`
		DashboardDir string           `yaml:"dashboard_dir"` // locally served dashboard assets
		SuperAdmin   SuperAdminConfig `yaml:"super_admin"`
		Logger       LoggerConfig     `yaml:"logger"`
		Database     DatabaseConfig   `yaml:"database"`
		JWT          JWTConfig        `yaml:"jwt"`
		Lockout      LockoutConfig    `yaml:"lockout"`
		Upstream     UpstreamConfig   `yaml:"upstream"`
		Sync         SyncConfig       `yaml:"sync"`
		Metrics      MetricsConfig    `yaml:"metrics"`
		Tracing      TracingConfig    `yaml:"tracing"`
	}

	// SuperAdminConfig holds the credentials provisioned on first boot
	SuperAdminConfig struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	}

	// JWTConfig represents the session token configuration
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// LockoutConfig controls the failed-login guard
	LockoutConfig struct {
		Threshold int           `yaml:"threshold"` // failures before lockout
		Duration  time.Duration `yaml:"duration"`  // how long an address stays locked
	}

	// UpstreamConfig names the two upstream engine origins
	UpstreamConfig struct {
		APIURL      string        `yaml:"api_url"`      // engine API origin
		FrontendURL string        `yaml:"frontend_url"` // engine UI-asset origin
		Timeout     time.Duration `yaml:"timeout"`      // upstream round-trip budget
	}

	// SyncConfig controls the scheduled sync sweep
	SyncConfig struct {
		StatePath            string        `yaml:"state_path"`             // durable sync-gate record
		DefaultIntervalHours int           `yaml:"default_interval_hours"` // initial gate interval
		TickInterval         time.Duration `yaml:"tick_interval"`          // scheduler wake cadence
		RefreshTokenTTL      time.Duration `yaml:"refresh_token_ttl"`      // short-lived sweep token
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps
		TimeFormat string `yaml:"time_format"` // time format for log timestamps
	}

	// MetricsConfig configures the prometheus registry
	MetricsConfig struct {
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// TracingConfig configures optional OTLP tracing
	TracingConfig struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		Endpoint    string  `yaml:"endpoint"` // e.g. localhost:4317 or http://localhost:4318
		Protocol    string  `yaml:"protocol"` // grpc or http
		Insecure    bool    `yaml:"insecure"`
		SamplerRate float64 `yaml:"sampler_rate"` // 0.0~1.0
		Environment string  `yaml:"environment"`  // env tag: dev/staging/prod
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*GatewayConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}
	cfg.setDefaults()

	return &cfg, cfgPath, nil
}

func (c *GatewayConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DashboardDir == "" {
		c.DashboardDir = "./assets/dashboard"
	}
	if c.JWT.Duration <= 0 {
		c.JWT.Duration = 7 * 24 * time.Hour
	}
	if c.Lockout.Threshold <= 0 {
		c.Lockout.Threshold = 5
	}
	if c.Lockout.Duration <= 0 {
		c.Lockout.Duration = 15 * time.Minute
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 60 * time.Second
	}
	if c.Sync.StatePath == "" {
		c.Sync.StatePath = "./data/sync_config.json"
	}
	if c.Sync.DefaultIntervalHours <= 0 {
		c.Sync.DefaultIntervalHours = 1
	}
	if c.Sync.TickInterval <= 0 {
		c.Sync.TickInterval = time.Hour
	}
	if c.Sync.RefreshTokenTTL <= 0 {
		c.Sync.RefreshTokenTTL = 5 * time.Minute
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "substore_panel"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
