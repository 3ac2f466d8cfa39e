package logger

import (
	"path/filepath"
	"testing"

	"github.com/Vonzhen/sub-store-panel/internal/common/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestGetLogLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"dpanic":  zapcore.DPanicLevel,
		"panic":   zapcore.PanicLevel,
		"fatal":   zapcore.FatalLevel,
		"unknown": zapcore.InfoLevel, // default
	}
	for in, exp := range cases {
		assert.Equal(t, exp, getLogLevel(in))
	}
}

func TestSetLoggerDefaults(t *testing.T) {
	cfg := &config.LoggerConfig{}
	setLoggerDefaults(cfg)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.NotEmpty(t, cfg.TimeZone)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestNewLogger_StdoutAndFile(t *testing.T) {
	lg, err := NewLogger(&config.LoggerConfig{})
	assert.NoError(t, err)
	assert.NotNil(t, lg)

	tmp := t.TempDir()
	cfg := &config.LoggerConfig{Output: "file", FilePath: filepath.Join(tmp, "logs", "gateway.log"), Format: "console", Color: true}
	lg, err = NewLogger(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, lg)
	lg.Info("file output works")
}

func TestResolveTimeZone(t *testing.T) {
	assert.NotNil(t, resolveTimeZone(""))
	assert.NotNil(t, resolveTimeZone("UTC"))
	assert.NotNil(t, resolveTimeZone("Not/AZone"))
}
