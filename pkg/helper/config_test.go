package helper

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCfgPath_Absolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "gateway.yaml")
	assert.Equal(t, abs, GetCfgPath(abs))
}

func TestGetCfgPath_FallsBackToEtc(t *testing.T) {
	got := GetCfgPath("definitely-not-present.yaml")
	assert.Equal(t, filepath.Join("/etc/substore-panel", "definitely-not-present.yaml"), got)
}

func TestGetCfgPath_PanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { GetCfgPath("") })
}
