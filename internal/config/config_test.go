// internal/config/config_test.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("EXPORT_DIR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("INTERPRET_LATENCY_MS", "25")
	t.Setenv("FRAME_RATE", "30")
	t.Setenv("VIEWPORT_WIDTH", "")
	t.Setenv("VIEWPORT_HEIGHT", "")
	t.Setenv("DEVICE_PIXEL_RATIO", "2")
	t.Setenv("RENDER_MODE", "")
	t.Setenv("INTERPRETER_PROVIDER", "")
	t.Cleanup(func() {
		configMutex.Lock()
		currentConfig = nil
		configMutex.Unlock()
	})
	return filepath.Join(dir, "data")
}

func TestLoadFromEnvironment(t *testing.T) {
	dataDir := setEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 25*time.Millisecond, cfg.InterpretLatency)
	assert.Equal(t, 30, cfg.Render.FrameRate)
	assert.Equal(t, 800, cfg.Render.ViewportWidth)
	assert.InDelta(t, 2.0, cfg.Render.DevicePixelRatio, 1e-9)
	assert.Equal(t, models.RenderMode3D, cfg.Render.DefaultMode)
	assert.Equal(t, "keyword", cfg.InterpreterProvider)
	assert.Equal(t, map[string]string{"latency_ms": "25"}, cfg.InterpreterSettings())

	assert.DirExists(t, dataDir)
	assert.DirExists(t, filepath.Join(dataDir, "exports"))
}

func TestLoadRejectsBadRenderSettings(t *testing.T) {
	setEnv(t)
	t.Setenv("FRAME_RATE", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FRAME_RATE", "60")
	t.Setenv("RENDER_MODE", "4d")
	_, err = Load()
	assert.Error(t, err)
}

func TestInitConfigPersistsUpdates(t *testing.T) {
	dataDir := setEnv(t)
	require.NoError(t, InitConfig(dataDir))

	cfg := GetCurrentConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.FileExists(t, filepath.Join(dataDir, "config.json"))

	rc := cfg.Render
	rc.DefaultMode = models.RenderMode2D
	rc.FrameRate = 24
	require.NoError(t, UpdateRenderConfig(rc))
	require.NoError(t, UpdateInterpreterConfig("keyword", map[string]string{"latency_ms": "0", "seed": "7"}))

	assert.Error(t, UpdateRenderConfig(RenderConfig{FrameRate: 1000}))
	assert.Error(t, UpdateInterpreterConfig("oracle", nil))

	// a restart keeps persisted settings but takes the port from the environment
	t.Setenv("PORT", "7070")
	require.NoError(t, InitConfig(dataDir))
	cfg = GetCurrentConfig()
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, models.RenderMode2D, cfg.Render.DefaultMode)
	assert.Equal(t, 24, cfg.Render.FrameRate)
	assert.Equal(t, "7", cfg.InterpreterConfig["seed"])

	raw, err := os.ReadFile(filepath.Join(dataDir, "config.json"))
	require.NoError(t, err)
	var saved AppConfig
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "7070", saved.Port)
}

func TestGetCurrentConfigReturnsCopy(t *testing.T) {
	dataDir := setEnv(t)
	require.NoError(t, InitConfig(dataDir))

	cfg := GetCurrentConfig()
	cfg.InterpreterConfig["latency_ms"] = "999"
	cfg.Port = "1"

	again := GetCurrentConfig()
	assert.Equal(t, "25", again.InterpreterConfig["latency_ms"])
	assert.Equal(t, "9090", again.Port)
}
