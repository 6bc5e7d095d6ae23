// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/joho/godotenv"
)

// Singleton state of the persisted configuration.
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// RenderConfig holds the frame loop and surface defaults.
type RenderConfig struct {
	FrameRate        int               `json:"frame_rate"`
	ViewportWidth    int               `json:"viewport_width"`
	ViewportHeight   int               `json:"viewport_height"`
	DevicePixelRatio float64           `json:"device_pixel_ratio"`
	DefaultMode      models.RenderMode `json:"default_mode"`
}

// Viewport returns the configured default surface.
func (rc RenderConfig) Viewport() render.Viewport {
	return render.Viewport{Width: rc.ViewportWidth, Height: rc.ViewportHeight, DPR: rc.DevicePixelRatio}
}

// Validate checks ranges.
func (rc RenderConfig) Validate() error {
	if rc.FrameRate < 1 || rc.FrameRate > 240 {
		return fmt.Errorf("frame rate %d out of range 1..240", rc.FrameRate)
	}
	if err := rc.Viewport().Validate(); err != nil {
		return err
	}
	if _, err := models.ParseRenderMode(string(rc.DefaultMode)); err != nil {
		return err
	}
	return nil
}

// AppConfig is the persisted application configuration.
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	ExportDir string `json:"export_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`
	LogLevel  string `json:"log_level"`

	InterpreterProvider string            `json:"interpreter_provider"`
	InterpreterConfig   map[string]string `json:"interpreter_config"`

	Render RenderConfig `json:"render"`
}

// Config holds the values read from the environment.
type Config struct {
	Port                string
	DataDir             string
	ExportDir           string
	LogDir              string
	DebugMode           bool
	LogLevel            string
	InterpreterProvider string
	InterpretLatency    time.Duration
	Render              RenderConfig
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	godotenv.Load()

	dataDir := getEnvPath("DATA_DIR", "data")
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DataDir:             dataDir,
		ExportDir:           getEnvPath("EXPORT_DIR", filepath.Join(dataDir, "exports")),
		LogDir:              getEnvPath("LOG_DIR", "logs"),
		DebugMode:           getEnvBool("DEBUG_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		InterpreterProvider: getEnv("INTERPRETER_PROVIDER", interpreter.KeywordProviderName),
		InterpretLatency:    time.Duration(getEnvInt("INTERPRET_LATENCY_MS", int(interpreter.DefaultLatency/time.Millisecond))) * time.Millisecond,
		Render: RenderConfig{
			FrameRate:        getEnvInt("FRAME_RATE", render.DefaultFrameRate),
			ViewportWidth:    getEnvInt("VIEWPORT_WIDTH", render.DefaultViewport.Width),
			ViewportHeight:   getEnvInt("VIEWPORT_HEIGHT", render.DefaultViewport.Height),
			DevicePixelRatio: getEnvFloat("DEVICE_PIXEL_RATIO", render.DefaultViewport.DPR),
			DefaultMode:      models.RenderMode(getEnv("RENDER_MODE", string(models.RenderMode3D))),
		},
	}

	if cfg.InterpretLatency < 0 {
		return nil, fmt.Errorf("INTERPRET_LATENCY_MS must not be negative")
	}
	if err := cfg.Render.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render configuration: %w", err)
	}
	return cfg, nil
}

// InterpreterSettings is the provider config map derived from the environment.
func (c *Config) InterpreterSettings() map[string]string {
	return map[string]string{
		"latency_ms": strconv.FormatInt(c.InterpretLatency.Milliseconds(), 10),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a directory path from the environment, creating it if needed.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot create directory %s: %v\n", path, err)
		}
	}
	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s=%q is not an integer, using %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s=%q is not a number, using %g\n", key, value, defaultValue)
		return defaultValue
	}
	return f
}

// InitConfig loads the environment and merges it with dataDir/config.json.
// Paths and the port always come from the environment; interpreter and
// render settings survive restarts.
func InitConfig(dataDir string) error {
	base, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(dataDir, "config.json")
	cfg := fromBase(base)

	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil {
			saved.Port = base.Port
			saved.DataDir = base.DataDir
			saved.ExportDir = base.ExportDir
			saved.LogDir = base.LogDir
			saved.DebugMode = base.DebugMode
			if saved.LogLevel == "" {
				saved.LogLevel = base.LogLevel
			}
			if saved.InterpreterProvider == "" {
				saved.InterpreterProvider = cfg.InterpreterProvider
			}
			if saved.InterpreterConfig == nil {
				saved.InterpreterConfig = cfg.InterpreterConfig
			}
			if saved.Render.Validate() != nil {
				saved.Render = cfg.Render
			}
			cfg = &saved
		}
	}

	currentConfig = cfg
	return saveLocked()
}

func fromBase(base *Config) *AppConfig {
	return &AppConfig{
		Port:                base.Port,
		DataDir:             base.DataDir,
		ExportDir:           base.ExportDir,
		LogDir:              base.LogDir,
		DebugMode:           base.DebugMode,
		LogLevel:            base.LogLevel,
		InterpreterProvider: base.InterpreterProvider,
		InterpreterConfig:   base.InterpreterSettings(),
		Render:              base.Render,
	}
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		base, err := Load()
		if err != nil {
			base = &Config{
				Port:                "8080",
				DataDir:             "data",
				ExportDir:           filepath.Join("data", "exports"),
				LogDir:              "logs",
				LogLevel:            "info",
				InterpreterProvider: interpreter.KeywordProviderName,
				InterpretLatency:    interpreter.DefaultLatency,
				Render: RenderConfig{
					FrameRate:        render.DefaultFrameRate,
					ViewportWidth:    render.DefaultViewport.Width,
					ViewportHeight:   render.DefaultViewport.Height,
					DevicePixelRatio: render.DefaultViewport.DPR,
					DefaultMode:      models.RenderMode3D,
				},
			}
		}
		return fromBase(base)
	}

	cp := *currentConfig
	cp.InterpreterConfig = make(map[string]string, len(currentConfig.InterpreterConfig))
	for k, v := range currentConfig.InterpreterConfig {
		cp.InterpreterConfig[k] = v
	}
	return &cp
}

// UpdateInterpreterConfig switches the interpretation provider.
func UpdateInterpreterConfig(provider string, settings map[string]string) error {
	if _, err := interpreter.DefaultRegistry.GetProvider(provider, settings); err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()
	if currentConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}
	currentConfig.InterpreterProvider = provider
	currentConfig.InterpreterConfig = settings
	return saveLocked()
}

// UpdateRenderConfig replaces the render defaults after validation.
func UpdateRenderConfig(rc RenderConfig) error {
	if err := rc.Validate(); err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()
	if currentConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}
	currentConfig.Render = rc
	return saveLocked()
}

// SaveConfig writes the current configuration to disk.
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("no configuration to save")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := configFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, configFile)
}
