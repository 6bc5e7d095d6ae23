// internal/services/config_service.go
package services

import (
	"maps"
	"sync"
	"time"

	"github.com/Corphon/DreamScape/internal/config"
	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/utils"
)

// ConfigChangeSubscriber is notified after a settings change was persisted.
type ConfigChangeSubscriber interface {
	OnConfigChanged(oldConfig, newConfig *config.AppConfig)
}

// ConfigChangeRecord is one entry of the change history.
type ConfigChangeRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	ChangedBy string      `json:"changed_by"`
	Section   string      `json:"section"`
	OldValue  interface{} `json:"old_value"`
	NewValue  interface{} `json:"new_value"`
}

const maxChangeHistory = 100

// ConfigService manages runtime settings: the interpreter provider and the
// render defaults.
type ConfigService struct {
	registry *interpreter.Registry
	logger   *utils.Logger

	mu            sync.RWMutex
	subscribers   []ConfigChangeSubscriber
	changeHistory []ConfigChangeRecord
}

// NewConfigService creates a config service over a provider registry.
func NewConfigService(registry *interpreter.Registry) *ConfigService {
	if registry == nil {
		registry = interpreter.DefaultRegistry
	}
	return &ConfigService{
		registry:      registry,
		logger:        utils.GetLogger().WithComponent("config_service"),
		changeHistory: make([]ConfigChangeRecord, 0, maxChangeHistory),
	}
}

// GetCurrentConfig returns a copy of the persisted configuration.
func (s *ConfigService) GetCurrentConfig() *config.AppConfig {
	return config.GetCurrentConfig()
}

// AvailableProviders lists registered interpreter providers.
func (s *ConfigService) AvailableProviders() []string {
	return s.registry.GetAvailableProviders()
}

// BuildProvider creates the provider named in the current configuration.
func (s *ConfigService) BuildProvider() (interpreter.Provider, error) {
	cfg := config.GetCurrentConfig()
	return s.registry.GetProvider(cfg.InterpreterProvider, cfg.InterpreterConfig)
}

// UpdateInterpreterConfig validates, persists and broadcasts a provider change.
func (s *ConfigService) UpdateInterpreterConfig(provider string, settings map[string]string, changedBy string) error {
	if _, err := s.registry.GetProvider(provider, settings); err != nil {
		return apperrors.NewValidationError("invalid interpreter configuration", err)
	}

	old := config.GetCurrentConfig()
	if err := config.UpdateInterpreterConfig(provider, settings); err != nil {
		return apperrors.NewProcessingError("save interpreter configuration", err)
	}
	updated := config.GetCurrentConfig()

	s.recordChange("interpreter", old.InterpreterProvider, provider, changedBy)
	s.notifySubscribers(old, updated)
	return nil
}

// UpdateRenderConfig validates, persists and broadcasts new render defaults.
func (s *ConfigService) UpdateRenderConfig(rc config.RenderConfig, changedBy string) error {
	if err := rc.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	old := config.GetCurrentConfig()
	if err := config.UpdateRenderConfig(rc); err != nil {
		return apperrors.NewProcessingError("save render configuration", err)
	}
	updated := config.GetCurrentConfig()

	s.recordChange("render", old.Render, rc, changedBy)
	s.notifySubscribers(old, updated)
	return nil
}

// SubscribeToChanges registers a subscriber.
func (s *ConfigService) SubscribeToChanges(subscriber ConfigChangeSubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, subscriber)
}

func (s *ConfigService) notifySubscribers(oldConfig, newConfig *config.AppConfig) {
	s.mu.RLock()
	subscribers := append([]ConfigChangeSubscriber(nil), s.subscribers...)
	s.mu.RUnlock()

	for _, sub := range subscribers {
		sub.OnConfigChanged(oldConfig, newConfig)
	}
}

// GetChangeHistory returns up to limit most recent changes, newest last.
func (s *ConfigService) GetChangeHistory(limit int) []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.changeHistory) > limit {
		start = len(s.changeHistory) - limit
	}
	return append([]ConfigChangeRecord(nil), s.changeHistory[start:]...)
}

func (s *ConfigService) recordChange(section string, oldValue, newValue interface{}, changedBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.changeHistory) >= maxChangeHistory {
		s.changeHistory = s.changeHistory[1:]
	}
	s.changeHistory = append(s.changeHistory, ConfigChangeRecord{
		Timestamp: time.Now(),
		ChangedBy: changedBy,
		Section:   section,
		OldValue:  oldValue,
		NewValue:  newValue,
	})
	s.logger.Info("configuration changed", map[string]interface{}{
		"section":    section,
		"changed_by": changedBy,
	})
}

// OnConfigChanged makes DreamService follow interpreter changes.
func (s *DreamService) OnConfigChanged(oldConfig, newConfig *config.AppConfig) {
	if oldConfig.InterpreterProvider == newConfig.InterpreterProvider &&
		maps.Equal(oldConfig.InterpreterConfig, newConfig.InterpreterConfig) {
		return
	}
	p, err := interpreter.DefaultRegistry.GetProvider(newConfig.InterpreterProvider, newConfig.InterpreterConfig)
	if err != nil {
		s.logger.Error("cannot switch interpreter provider", map[string]interface{}{
			"provider": newConfig.InterpreterProvider,
			"error":    err.Error(),
		})
		return
	}
	s.SetProvider(p)
	s.logger.Info("interpreter provider switched", map[string]interface{}{"provider": p.GetName()})
}

// OnConfigChanged applies new render defaults to later mounts.
func (s *RenderService) OnConfigChanged(oldConfig, newConfig *config.AppConfig) {
	if oldConfig.Render == newConfig.Render {
		return
	}
	s.SetDefaults(newConfig.Render.FrameRate, newConfig.Render.Viewport())
	s.logger.Info("render defaults updated", map[string]interface{}{
		"frame_rate": newConfig.Render.FrameRate,
		"width":      newConfig.Render.ViewportWidth,
		"height":     newConfig.Render.ViewportHeight,
	})
}
