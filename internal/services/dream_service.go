// internal/services/dream_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/storage"
	"github.com/Corphon/DreamScape/internal/utils"
	"github.com/google/uuid"
)

// DefaultAsyncTimeout bounds a background interpretation.
const DefaultAsyncTimeout = 2 * time.Minute

// DreamService interprets narration through a Provider and registers the
// resulting maps in the session's repository.
type DreamService struct {
	repo     storage.DreamRepository
	progress *ProgressService
	metrics  *utils.DreamMetrics
	logger   *utils.Logger

	mu           sync.RWMutex
	provider     interpreter.Provider
	asyncTimeout time.Duration
}

// NewDreamService wires a provider to a repository. progress may be nil when
// background interpretation is not needed.
func NewDreamService(provider interpreter.Provider, repo storage.DreamRepository, progress *ProgressService) *DreamService {
	return &DreamService{
		repo:         repo,
		progress:     progress,
		provider:     provider,
		asyncTimeout: DefaultAsyncTimeout,
		metrics:      utils.NewDreamMetrics(),
		logger:       utils.GetLogger().WithComponent("dream_service"),
	}
}

// Provider returns the active provider.
func (s *DreamService) Provider() interpreter.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// SetProvider swaps the provider; in-flight interpretations keep the old one.
func (s *DreamService) SetProvider(p interpreter.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// Interpret turns narration into a DreamMap and stores it for sessionID.
// Blank narration fails validation before the provider is touched.
func (s *DreamService) Interpret(ctx context.Context, sessionID, narration string) (*models.DreamMap, error) {
	if strings.TrimSpace(narration) == "" {
		return nil, apperrors.NewValidationError("narration must not be blank", nil)
	}

	provider := s.Provider()
	if provider == nil {
		return nil, apperrors.NewProcessingError("no interpreter provider configured", nil)
	}

	start := time.Now()
	m, err := provider.Interpret(ctx, narration)
	if err == nil {
		if verr := m.Validate(); verr != nil {
			err = apperrors.NewProcessingError("interpreter produced an invalid map", verr)
		}
	}
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.NewProcessingError("interpretation failed", err)
		}
		s.metrics.RecordInterpretation(provider.GetName(), 0, time.Since(start), err)
		s.logger.Warn("interpretation failed", map[string]interface{}{
			"session":  sessionID,
			"provider": provider.GetName(),
			"error":    err.Error(),
		})
		return nil, err
	}

	if err := s.repo.Save(ctx, sessionID, m); err != nil {
		return nil, apperrors.WrapError(err, "store dream map", apperrors.ErrorTypeError)
	}

	elements := 0
	for _, sc := range m.Scenes {
		elements += len(sc.Elements)
	}
	s.metrics.RecordInterpretation(provider.GetName(), elements, time.Since(start), nil)
	s.logger.Info("dream interpreted", map[string]interface{}{
		"session":  sessionID,
		"dream_id": m.ID,
		"elements": elements,
		"mood":     m.Scenes[0].Mood,
		"took_ms":  time.Since(start).Milliseconds(),
	})
	return m, nil
}

// InterpretAsync runs Interpret in the background under a progress tracker
// and returns the task id. onDone, when set, runs before the tracker reports
// its final state.
func (s *DreamService) InterpretAsync(sessionID, narration string, onDone func(*models.DreamMap, error)) (string, error) {
	if strings.TrimSpace(narration) == "" {
		return "", apperrors.NewValidationError("narration must not be blank", nil)
	}
	if s.progress == nil {
		return "", apperrors.NewProcessingError("background interpretation is not available", nil)
	}

	taskID := uuid.NewString()
	tracker := s.progress.CreateTracker(taskID)
	ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
	tracker.bindCancel(cancel)

	go func() {
		defer cancel()
		tracker.UpdateProgress(10, "interpreting narration")

		m, err := s.Interpret(ctx, sessionID, narration)
		if onDone != nil {
			onDone(m, err)
		}

		switch {
		case err == nil:
			tracker.Complete("dream ready", m.ID)
		case errors.Is(ctx.Err(), context.Canceled):
			tracker.Canceled()
		default:
			tracker.Fail(err.Error())
		}
	}()

	return taskID, nil
}

// GetDream returns a stored map or a not-found error.
func (s *DreamService) GetDream(ctx context.Context, sessionID, id string) (*models.DreamMap, error) {
	m, ok := s.repo.Get(ctx, sessionID, id)
	if !ok {
		return nil, apperrors.NewNotFoundError("dream map "+id+" not found", nil)
	}
	return m, nil
}

// ListDreams returns the session's maps, oldest first.
func (s *DreamService) ListDreams(ctx context.Context, sessionID string) []*models.DreamMap {
	return s.repo.List(ctx, sessionID)
}
