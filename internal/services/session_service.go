// internal/services/session_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/utils"
)

// DefaultSessionID is used when a client does not name its session.
const DefaultSessionID = "default"

type sessionEntry struct {
	state models.SessionState
	// gen changes on Reset so a late interpretation result is dropped.
	gen uint64
}

// SessionService keeps per-session view state and drives the
// input → interpreting → exploring flow.
type SessionService struct {
	dreams *DreamService
	locks  *LockManager
	now    func() time.Time
	logger *utils.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionService creates an empty session store.
func NewSessionService(dreams *DreamService, locks *LockManager) *SessionService {
	if locks == nil {
		locks = NewLockManager()
	}
	return &SessionService{
		dreams:   dreams,
		locks:    locks,
		now:      time.Now,
		logger:   utils.GetLogger().WithComponent("session_service"),
		sessions: make(map[string]*sessionEntry),
	}
}

func normalizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}

// entry returns the session, creating it on first use. Callers hold the
// session lock.
func (s *SessionService) entry(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		e = &sessionEntry{state: models.NewSessionState(id, s.now())}
		s.sessions[id] = e
	}
	e.state.LastAccessed = s.now()
	return e
}

func (s *SessionService) update(id string, fn func(e *sessionEntry) error) (models.SessionState, error) {
	id = normalizeSessionID(id)
	var out models.SessionState
	err := s.locks.ExecuteWithLock(id, func() error {
		e := s.entry(id)
		if err := fn(e); err != nil {
			out = e.state
			return err
		}
		out = e.state
		return nil
	})
	return out, err
}

// Get returns the session state, creating a fresh session for unknown ids.
func (s *SessionService) Get(id string) models.SessionState {
	state, _ := s.update(id, func(*sessionEntry) error { return nil })
	return state
}

// Count returns the number of known sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SetTranscript records the latest transcript from the recorder.
func (s *SessionService) SetTranscript(id, transcript string, duration int) models.SessionState {
	state, _ := s.update(id, func(e *sessionEntry) error {
		e.state.Recorder.Transcript = transcript
		e.state.Recorder.Duration = duration
		return nil
	})
	return state
}

// begin moves the session into the interpreting phase.
func (s *SessionService) begin(id, narration string) (uint64, error) {
	if strings.TrimSpace(narration) == "" {
		return 0, apperrors.NewValidationError("narration must not be blank", nil)
	}
	var gen uint64
	_, err := s.update(id, func(e *sessionEntry) error {
		if e.state.Phase == models.PhaseInterpreting {
			return apperrors.NewConflictError("an interpretation is already running for this session", nil)
		}
		e.state.Phase = models.PhaseInterpreting
		e.state.Recorder.Transcript = narration
		e.state.Recorder.IsProcessing = true
		e.state.Interpreter = models.InterpreterState{IsInterpreting: true}
		gen = e.gen
		return nil
	})
	return gen, err
}

// finish applies an interpretation outcome unless the session was reset.
func (s *SessionService) finish(id string, gen uint64, m *models.DreamMap, interpretErr error) models.SessionState {
	state, _ := s.update(id, func(e *sessionEntry) error {
		if e.gen != gen {
			return nil
		}
		e.state.Recorder.IsProcessing = false
		e.state.Interpreter.IsInterpreting = false
		if interpretErr != nil {
			// back to input; the transcript stays for resubmission
			e.state.Phase = models.PhaseInput
			e.state.Interpreter.Error = interpretErr.Error()
			return nil
		}
		e.state.Phase = models.PhaseExploring
		e.state.CurrentDreamMapID = m.ID
		e.state.CurrentSceneIndex = 0
		e.state.Interpreter.DreamMapID = m.ID
		e.state.IsExploring = true
		e.state.ShareToken = ""
		return nil
	})
	return state
}

// Submit interprets narration for the session. Blank narration is rejected
// without touching the session or the interpreter.
func (s *SessionService) Submit(ctx context.Context, id, narration string) (*models.DreamMap, models.SessionState, error) {
	id = normalizeSessionID(id)
	gen, err := s.begin(id, narration)
	if err != nil {
		return nil, s.Get(id), err
	}

	m, err := s.dreams.Interpret(ctx, id, narration)
	state := s.finish(id, gen, m, err)
	if err != nil {
		return nil, state, err
	}
	return m, state, nil
}

// SubmitAsync is Submit on a background task; it returns the task id.
func (s *SessionService) SubmitAsync(id, narration string) (string, error) {
	id = normalizeSessionID(id)
	gen, err := s.begin(id, narration)
	if err != nil {
		return "", err
	}

	taskID, err := s.dreams.InterpretAsync(id, narration, func(m *models.DreamMap, err error) {
		s.finish(id, gen, m, err)
	})
	if err != nil {
		s.finish(id, gen, nil, err)
		return "", err
	}
	return taskID, nil
}

// SetRenderMode switches between the 2D and 3D renderers.
func (s *SessionService) SetRenderMode(id string, mode models.RenderMode) (models.SessionState, error) {
	if _, err := models.ParseRenderMode(string(mode)); err != nil {
		return s.Get(id), apperrors.NewValidationError(err.Error(), nil)
	}
	return s.update(id, func(e *sessionEntry) error {
		e.state.RenderMode = mode
		return nil
	})
}

// SetSceneIndex selects a scene of the current map.
func (s *SessionService) SetSceneIndex(ctx context.Context, id string, index int) (models.SessionState, error) {
	id = normalizeSessionID(id)
	return s.update(id, func(e *sessionEntry) error {
		if e.state.CurrentDreamMapID == "" {
			return apperrors.NewConflictError("no dream is loaded", nil)
		}
		m, err := s.dreams.GetDream(ctx, id, e.state.CurrentDreamMapID)
		if err != nil {
			return err
		}
		if _, ok := m.Scene(index); !ok {
			return apperrors.NewValidationError(fmt.Sprintf("scene index %d out of range [0,%d)", index, len(m.Scenes)), nil)
		}
		e.state.CurrentSceneIndex = index
		return nil
	})
}

// SetShareToken records a token minted for the session's current map.
func (s *SessionService) SetShareToken(id, mapID, token string) models.SessionState {
	state, _ := s.update(id, func(e *sessionEntry) error {
		if e.state.CurrentDreamMapID == mapID {
			e.state.ShareToken = token
		}
		return nil
	})
	return state
}

// Reset returns the session to its initial state. Stored maps stay in the
// repository; a pending interpretation result is discarded.
func (s *SessionService) Reset(id string) models.SessionState {
	state, _ := s.update(id, func(e *sessionEntry) error {
		created := e.state.CreatedAt
		e.state = models.NewSessionState(e.state.ID, s.now())
		e.state.CreatedAt = created
		e.gen++
		return nil
	})
	s.logger.Info("session reset", map[string]interface{}{"session": state.ID})
	return state
}

// CurrentScene returns the map and scene the session is exploring.
func (s *SessionService) CurrentScene(ctx context.Context, id string) (*models.DreamMap, *models.DreamScene, error) {
	id = normalizeSessionID(id)
	state := s.Get(id)
	if state.CurrentDreamMapID == "" {
		return nil, nil, apperrors.NewNotFoundError("no dream is loaded", nil)
	}
	m, err := s.dreams.GetDream(ctx, id, state.CurrentDreamMapID)
	if err != nil {
		return nil, nil, err
	}
	scene, ok := m.Scene(state.CurrentSceneIndex)
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("scene not found", nil)
	}
	return m, scene, nil
}
