// internal/models/session.go
package models

import (
	"fmt"
	"time"
)

// Phase is where a session is in the narrate → interpret → explore flow.
type Phase string

const (
	PhaseInput        Phase = "input"
	PhaseInterpreting Phase = "interpreting"
	PhaseExploring    Phase = "exploring"
)

// RenderMode picks which renderer is mounted.
type RenderMode string

const (
	RenderMode2D RenderMode = "2d"
	RenderMode3D RenderMode = "3d"
)

// ParseRenderMode converts a string into a render mode.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(s) {
	case RenderMode2D, RenderMode3D:
		return RenderMode(s), nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// RecorderState mirrors the transcript source.
type RecorderState struct {
	IsRecording  bool   `json:"isRecording"`
	Transcript   string `json:"transcript"`
	Duration     int    `json:"duration"`
	IsProcessing bool   `json:"isProcessing"`
}

// InterpreterState tracks the last interpretation attempt.
type InterpreterState struct {
	IsInterpreting bool   `json:"isInterpreting"`
	DreamMapID     string `json:"dreamMapId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SessionState is the per-session view state.
type SessionState struct {
	ID                string           `json:"id"`
	Phase             Phase            `json:"phase"`
	CurrentDreamMapID string           `json:"currentDreamMapId,omitempty"`
	CurrentSceneIndex int              `json:"currentSceneIndex"`
	RenderMode        RenderMode       `json:"renderMode"`
	Recorder          RecorderState    `json:"recorderState"`
	Interpreter       InterpreterState `json:"interpreterState"`
	ShareToken        string           `json:"shareToken,omitempty"`
	IsExploring       bool             `json:"isExploring"`
	CreatedAt         time.Time        `json:"createdAt"`
	LastAccessed      time.Time        `json:"lastAccessed"`
}

// NewSessionState returns the initial state of a session.
func NewSessionState(id string, now time.Time) SessionState {
	return SessionState{
		ID:           id,
		Phase:        PhaseInput,
		RenderMode:   RenderMode3D,
		CreatedAt:    now,
		LastAccessed: now,
	}
}
