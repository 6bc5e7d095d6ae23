// internal/interpreter/engine.go
package interpreter

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
)

// DefaultLatency stands in for the round trip of a real inference call.
const DefaultLatency = 1500 * time.Millisecond

// Options configures an Engine. Zero values pick production defaults.
type Options struct {
	// Latency is the simulated inference delay; negative disables it.
	Latency time.Duration
	Random  RandomSource
	Now     func() time.Time
}

// Engine turns narration text into a DreamMap by keyword matching.
type Engine struct {
	latency time.Duration
	rnd     RandomSource
	now     func() time.Time
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		latency: opts.Latency,
		rnd:     opts.Random,
		now:     opts.Now,
	}
	if e.latency == 0 {
		e.latency = DefaultLatency
	}
	if e.latency < 0 {
		e.latency = 0
	}
	if e.rnd == nil {
		e.rnd = DefaultSource()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Interpret waits out the simulated latency and then builds a map. Blank
// narration is rejected before any work starts; a cancelled or expired
// context comes back as an interpretation failure.
func (e *Engine) Interpret(ctx context.Context, narration string) (*models.DreamMap, error) {
	if strings.TrimSpace(narration) == "" {
		return nil, apperrors.NewValidationError("narration is empty", nil)
	}

	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, contextFailure(ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, contextFailure(err)
	}

	return e.Build(narration), nil
}

// Build runs the extraction pipeline synchronously.
func (e *Engine) Build(narration string) *models.DreamMap {
	now := e.now()
	scene := e.BuildScene(narration, now)

	return &models.DreamMap{
		ID:          NewID(e.rnd),
		Title:       "Dream: " + now.Format("1/2/2006"),
		Narration:   narration,
		Scenes:      []models.DreamScene{*scene},
		GeneratedAt: now.UnixMilli(),
		IsPublic:    false,
	}
}

// BuildScene extracts mood, palette, elements, lighting and fog into one scene.
func (e *Engine) BuildScene(narration string, now time.Time) *models.DreamScene {
	mood := ExtractMood(narration)
	colors := ExtractColors(narration)
	elements := GenerateElements(narration, mood, e.rnd)

	return &models.DreamScene{
		ID:          NewID(e.rnd),
		Title:       "Dream Scene",
		Narration:   narration,
		Timestamp:   now.UnixMilli(),
		Mood:        mood,
		Colors:      colors,
		Elements:    elements,
		Transitions: []models.SceneTransition{},
		Lighting:    LightingFor(mood, colors),
		Fog:         FogFor(mood),
	}
}

func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("interpretation timed out", err)
	}
	return apperrors.NewCanceledError("interpretation canceled", err)
}
