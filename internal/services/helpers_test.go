// internal/services/helpers_test.go
package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/storage"
)

const dragonDream = "I was flying over a dark forest and a dragon chased me"

// stubProvider wraps the keyword engine with call counting, injected
// failures and an optional gate that holds Interpret until released.
type stubProvider struct {
	engine *interpreter.Engine
	calls  atomic.Int32
	err    error
	gate   chan struct{}
}

func newStubProvider() *stubProvider {
	return &stubProvider{engine: interpreter.NewEngine(interpreter.Options{
		Latency: -1,
		Random:  interpreter.NewSeededSource(42),
		Now:     func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	})}
}

func (p *stubProvider) Initialize(map[string]string) error { return nil }

func (p *stubProvider) GetName() string { return "stub" }

func (p *stubProvider) Interpret(ctx context.Context, narration string) (*models.DreamMap, error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, apperrors.NewCanceledError("interpretation canceled", ctx.Err())
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.engine.Interpret(ctx, narration)
}

type fixture struct {
	provider *stubProvider
	repo     *storage.MemoryRepository
	progress *ProgressService
	dreams   *DreamService
	sessions *SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider: newStubProvider(),
		repo:     storage.NewMemoryRepository(),
		progress: NewProgressService(),
	}
	f.dreams = NewDreamService(f.provider, f.repo, f.progress)
	f.sessions = NewSessionService(f.dreams, NewLockManager())
	return f
}

func waitDone(t *testing.T, tracker *ProgressTracker) {
	t.Helper()
	select {
	case <-tracker.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}
