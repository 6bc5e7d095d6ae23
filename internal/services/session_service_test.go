// internal/services/session_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	f := newFixture(t)
	st := f.sessions.Get("")
	assert.Equal(t, DefaultSessionID, st.ID)
	assert.Equal(t, models.PhaseInput, st.Phase)
	assert.Equal(t, models.RenderMode3D, st.RenderMode)
	assert.Equal(t, 1, f.sessions.Count())
}

func TestSubmitMovesToExploring(t *testing.T) {
	f := newFixture(t)
	m, st, err := f.sessions.Submit(context.Background(), "s1", dragonDream)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseExploring, st.Phase)
	assert.Equal(t, m.ID, st.CurrentDreamMapID)
	assert.Equal(t, 0, st.CurrentSceneIndex)
	assert.True(t, st.IsExploring)
	assert.False(t, st.Interpreter.IsInterpreting)
	assert.Equal(t, dragonDream, st.Recorder.Transcript)

	gotMap, scene, err := f.sessions.CurrentScene(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, gotMap.ID)
	assert.Equal(t, m.Scenes[0].ID, scene.ID)
}

func TestBlankSubmitKeepsPhase(t *testing.T) {
	f := newFixture(t)
	_, st, err := f.sessions.Submit(context.Background(), "s1", "   ")
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, models.PhaseInput, st.Phase)
	assert.Zero(t, f.provider.calls.Load())

	_, err = f.sessions.SubmitAsync("s1", "")
	assert.True(t, apperrors.IsValidationError(err))
	assert.Zero(t, f.provider.calls.Load())
}

func TestFailedSubmitRevertsAndKeepsTranscript(t *testing.T) {
	f := newFixture(t)
	f.provider.err = apperrors.NewTimeoutError("upstream timeout", nil)

	_, st, err := f.sessions.Submit(context.Background(), "s1", dragonDream)
	require.Error(t, err)
	assert.Equal(t, models.PhaseInput, st.Phase)
	assert.Equal(t, dragonDream, st.Recorder.Transcript)
	assert.NotEmpty(t, st.Interpreter.Error)
	assert.Empty(t, st.CurrentDreamMapID)

	// resubmission works once the upstream recovers
	f.provider.err = nil
	_, st, err = f.sessions.Submit(context.Background(), "s1", st.Recorder.Transcript)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseExploring, st.Phase)
	assert.Empty(t, st.Interpreter.Error)
}

func TestConcurrentSubmitConflicts(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})

	taskID, err := f.sessions.SubmitAsync("s1", dragonDream)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseInterpreting, f.sessions.Get("s1").Phase)

	_, _, err = f.sessions.Submit(context.Background(), "s1", "castle")
	assert.True(t, apperrors.IsConflictError(err))

	close(f.provider.gate)
	tracker, _ := f.progress.GetTracker(taskID)
	waitDone(t, tracker)
	assert.Equal(t, models.PhaseExploring, f.sessions.Get("s1").Phase)
}

func TestResetDropsLateResult(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})

	taskID, err := f.sessions.SubmitAsync("s1", dragonDream)
	require.NoError(t, err)
	f.sessions.Reset("s1")

	close(f.provider.gate)
	tracker, _ := f.progress.GetTracker(taskID)
	waitDone(t, tracker)

	st := f.sessions.Get("s1")
	assert.Equal(t, models.PhaseInput, st.Phase)
	assert.Empty(t, st.CurrentDreamMapID)
	// the map itself was still registered
	assert.Equal(t, 1, f.repo.Count())
}

func TestResetRestoresDefaults(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.sessions.Submit(context.Background(), "s1", dragonDream)
	require.NoError(t, err)
	_, err = f.sessions.SetRenderMode("s1", models.RenderMode2D)
	require.NoError(t, err)
	created := f.sessions.Get("s1").CreatedAt

	time.Sleep(time.Millisecond)
	st := f.sessions.Reset("s1")
	assert.Equal(t, models.PhaseInput, st.Phase)
	assert.Equal(t, models.RenderMode3D, st.RenderMode)
	assert.Empty(t, st.Recorder.Transcript)
	assert.False(t, st.IsExploring)
	assert.Equal(t, created, st.CreatedAt)
	assert.Equal(t, 1, f.repo.Count())
}

func TestRenderModeAndSceneIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.SetSceneIndex(ctx, "s1", 0)
	assert.True(t, apperrors.IsConflictError(err), "no map loaded yet")

	_, _, err = f.sessions.Submit(ctx, "s1", dragonDream)
	require.NoError(t, err)

	st, err := f.sessions.SetSceneIndex(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CurrentSceneIndex)
	_, err = f.sessions.SetSceneIndex(ctx, "s1", 1)
	assert.True(t, apperrors.IsValidationError(err))

	st, err = f.sessions.SetRenderMode("s1", models.RenderMode2D)
	require.NoError(t, err)
	assert.Equal(t, models.RenderMode2D, st.RenderMode)
	st, err = f.sessions.SetRenderMode("s1", "4d")
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, models.RenderMode2D, st.RenderMode)
}

func TestSetShareTokenOnlyForCurrentMap(t *testing.T) {
	f := newFixture(t)
	m, _, err := f.sessions.Submit(context.Background(), "s1", dragonDream)
	require.NoError(t, err)

	st := f.sessions.SetShareToken("s1", "other", "share_x")
	assert.Empty(t, st.ShareToken)
	st = f.sessions.SetShareToken("s1", m.ID, "share_y")
	assert.Equal(t, "share_y", st.ShareToken)
}

func TestCurrentSceneWithoutMap(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.sessions.CurrentScene(context.Background(), "s1")
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.False(t, errors.Is(err, context.Canceled))
}
