// internal/services/dream_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretStoresMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.dreams.Interpret(ctx, "s1", dragonDream)
	require.NoError(t, err)
	require.Len(t, m.Scenes, 1)
	assert.Equal(t, models.MoodOminous, m.Scenes[0].Mood)
	assert.Len(t, m.Scenes[0].Elements, 3)

	got, err := f.dreams.GetDream(ctx, "s1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = f.dreams.GetDream(ctx, "s2", m.ID)
	assert.True(t, apperrors.IsNotFoundError(err), "maps are session scoped")
	assert.Len(t, f.dreams.ListDreams(ctx, "s1"), 1)
}

func TestBlankNarrationNeverReachesProvider(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := f.dreams.Interpret(context.Background(), "s1", text)
		assert.True(t, apperrors.IsValidationError(err))
		_, err = f.dreams.InterpretAsync("s1", text, nil)
		assert.True(t, apperrors.IsValidationError(err))
	}
	assert.Zero(t, f.provider.calls.Load())
	assert.Zero(t, f.repo.Count())
}

func TestProviderFailureIsTyped(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("upstream exploded")

	_, err := f.dreams.Interpret(context.Background(), "s1", dragonDream)
	require.Error(t, err)
	assert.True(t, apperrors.IsInterpretationFailure(err))
	assert.Zero(t, f.repo.Count())

	f.provider.err = apperrors.NewTimeoutError("upstream timeout", nil)
	_, err = f.dreams.Interpret(context.Background(), "s1", dragonDream)
	assert.Equal(t, apperrors.ErrorTypeTimeout, apperrors.TypeOf(err))
}

func TestInterpretAsyncCompletes(t *testing.T) {
	f := newFixture(t)

	var done *models.DreamMap
	taskID, err := f.dreams.InterpretAsync("s1", dragonDream, func(m *models.DreamMap, err error) {
		done = m
	})
	require.NoError(t, err)

	tracker, ok := f.progress.GetTracker(taskID)
	require.True(t, ok)
	waitDone(t, tracker)

	snap := tracker.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, done)
	assert.Equal(t, done.ID, snap.Result)
	assert.Equal(t, 1, f.repo.Count())
}

func TestInterpretAsyncCancel(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})

	var gotErr error
	taskID, err := f.dreams.InterpretAsync("s1", dragonDream, func(m *models.DreamMap, err error) {
		gotErr = err
	})
	require.NoError(t, err)
	tracker, _ := f.progress.GetTracker(taskID)

	assert.True(t, f.progress.Cancel(taskID))
	waitDone(t, tracker)

	assert.Equal(t, StatusCanceled, tracker.Snapshot().Status)
	assert.True(t, apperrors.IsInterpretationFailure(gotErr))
	assert.False(t, f.progress.Cancel(taskID), "finished tasks cannot be canceled")
	assert.False(t, f.progress.Cancel("nope"))
}

func TestSetProviderSwapsInterpreter(t *testing.T) {
	f := newFixture(t)
	other := newStubProvider()
	f.dreams.SetProvider(other)

	_, err := f.dreams.Interpret(context.Background(), "s1", "castle")
	require.NoError(t, err)
	assert.Zero(t, f.provider.calls.Load())
	assert.Equal(t, int32(1), other.calls.Load())
}
