// internal/services/progress_service_test.go
package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	ps := NewProgressService()
	tr := ps.CreateTracker("t1")
	assert.Same(t, tr, ps.CreateTracker("t1"))

	sub := tr.Subscribe()
	first := <-sub
	assert.Equal(t, StatusRunning, first.Status)
	assert.Equal(t, "t1", first.TaskID)

	tr.UpdateProgress(40, "working")
	tr.UpdateProgress(20, "")
	assert.Equal(t, 40, (<-sub).Progress)
	assert.Equal(t, 40, (<-sub).Progress, "progress never goes backwards")
	assert.Equal(t, 1, ps.ActiveCount())

	tr.Complete("done", "dream-1")
	final := <-sub
	assert.True(t, final.Final())
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "dream-1", final.Result)

	// later transitions are ignored
	tr.Fail("boom")
	tr.UpdateProgress(50, "late")
	assert.Equal(t, StatusCompleted, tr.Snapshot().Status)
	assert.Zero(t, ps.ActiveCount())

	tr.Unsubscribe(sub)
	tr.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open)
}

func TestProgressCapsBelowCompletion(t *testing.T) {
	tr := NewProgressService().CreateTracker("t")
	tr.UpdateProgress(150, "")
	assert.Equal(t, 99, tr.Snapshot().Progress)
}

func TestFailKeepsProgress(t *testing.T) {
	tr := NewProgressService().CreateTracker("t")
	tr.UpdateProgress(30, "")
	tr.Fail("upstream timeout")

	snap := tr.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, 30, snap.Progress)
	assert.Contains(t, snap.Message, "upstream timeout")
	select {
	case <-tr.Done:
	default:
		t.Fatal("Done not closed")
	}
}

func TestCleanupCompletedTasks(t *testing.T) {
	ps := NewProgressService()
	ps.CreateTracker("running")
	done := ps.CreateTracker("done")
	done.Complete("", "")

	assert.Zero(t, ps.CleanupCompletedTasks(time.Hour))
	assert.Equal(t, 1, ps.CleanupCompletedTasks(-time.Second))
	_, ok := ps.GetTracker("done")
	assert.False(t, ok)
	_, ok = ps.GetTracker("running")
	assert.True(t, ok)
}

func TestLockManagerSerialises(t *testing.T) {
	lm := NewLockManager()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.ExecuteWithLock("s1", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 1, lm.Size())
}

func TestLockManagerEvictsIdleKeys(t *testing.T) {
	lm := NewLockManager()
	lm.maxLocks = 2
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, lm.ExecuteWithLock(k, func() error { return nil }))
	}

	assert.Zero(t, lm.cleanupUnusedLocks(time.Now()), "recently used keys stay")
	assert.Equal(t, 3, lm.cleanupUnusedLocks(time.Now().Add(time.Hour)))
	assert.Zero(t, lm.Size())
}
