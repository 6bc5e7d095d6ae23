// internal/services/progress_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task states reported by a ProgressTracker.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// ProgressUpdate is one progress notification.
type ProgressUpdate struct {
	TaskID   string `json:"task_id"`
	Progress int    `json:"progress"` // 0-100
	Message  string `json:"message"`
	Status   string `json:"status"`
	// Result is set on completion, e.g. the id of the created dream map.
	Result string `json:"result,omitempty"`
}

// Final reports whether no further updates follow.
func (u ProgressUpdate) Final() bool {
	return u.Status != StatusRunning
}

// ProgressTracker follows one long-running task.
type ProgressTracker struct {
	TaskID     string
	Progress   int
	Message    string
	Status     string
	Result     string
	StartTime  time.Time
	UpdateTime time.Time
	// Done is closed once the task reaches a final state.
	Done chan struct{}

	subscribers map[chan ProgressUpdate]bool
	cancel      context.CancelFunc
	mutex       sync.Mutex
}

// ProgressService owns every tracker.
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

// NewProgressService creates an empty service.
func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// CreateTracker registers a tracker, returning the existing one for a known id.
func (s *ProgressService) CreateTracker(taskID string) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tracker, exists := s.trackers[taskID]; exists {
		return tracker
	}

	now := time.Now()
	tracker := &ProgressTracker{
		TaskID:      taskID,
		Message:     "queued",
		Status:      StatusRunning,
		StartTime:   now,
		UpdateTime:  now,
		Done:        make(chan struct{}),
		subscribers: make(map[chan ProgressUpdate]bool),
	}
	s.trackers[taskID] = tracker
	return tracker
}

// GetTracker looks up a tracker.
func (s *ProgressService) GetTracker(taskID string) (*ProgressTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tracker, exists := s.trackers[taskID]
	return tracker, exists
}

// Cancel cancels a running task. It reports false for unknown or finished tasks.
func (s *ProgressService) Cancel(taskID string) bool {
	tracker, ok := s.GetTracker(taskID)
	if !ok {
		return false
	}
	return tracker.requestCancel()
}

// ActiveCount returns the number of running tasks.
func (s *ProgressService) ActiveCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	n := 0
	for _, t := range s.trackers {
		if t.Snapshot().Status == StatusRunning {
			n++
		}
	}
	return n
}

// CleanupCompletedTasks drops finished trackers idle for longer than maxAge.
func (s *ProgressService) CleanupCompletedTasks(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	now := time.Now()
	for id, tracker := range s.trackers {
		tracker.mutex.Lock()
		finished := tracker.Status != StatusRunning
		old := now.Sub(tracker.UpdateTime) > maxAge
		tracker.mutex.Unlock()

		if finished && old {
			delete(s.trackers, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs CleanupCompletedTasks every interval until ctx ends.
func (s *ProgressService) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupCompletedTasks(maxAge)
			}
		}
	}()
}

// bindCancel attaches the function that aborts the task.
func (t *ProgressTracker) bindCancel(cancel context.CancelFunc) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.cancel = cancel
}

func (t *ProgressTracker) requestCancel() bool {
	t.mutex.Lock()
	cancel := t.cancel
	running := t.Status == StatusRunning
	t.mutex.Unlock()
	if !running || cancel == nil {
		return false
	}
	cancel()
	return true
}

func (t *ProgressTracker) snapshotLocked() ProgressUpdate {
	return ProgressUpdate{
		TaskID:   t.TaskID,
		Progress: t.Progress,
		Message:  t.Message,
		Status:   t.Status,
		Result:   t.Result,
	}
}

// Snapshot returns the current state.
func (t *ProgressTracker) Snapshot() ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.snapshotLocked()
}

// broadcastLocked sends without blocking; a full subscriber misses the update.
func (t *ProgressTracker) broadcastLocked() {
	update := t.snapshotLocked()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- update:
		default:
		}
	}
}

// UpdateProgress raises progress monotonically and replaces the message.
func (t *ProgressTracker) UpdateProgress(progress int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.Status != StatusRunning {
		return
	}

	if progress > t.Progress {
		t.Progress = min(progress, 99)
	}
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()
	t.broadcastLocked()
}

// Complete marks the task done with a result.
func (t *ProgressTracker) Complete(message, result string) {
	t.finish(StatusCompleted, message, result)
}

// Fail marks the task failed.
func (t *ProgressTracker) Fail(errorMsg string) {
	t.finish(StatusFailed, fmt.Sprintf("task failed: %s", errorMsg), "")
}

// Canceled marks the task canceled by the client.
func (t *ProgressTracker) Canceled() {
	t.finish(StatusCanceled, "task canceled", "")
}

func (t *ProgressTracker) finish(status, message, result string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.Status != StatusRunning {
		return
	}

	t.Status = status
	t.Message = message
	t.Result = result
	if status == StatusCompleted {
		t.Progress = 100
	}
	t.UpdateTime = time.Now()
	t.broadcastLocked()
	close(t.Done)
}

// Subscribe returns a channel that first receives the current state.
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	subscriber := make(chan ProgressUpdate, 10)
	t.subscribers[subscriber] = true
	subscriber <- t.snapshotLocked()
	return subscriber
}

// Unsubscribe detaches and closes a subscriber channel. Calling it twice is safe.
func (t *ProgressTracker) Unsubscribe(subscriber chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.subscribers[subscriber] {
		delete(t.subscribers, subscriber)
		close(subscriber)
	}
}
