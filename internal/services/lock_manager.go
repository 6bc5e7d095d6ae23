// internal/services/lock_manager.go
package services

import (
	"context"
	"sync"
	"time"
)

// LockManager hands out one mutex per key (session id) and forgets keys that
// have been idle for a while.
type LockManager struct {
	locks      map[string]*lockInfo
	globalLock sync.Mutex
	idleTTL    time.Duration
	maxLocks   int
}

type lockInfo struct {
	mu       sync.Mutex
	lastUsed time.Time
	refs     int
}

// NewLockManager creates a manager; call StartCleanup to evict idle keys.
func NewLockManager() *LockManager {
	return &LockManager{
		locks:    make(map[string]*lockInfo),
		idleTTL:  30 * time.Minute,
		maxLocks: 200,
	}
}

func (lm *LockManager) acquire(key string) *lockInfo {
	lm.globalLock.Lock()
	info, exists := lm.locks[key]
	if !exists {
		info = &lockInfo{}
		lm.locks[key] = info
	}
	info.refs++
	info.lastUsed = time.Now()
	lm.globalLock.Unlock()

	info.mu.Lock()
	return info
}

func (lm *LockManager) release(info *lockInfo) {
	info.mu.Unlock()

	lm.globalLock.Lock()
	info.refs--
	info.lastUsed = time.Now()
	lm.globalLock.Unlock()
}

// ExecuteWithLock runs fn while holding the lock for key.
func (lm *LockManager) ExecuteWithLock(key string, fn func() error) error {
	info := lm.acquire(key)
	defer lm.release(info)
	return fn()
}

// Size returns the number of tracked keys.
func (lm *LockManager) Size() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.locks)
}

// StartCleanup evicts idle keys every interval until ctx ends.
func (lm *LockManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lm.cleanupUnusedLocks(time.Now())
			}
		}
	}()
}

// cleanupUnusedLocks only evicts once the table grows past maxLocks, and
// never a key that is held or waited on.
func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if len(lm.locks) <= lm.maxLocks {
		return 0
	}
	removed := 0
	for key, info := range lm.locks {
		if info.refs == 0 && now.Sub(info.lastUsed) > lm.idleTTL {
			delete(lm.locks, key)
			removed++
		}
	}
	return removed
}
