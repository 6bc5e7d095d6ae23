// internal/storage/dream_repository.go
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Corphon/DreamScape/internal/models"
)

// DreamRepository keeps interpreted dream maps, partitioned by session.
// Share tokens are global: a token minted in one session resolves from any other.
type DreamRepository interface {
	Save(ctx context.Context, sessionID string, m *models.DreamMap) error
	Get(ctx context.Context, sessionID, id string) (*models.DreamMap, bool)
	List(ctx context.Context, sessionID string) []*models.DreamMap
	AttachShareToken(ctx context.Context, sessionID, id, token string) (*models.DreamMap, bool)
	FindByToken(ctx context.Context, token string) (*models.DreamMap, bool)
	Count() int
}

type storedMap struct {
	sessionID string
	seq       int
	m         *models.DreamMap
}

// MemoryRepository is the in-process DreamRepository. Callers always get
// clones, so nothing outside the repository can mutate a stored map.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*storedMap
	seq      int
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]map[string]*storedMap)}
}

// Save stores a copy of m. Saving an existing id replaces it in place.
func (r *MemoryRepository) Save(ctx context.Context, sessionID string, m *models.DreamMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	maps, ok := r.sessions[sessionID]
	if !ok {
		maps = make(map[string]*storedMap)
		r.sessions[sessionID] = maps
	}
	if existing, ok := maps[m.ID]; ok {
		existing.m = m.Clone()
		return nil
	}
	r.seq++
	maps[m.ID] = &storedMap{sessionID: sessionID, seq: r.seq, m: m.Clone()}
	return nil
}

// Get returns a copy of the map with the given id in the session.
func (r *MemoryRepository) Get(ctx context.Context, sessionID, id string) (*models.DreamMap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID][id]
	if !ok {
		return nil, false
	}
	return s.m.Clone(), true
}

// List returns copies of every map in the session, oldest first.
func (r *MemoryRepository) List(ctx context.Context, sessionID string) []*models.DreamMap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := make([]*storedMap, 0, len(r.sessions[sessionID]))
	for _, s := range r.sessions[sessionID] {
		stored = append(stored, s)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	out := make([]*models.DreamMap, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.m.Clone())
	}
	return out
}

// AttachShareToken records token on the map and marks it public. It reports
// false when the map does not exist.
func (r *MemoryRepository) AttachShareToken(ctx context.Context, sessionID, id, token string) (*models.DreamMap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID][id]
	if !ok {
		return nil, false
	}
	s.m.ShareToken = token
	s.m.IsPublic = true
	return s.m.Clone(), true
}

// FindByToken scans every session for the map carrying token.
func (r *MemoryRepository) FindByToken(ctx context.Context, token string) (*models.DreamMap, bool) {
	if token == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, maps := range r.sessions {
		for _, s := range maps {
			if s.m.ShareToken == token {
				return s.m.Clone(), true
			}
		}
	}
	return nil, false
}

// Count returns the number of stored maps across sessions.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, maps := range r.sessions {
		n += len(maps)
	}
	return n
}
