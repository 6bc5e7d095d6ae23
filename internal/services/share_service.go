// internal/services/share_service.go
package services

import (
	"context"

	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/storage"
	"github.com/Corphon/DreamScape/internal/utils"
)

// ShareTokenPrefix starts every share token.
const ShareTokenPrefix = "share_"

// ShareService mints share tokens and resolves them back to maps.
type ShareService struct {
	repo    storage.DreamRepository
	rnd     interpreter.RandomSource
	metrics *utils.DreamMetrics
	logger  *utils.Logger
}

// NewShareService creates a share service; a nil rnd uses the global source.
func NewShareService(repo storage.DreamRepository, rnd interpreter.RandomSource) *ShareService {
	if rnd == nil {
		rnd = interpreter.DefaultSource()
	}
	return &ShareService{
		repo:    repo,
		rnd:     rnd,
		metrics: utils.NewDreamMetrics(),
		logger:  utils.GetLogger().WithComponent("share_service"),
	}
}

// GenerateShareToken attaches a fresh token to the map and marks it public.
// An unknown map id yields ("", false). Sharing again replaces the token.
func (s *ShareService) GenerateShareToken(ctx context.Context, sessionID, mapID string) (string, bool) {
	token := ShareTokenPrefix + interpreter.NewID(s.rnd)
	if _, ok := s.repo.AttachShareToken(ctx, sessionID, mapID, token); !ok {
		return "", false
	}
	s.metrics.Collector().IncrementCounter(utils.MetricSharesTotal)
	s.logger.Info("dream shared", map[string]interface{}{"session": sessionID, "dream_id": mapID})
	return token, true
}

// RetrieveByToken resolves a token from any session. Absence is a normal outcome.
func (s *ShareService) RetrieveByToken(ctx context.Context, token string) (*models.DreamMap, bool) {
	return s.repo.FindByToken(ctx, token)
}
