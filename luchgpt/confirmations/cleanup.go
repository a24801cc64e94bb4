package confirmations

import (
	"context"
	"time"

	"codeberg.org/luchgpt/server/internal/logger"
)

// periodically removes expired confirmation codes
type CleanupService struct {
	repo          Repository
	checkInterval time.Duration
	now           func() time.Time
}

func NewCleanupService(repo Repository, checkInterval time.Duration) *CleanupService {
	return &CleanupService{
		repo:          repo,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// begins the cleanup service background loop
func (s *CleanupService) Start(ctx context.Context) {
	logger.Info("starting confirmation cleanup service", "check_interval", s.checkInterval)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("confirmation cleanup service stopped")
			return
		case <-ticker.C:
			s.cleanupExpired(ctx)
		}
	}
}

func (s *CleanupService) cleanupExpired(ctx context.Context) {
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		logger.ErrorErr(err, "failed to delete expired confirmation codes")
		return
	}

	if removed > 0 {
		logger.Info("deleted expired confirmation codes", "count", removed)
	}
}
