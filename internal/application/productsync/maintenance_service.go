package productsync

import (
	"context"
	"fmt"
	"time"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// MaintenanceService applies the retention policies of the ledger and uploaded feeds
type MaintenanceService struct {
	ledger       productsync.UpdateLogRepository
	feeds        *CSVFeedService
	logRetention int
	now          func() time.Time
}

// NewMaintenanceService creates a MaintenanceService
func NewMaintenanceService(ledger productsync.UpdateLogRepository, feeds *CSVFeedService, logRetentionDays int) *MaintenanceService {
	return &MaintenanceService{ledger: ledger, feeds: feeds, logRetention: logRetentionDays, now: time.Now}
}

// PruneLogs deletes whole ledger groups whose newest entry is older than olderThanDays.
// Zero uses the configured retention.
func (s *MaintenanceService) PruneLogs(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = s.logRetention
	}
	if olderThanDays <= 0 {
		return 0, nil
	}
	n, err := s.ledger.PruneOlderThan(ctx, s.now().AddDate(0, 0, -olderThanDays))
	if err != nil {
		return 0, fmt.Errorf("prune update log: %w", err)
	}
	logger.L(ctx).Info(fmt.Sprintf("%d update log entries older than %d days deleted", n, olderThanDays))
	return n, nil
}

// Run applies every retention policy with its configured age
func (s *MaintenanceService) Run(ctx context.Context) error {
	if _, err := s.PruneLogs(ctx, 0); err != nil {
		return err
	}
	if s.feeds == nil {
		return nil
	}
	_, err := s.feeds.Prune(ctx, 0)
	return err
}
