package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const updateLogInsertBatchSize = 500

// GormUpdateLogRepository implements UpdateLogRepository using GORM
type GormUpdateLogRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormUpdateLogRepository creates a new GormUpdateLogRepository
func NewGormUpdateLogRepository(db *gorm.DB) *GormUpdateLogRepository {
	return &GormUpdateLogRepository{db: db, now: time.Now}
}

// LatestGroupID returns the highest gid, or 0 for an empty ledger
func (r *GormUpdateLogRepository) LatestGroupID(ctx context.Context) (int64, error) {
	var latest int64
	err := r.db.WithContext(ctx).
		Model(&models.UpdateLogModel{}).
		Select("COALESCE(MAX(gid), 0)").
		Scan(&latest).Error
	if err != nil {
		return 0, fmt.Errorf("read latest gid: %w", err)
	}
	return latest, nil
}

// NextGroupID returns max(gid)+1, or 1 for an empty ledger
func (r *GormUpdateLogRepository) NextGroupID(ctx context.Context) (int64, error) {
	latest, err := r.LatestGroupID(ctx)
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

// Record appends entries, stamping Time when it is zero
func (r *GormUpdateLogRepository) Record(ctx context.Context, entries []productsync.UpdateLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := r.now()
	rows := make([]*models.UpdateLogModel, 0, len(entries))
	for _, e := range entries {
		m := models.UpdateLogModelFromDomain(e)
		if m.Time.IsZero() {
			m.Time = now
		}
		rows = append(rows, m)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, updateLogInsertBatchSize).Error; err != nil {
		return fmt.Errorf("record update log: %w", err)
	}
	return nil
}

// PruneOlderThan deletes whole gid groups whose newest entry is older than cutoff
func (r *GormUpdateLogRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.db.WithContext(ctx)
	expired := db.Model(&models.UpdateLogModel{}).
		Select("gid").
		Group("gid").
		Having("MAX(time) < ?", cutoff)

	result := db.Where("gid IN (?)", expired).Delete(&models.UpdateLogModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune update log: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FindByGroup returns the entries of one group ordered by id
func (r *GormUpdateLogRepository) FindByGroup(ctx context.Context, gid int64) ([]productsync.UpdateLogEntry, error) {
	var rows []models.UpdateLogModel
	if err := r.db.WithContext(ctx).Where("gid = ?", gid).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find update log group %d: %w", gid, err)
	}
	entries := make([]productsync.UpdateLogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToDomain())
	}
	return entries, nil
}

var _ productsync.UpdateLogRepository = (*GormUpdateLogRepository)(nil)
