package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomCSVRepository stores uploaded feeds as shadow catalogs
type GormCustomCSVRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormCustomCSVRepository creates a new GormCustomCSVRepository
func NewGormCustomCSVRepository(db *gorm.DB) *GormCustomCSVRepository {
	return &GormCustomCSVRepository{db: db, now: time.Now}
}

// Create stores a feed and its rows in one transaction
func (r *GormCustomCSVRepository) Create(ctx context.Context, name string, products []productsync.SupplierProduct) (*productsync.CustomCSV, error) {
	feed := &models.CustomCSVModel{Name: name, CreatedAt: r.now()}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(feed).Error; err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		rows := make([]models.CustomCSVProductModel, 0, len(products))
		for _, p := range products {
			rows = append(rows, models.CustomCSVProductModel{
				CustomCSVID:            feed.ID,
				SupplierProductColumns: models.SupplierProductColumnsFromDomain(p),
			})
		}
		return tx.CreateInBatches(rows, catalogInsertBatchSize).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create custom csv %q: %w", name, err)
	}
	return feed.ToDomain(int64(len(products))), nil
}

// FindByID returns a feed with its row count
func (r *GormCustomCSVRepository) FindByID(ctx context.Context, id int64) (*productsync.CustomCSV, error) {
	db := r.db.WithContext(ctx)
	var feed models.CustomCSVModel
	if err := db.Where("id = ?", id).First(&feed).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productsync.ErrCustomCSVNotFound
		}
		return nil, err
	}
	var n int64
	if err := db.Model(&models.CustomCSVProductModel{}).Where("custom_csv_id = ?", id).Count(&n).Error; err != nil {
		return nil, err
	}
	return feed.ToDomain(n), nil
}

// FindAll returns every feed, newest first
func (r *GormCustomCSVRepository) FindAll(ctx context.Context) ([]productsync.CustomCSV, error) {
	db := r.db.WithContext(ctx)
	var feeds []models.CustomCSVModel
	if err := db.Order("created_at DESC, id DESC").Find(&feeds).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		CustomCSVID int64
		N           int64
	}
	err := db.Model(&models.CustomCSVProductModel{}).
		Select("custom_csv_id, COUNT(*) AS n").
		Group("custom_csv_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]int64, len(counts))
	for _, c := range counts {
		byID[c.CustomCSVID] = c.N
	}

	out := make([]productsync.CustomCSV, 0, len(feeds))
	for i := range feeds {
		out = append(out, *feeds[i].ToDomain(byID[feeds[i].ID]))
	}
	return out, nil
}

// Lookup returns a catalog lookup scoped to one feed
func (r *GormCustomCSVRepository) Lookup(id int64) productsync.SupplierCatalogLookup {
	return &GormSupplierCatalog{
		db:    r.db,
		table: models.CustomCSVProductModel{}.TableName(),
		scope: func(q *gorm.DB) *gorm.DB {
			return q.Where("custom_csv_id = ?", id)
		},
	}
}

// PruneOlderThan deletes whole feeds created before the cutoff
func (r *GormCustomCSVRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var pruned int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		if err := tx.Model(&models.CustomCSVModel{}).Where("created_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("custom_csv_id IN ?", ids).Delete(&models.CustomCSVProductModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.CustomCSVModel{})
		pruned = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("prune custom csv feeds: %w", err)
	}
	return pruned, nil
}

var _ productsync.CustomCSVRepository = (*GormCustomCSVRepository)(nil)
