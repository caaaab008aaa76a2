package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockDataSourceRepository implements StockDataSourceRepository using GORM
type GormStockDataSourceRepository struct {
	db *gorm.DB
}

// NewGormStockDataSourceRepository creates a new GormStockDataSourceRepository
func NewGormStockDataSourceRepository(db *gorm.DB) *GormStockDataSourceRepository {
	return &GormStockDataSourceRepository{db: db}
}

// FindByID finds a source by its ID
func (r *GormStockDataSourceRepository) FindByID(ctx context.Context, id int64) (*productsync.StockDataSource, error) {
	var model models.StockDataSourceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productsync.ErrSourceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive returns the active sources ordered by id
func (r *GormStockDataSourceRepository) FindActive(ctx context.Context) ([]productsync.StockDataSource, error) {
	return r.list(r.db.WithContext(ctx).Where("active = ?", true))
}

// FindAll returns every source ordered by id
func (r *GormStockDataSourceRepository) FindAll(ctx context.Context) ([]productsync.StockDataSource, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *GormStockDataSourceRepository) list(q *gorm.DB) ([]productsync.StockDataSource, error) {
	var rows []models.StockDataSourceModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]productsync.StockDataSource, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Upsert inserts or updates a source by name and sets its ID
func (r *GormStockDataSourceRepository) Upsert(ctx context.Context, source *productsync.StockDataSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	model := models.StockDataSourceModelFromDomain(source)
	model.ID = 0

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "kind", "params", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("upsert stock data source %q: %w", source.Name, err)
	}

	var stored models.StockDataSourceModel
	if err := db.Where("name = ?", source.Name).First(&stored).Error; err != nil {
		return fmt.Errorf("reload stock data source %q: %w", source.Name, err)
	}
	source.ID = stored.ID
	return nil
}

var _ productsync.StockDataSourceRepository = (*GormStockDataSourceRepository)(nil)
