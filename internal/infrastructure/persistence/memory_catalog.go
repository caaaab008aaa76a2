package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// SQLiteCatalogIndexer indexes a fetched catalog in a private in-memory SQLite
// database so that lookups share the SQL of the PostgreSQL-backed catalog.
type SQLiteCatalogIndexer struct {
	logger *zap.Logger
}

// NewSQLiteCatalogIndexer creates an indexer
func NewSQLiteCatalogIndexer(zapLogger *zap.Logger) *SQLiteCatalogIndexer {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &SQLiteCatalogIndexer{logger: zapLogger}
}

// Index loads products into a new in-memory database and returns a lookup over it.
// Rows without an ID are numbered in input order. The release func closes the database.
func (x *SQLiteCatalogIndexer) Index(ctx context.Context, products []productsync.SupplierProduct) (productsync.SupplierCatalogLookup, func() error, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.NewGormLogger(x.logger, gormlogger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open in-memory catalog: %v", productsync.ErrCatalogUnavailable, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", productsync.ErrCatalogUnavailable, err)
	}
	// every connection to :memory: is a different database
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&models.SupplierProductModel{}); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("%w: migrate in-memory catalog: %v", productsync.ErrCatalogUnavailable, err)
	}

	rows := make([]models.SupplierProductModel, 0, len(products))
	for _, p := range products {
		rows = append(rows, models.SupplierProductModel{ID: p.ID, SupplierProductColumns: models.SupplierProductColumnsFromDomain(p)})
	}
	if len(rows) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(rows, catalogInsertBatchSize).Error; err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("%w: index catalog: %v", productsync.ErrCatalogUnavailable, err)
		}
	}

	x.logger.Debug("supplier catalog indexed in memory", zap.Int("rows", len(rows)))
	return NewGormSupplierCatalog(db), sqlDB.Close, nil
}

// Ensure SQLiteCatalogIndexer implements CatalogIndexer
var _ productsync.CatalogIndexer = (*SQLiteCatalogIndexer)(nil)
