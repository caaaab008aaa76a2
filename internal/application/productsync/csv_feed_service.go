package productsync

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stocksync/backend/internal/domain/productsync"
	csvimport "github.com/stocksync/backend/internal/infrastructure/import"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// CSVImportResult represents the result of a custom CSV feed import
type CSVImportResult struct {
	Feed         *productsync.CustomCSV `json:"feed"`
	TotalRows    int                    `json:"total_rows"`
	ImportedRows int                    `json:"imported_rows"`
	ErrorRows    int                    `json:"error_rows"`
	Errors       []csvimport.RowError   `json:"errors,omitempty"`
	IsTruncated  bool                   `json:"is_truncated,omitempty"`
}

// CSVFeedService handles uploaded supplier feeds
type CSVFeedService struct {
	feeds         productsync.CustomCSVRepository
	retentionDays int
	now           func() time.Time
}

// NewCSVFeedService creates a CSVFeedService
func NewCSVFeedService(feeds productsync.CustomCSVRepository, retentionDays int) *CSVFeedService {
	return &CSVFeedService{feeds: feeds, retentionDays: retentionDays, now: time.Now}
}

// Import parses a feed and stores it as a new shadow catalog.
// Rows with invalid price or quantity are reported and skipped; a feed with
// no valid row is rejected.
func (s *CSVFeedService) Import(
	ctx context.Context,
	name string,
	r io.Reader,
	mapping csvimport.ColumnMapping,
	encodingName string,
) (*CSVImportResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: feed name is required", productsync.ErrInvalidSourceParams)
	}

	enc, err := csvimport.LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	read, err := csvimport.ReadSupplierProducts(r, mapping, csvimport.WithEncoding(enc))
	if err != nil {
		return nil, err
	}

	result := &CSVImportResult{
		TotalRows:   read.TotalRows,
		ErrorRows:   read.Errors.TotalCount(),
		Errors:      read.Errors.Errors(),
		IsTruncated: read.Errors.IsTruncated(),
	}
	if len(read.Products) == 0 {
		return result, fmt.Errorf("%w: no valid rows in %s", csvimport.ErrNoValidRows, name)
	}

	feed, err := s.feeds.Create(ctx, name, read.Products)
	if err != nil {
		return nil, fmt.Errorf("store custom csv: %w", err)
	}
	result.Feed = feed
	result.ImportedRows = len(read.Products)

	logger.L(ctx).Info(fmt.Sprintf("Custom CSV %s imported as #%d: %d products, %d rows skipped",
		name, feed.ID, result.ImportedRows, result.ErrorRows))
	return result, nil
}

// List returns every stored feed
func (s *CSVFeedService) List(ctx context.Context) ([]productsync.CustomCSV, error) {
	return s.feeds.FindAll(ctx)
}

// Prune deletes feeds older than olderThanDays, or the configured retention when 0
func (s *CSVFeedService) Prune(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = s.retentionDays
	}
	if olderThanDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	n, err := s.feeds.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	logger.L(ctx).Info(fmt.Sprintf("%d custom CSV feeds older than %d days deleted", n, olderThanDays))
	return n, nil
}
