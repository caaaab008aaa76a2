package supplier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
	csvimport "github.com/stocksync/backend/internal/infrastructure/import"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// maxLoggedRowErrors bounds how many skipped rows are itemised in the run log
const maxLoggedRowErrors = 20

// Fuse5Feed fetches the Fuse5 product catalog through an export file cached on disk
type Fuse5Feed struct {
	config *Fuse5Config
	opts   []Fuse5Option
}

// NewFuse5Feed creates a feed; credentials may come from the config or from each request
func NewFuse5Feed(config *Fuse5Config, opts ...Fuse5Option) *Fuse5Feed {
	return &Fuse5Feed{config: config, opts: opts}
}

// FetchCatalog returns the supplier catalog.
// With req.Refresh a new export is requested and downloaded to the cache file first;
// otherwise the cached export is read and its absence is ErrCatalogUnavailable.
func (f *Fuse5Feed) FetchCatalog(ctx context.Context, req productsync.FeedRequest) ([]productsync.SupplierProduct, error) {
	mapping := csvimport.Fuse5ColumnMapping(f.config.PriceField)

	if req.Refresh {
		if err := f.refresh(ctx, req, mapping.Fields()); err != nil {
			return nil, err
		}
	} else {
		logger.L(ctx).Info(fmt.Sprintf("Loading data from file %s", filepath.Base(f.config.CachePath)))
	}

	return f.readCache(ctx, mapping)
}

// CachePath returns the location of the cached export
func (f *Fuse5Feed) CachePath() string {
	return f.config.CachePath
}

func (f *Fuse5Feed) refresh(ctx context.Context, req productsync.FeedRequest, fields []string) error {
	client, err := NewFuse5Client(f.config.withCredentials(req.APIKey, req.APIURL), f.opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", productsync.ErrInvalidSourceParams, err)
	}

	logger.L(ctx).Info("Loading suppliers data (may takes a few minutes)...")
	exportURL, err := client.ExportCatalog(ctx, fields, req.ChangedSince)
	if err != nil {
		return err
	}
	logger.L(ctx).Info(fmt.Sprintf("The file is ready on the remote - %s", exportURL))

	dir := filepath.Dir(f.config.CachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fuse5: failed to create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".fuse5-export-*.csv")
	if err != nil {
		return fmt.Errorf("fuse5: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := client.Download(ctx, exportURL, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: the suppliers export is empty", productsync.ErrCatalogUnavailable)
	}

	// rename keeps the previous export intact until the new one is complete
	if err := os.Rename(tmp.Name(), f.config.CachePath); err != nil {
		return fmt.Errorf("fuse5: failed to replace cached export: %w", err)
	}
	logger.L(ctx).Debug("fuse5 export cached", zap.String("path", f.config.CachePath), zap.Int64("bytes", n))
	return nil
}

func (f *Fuse5Feed) readCache(ctx context.Context, mapping csvimport.ColumnMapping) ([]productsync.SupplierProduct, error) {
	file, err := os.Open(f.config.CachePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: the file %s not found", productsync.ErrCatalogUnavailable, f.config.CachePath)
	}
	if err != nil {
		return nil, fmt.Errorf("fuse5: failed to open cached export: %w", err)
	}
	defer file.Close()

	result, err := csvimport.ReadSupplierProducts(file, mapping)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", productsync.ErrCatalogUnavailable, err)
	}

	if result.Errors.HasErrors() {
		log := logger.L(ctx)
		log.Warn(fmt.Sprintf("%d supplier rows with unparsable price or quantity were skipped", result.Errors.TotalCount()))
		for i, rowErr := range result.Errors.Errors() {
			if i == maxLoggedRowErrors {
				break
			}
			log.Warn(rowErr.Error())
		}
	}
	return result.Products, nil
}

// Ensure Fuse5Feed implements SupplierFeed
var _ productsync.SupplierFeed = (*Fuse5Feed)(nil)
