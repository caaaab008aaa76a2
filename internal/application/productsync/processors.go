package productsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// CatalogLookupMode selects how the Fuse5 catalog is queried during a run
type CatalogLookupMode string

const (
	// CatalogLookupDatabase bulk-loads the catalog into supplier_products and queries it there
	CatalogLookupDatabase CatalogLookupMode = "database"
	// CatalogLookupMemory indexes the fetched catalog in a private in-memory database
	CatalogLookupMemory CatalogLookupMode = "memory"
)

// SourceProcessor loads the supplier catalog of one source kind
type SourceProcessor interface {
	Kind() productsync.SourceKind
	LoadCatalog(ctx context.Context, source productsync.StockDataSource) (productsync.CatalogHandle, error)
}

// Processors maps every supported source kind to its processor
type Processors map[productsync.SourceKind]SourceProcessor

// NewProcessors builds the registry from the given processors
func NewProcessors(processors ...SourceProcessor) Processors {
	out := make(Processors, len(processors))
	for _, p := range processors {
		out[p.Kind()] = p
	}
	return out
}

// For returns the processor of a source kind
func (p Processors) For(kind productsync.SourceKind) (SourceProcessor, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", productsync.ErrInvalidSourceKind, kind)
	}
	proc, ok := p[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", productsync.ErrNoProcessor, kind)
	}
	return proc, nil
}

var paramsValidator = validator.New(validator.WithRequiredStructEnabled())

// validateParams checks the struct tags of the source params
func validateParams(params productsync.SourceParams) error {
	if err := paramsValidator.Struct(params); err != nil {
		return fmt.Errorf("%w: %v", productsync.ErrInvalidSourceParams, err)
	}
	return nil
}

// fuse5Credentials is validated before a remote export is requested
type fuse5Credentials struct {
	APIKey string `validate:"required"`
	APIURL string `validate:"required,url"`
}

// Fuse5ProcessorConfig holds the processor settings
type Fuse5ProcessorConfig struct {
	Lookup           CatalogLookupMode
	UpdateFromRemote bool
	// APIKey and APIURL are used when the source params do not carry them
	APIKey string
	APIURL string
	// ChangedSince is the default incremental export date (YYYY-MM-DD)
	ChangedSince string
}

// Fuse5Processor loads the Fuse5 catalog, refreshing it from the remote when configured
type Fuse5Processor struct {
	feed    productsync.SupplierFeed
	store   productsync.SupplierCatalogStore
	indexer productsync.CatalogIndexer
	config  Fuse5ProcessorConfig
}

// NewFuse5Processor creates the Fuse5 processor
func NewFuse5Processor(
	feed productsync.SupplierFeed,
	store productsync.SupplierCatalogStore,
	indexer productsync.CatalogIndexer,
	config Fuse5ProcessorConfig,
) *Fuse5Processor {
	if config.Lookup == "" {
		config.Lookup = CatalogLookupDatabase
	}
	return &Fuse5Processor{feed: feed, store: store, indexer: indexer, config: config}
}

// Kind implements SourceProcessor
func (p *Fuse5Processor) Kind() productsync.SourceKind {
	return productsync.SourceKindFuse5
}

// LoadCatalog returns a lookup over the Fuse5 catalog.
// In database mode a refresh replaces supplier_products; without refresh the current table is used.
// In memory mode the catalog (fresh or cached) is indexed in a private database.
func (p *Fuse5Processor) LoadCatalog(ctx context.Context, source productsync.StockDataSource) (productsync.CatalogHandle, error) {
	if err := validateParams(source.Params); err != nil {
		return productsync.CatalogHandle{}, err
	}

	req, err := p.feedRequest(source.Params)
	if err != nil {
		return productsync.CatalogHandle{}, err
	}

	switch p.config.Lookup {
	case CatalogLookupMemory:
		return p.loadInMemory(ctx, req)
	default:
		return p.loadInDatabase(ctx, req)
	}
}

func (p *Fuse5Processor) feedRequest(params productsync.SourceParams) (productsync.FeedRequest, error) {
	req := productsync.FeedRequest{
		APIKey:  firstNonEmpty(params.APIKey, p.config.APIKey),
		APIURL:  firstNonEmpty(params.APIURL, p.config.APIURL),
		Refresh: p.config.UpdateFromRemote,
	}

	if req.Refresh {
		creds := fuse5Credentials{APIKey: req.APIKey, APIURL: req.APIURL}
		if err := paramsValidator.Struct(creds); err != nil {
			return req, fmt.Errorf("%w: fuse5 credentials: %v", productsync.ErrInvalidSourceParams, err)
		}
	}

	changedSince := params
	if changedSince.ChangedSince == "" {
		changedSince.ChangedSince = p.config.ChangedSince
	}
	since, err := changedSince.ChangedSinceTime()
	if err != nil {
		return req, err
	}
	req.ChangedSince = since
	return req, nil
}

func (p *Fuse5Processor) loadInDatabase(ctx context.Context, req productsync.FeedRequest) (productsync.CatalogHandle, error) {
	log := logger.L(ctx)

	if req.Refresh {
		products, err := p.feed.FetchCatalog(ctx, req)
		if err != nil {
			return productsync.CatalogHandle{}, err
		}
		started := time.Now()
		n, err := p.store.ReplaceAll(ctx, products)
		if err != nil {
			return productsync.CatalogHandle{}, fmt.Errorf("replace supplier catalog: %w", err)
		}
		log.Info(fmt.Sprintf("%d supplier products have been stored in %s", n, time.Since(started).Round(time.Millisecond)))
		return productsync.CatalogHandle{Lookup: p.store}, nil
	}

	count, err := p.store.Count(ctx)
	if err != nil {
		return productsync.CatalogHandle{}, fmt.Errorf("count supplier catalog: %w", err)
	}
	if count == 0 {
		return productsync.CatalogHandle{}, fmt.Errorf("%w: the supplier catalog is empty", productsync.ErrCatalogUnavailable)
	}
	log.Info(fmt.Sprintf("Using %d stored supplier products", count))
	return productsync.CatalogHandle{Lookup: p.store}, nil
}

func (p *Fuse5Processor) loadInMemory(ctx context.Context, req productsync.FeedRequest) (productsync.CatalogHandle, error) {
	products, err := p.feed.FetchCatalog(ctx, req)
	if err != nil {
		return productsync.CatalogHandle{}, err
	}
	if len(products) == 0 {
		return productsync.CatalogHandle{}, fmt.Errorf("%w: the supplier catalog is empty", productsync.ErrCatalogUnavailable)
	}

	logger.L(ctx).Info("Indexing suppliers data for search...")
	lookup, release, err := p.indexer.Index(ctx, products)
	if err != nil {
		return productsync.CatalogHandle{}, err
	}
	return productsync.CatalogHandle{Lookup: lookup, Release: release}, nil
}

// CustomCSVProcessor exposes an uploaded CSV feed as the catalog
type CustomCSVProcessor struct {
	feeds productsync.CustomCSVRepository
}

// NewCustomCSVProcessor creates the custom CSV processor
func NewCustomCSVProcessor(feeds productsync.CustomCSVRepository) *CustomCSVProcessor {
	return &CustomCSVProcessor{feeds: feeds}
}

// Kind implements SourceProcessor
func (p *CustomCSVProcessor) Kind() productsync.SourceKind {
	return productsync.SourceKindCustomCSV
}

// LoadCatalog returns a lookup scoped to the feed named by custom_csv_id
func (p *CustomCSVProcessor) LoadCatalog(ctx context.Context, source productsync.StockDataSource) (productsync.CatalogHandle, error) {
	if err := validateParams(source.Params); err != nil {
		return productsync.CatalogHandle{}, err
	}
	if source.Params.CustomCSVID == 0 {
		return productsync.CatalogHandle{}, fmt.Errorf("%w: custom_csv_id is required", productsync.ErrInvalidSourceParams)
	}

	feed, err := p.feeds.FindByID(ctx, source.Params.CustomCSVID)
	if err != nil {
		return productsync.CatalogHandle{}, err
	}
	logger.L(ctx).Info(fmt.Sprintf("Loading data from file %s (%d products)", feed.Name, feed.ProductCount))
	return productsync.CatalogHandle{Lookup: p.feeds.Lookup(feed.ID)}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var (
	_ SourceProcessor = (*Fuse5Processor)(nil)
	_ SourceProcessor = (*CustomCSVProcessor)(nil)
)
