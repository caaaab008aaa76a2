package productsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/telemetry"
)

// DefaultBatchSize matches the storefront page limit
const DefaultBatchSize = 250

// SyncConfig holds the reconciliation settings of the service
type SyncConfig struct {
	BatchSize             int
	SKUPolicy             productsync.SKUPolicy
	NearMissSKUPolicy     productsync.SKUPolicy
	DefaultLocationName   string
	MissingLocationPolicy MissingLocationPolicy
	WriteRetry            RetryPolicy
	// LogRetentionDays prunes ledger groups older than this before a live run; 0 keeps everything
	LogRetentionDays      int
	TitleFetchConcurrency int
}

// SyncDeps are the collaborators of SyncService
type SyncDeps struct {
	Sources    productsync.StockDataSourceRepository
	Processors Processors
	Storefront productsync.StorefrontClient
	Ledger     productsync.UpdateLogRepository
	Registry   productsync.ReviewRegistry
	Metrics    MetricsRecorder
	Logger     *zap.Logger
}

// SyncService runs the reconciliation of one source against the storefront
type SyncService struct {
	deps   SyncDeps
	config SyncConfig
	now    func() time.Time
}

// NewSyncService creates a SyncService
func NewSyncService(deps SyncDeps, config SyncConfig) *SyncService {
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if config.BatchSize <= 0 || config.BatchSize > DefaultBatchSize {
		config.BatchSize = DefaultBatchSize
	}
	if config.MissingLocationPolicy == "" {
		config.MissingLocationPolicy = MissingLocationSkip
	}
	if config.TitleFetchConcurrency <= 0 {
		config.TitleFetchConcurrency = 1
	}
	return &SyncService{deps: deps, config: config, now: time.Now}
}

var _ productsync.SyncRunner = (*SyncService)(nil)

// RunSync runs one sync of req.SourceID.
// A dry run computes every decision and writes nothing to the storefront or the ledger.
// Cancellation through req.Abort is not an error: the result carries Aborted and the
// updates applied so far stay committed. Only source lookup, catalog loading and
// persistence failures are returned as errors.
func (s *SyncService) RunSync(ctx context.Context, req productsync.RunRequest) (*productsync.RunResult, error) {
	source, err := s.deps.Sources.FindByID(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	if !req.Dry && !source.Active {
		return nil, fmt.Errorf("%w: %s", productsync.ErrSourceInactive, source.Name)
	}
	processor, err := s.deps.Processors.For(source.Kind)
	if err != nil {
		return nil, err
	}

	options := source.Params.Options()
	if req.Options != nil {
		options = *req.Options
	}

	memory := logger.NewMemorySink()
	runCtx, base := logger.WithRunID(ctx, s.deps.Logger, uuid.NewString())
	runCtx, base = logger.WithSourceID(runCtx, base, source.ID)
	runCtx = logger.WithContext(runCtx, logger.TeeToSink(base, productsync.MultiSink{memory, req.Sink}))

	runCtx, span := telemetry.StartRun(runCtx, *source, req.Dry)
	defer span.End()

	run := &syncRun{
		service:   s,
		source:    *source,
		processor: processor,
		options:   options,
		dry:       req.Dry,
		abort:     req.Abort,
		result:    &productsync.RunResult{},
	}

	started := s.now()
	err = run.execute(runCtx)
	elapsed := s.now().Sub(started)

	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailed
		logger.L(runCtx).Error(fmt.Sprintf("%s products sync failed - %s", source.Kind.DisplayName(), err))
	case run.result.Aborted:
		outcome = OutcomeAborted
	}
	s.deps.Metrics.RunFinished(source.Name, req.Dry, outcome, elapsed)
	telemetry.FinishRun(span, outcome, run.result.Stats, err)

	run.result.Logs = memory.Lines(0)
	return run.result, err
}

// unmatchedVariant is a variant that failed barcode matching, with its SKU near misses
type unmatchedVariant struct {
	variant    productsync.StorefrontVariant
	nearMisses []productsync.SupplierProduct
}

// syncRun is the state of one RunSync call
type syncRun struct {
	service   *SyncService
	source    productsync.StockDataSource
	processor SourceProcessor
	options   productsync.SyncOptions
	dry       bool
	abort     productsync.AbortSignal
	gid       int64

	matcher  *Matcher
	resolver *InventoryResolver
	updater  *VariantUpdater

	batch     []MatchedPair
	unmatched []unmatchedVariant
	result    *productsync.RunResult
}

// aborted polls the abort signal and marks the result once it fires
func (r *syncRun) aborted(ctx context.Context) bool {
	if r.result.Aborted {
		return true
	}
	if r.abort != nil && r.abort.Aborted() {
		r.result.Aborted = true
		logger.L(ctx).Warn("The process has been aborted")
		return true
	}
	return false
}

func (r *syncRun) execute(ctx context.Context) error {
	s := r.service
	log := logger.L(ctx)

	if r.aborted(ctx) {
		return nil
	}

	handle, err := r.processor.LoadCatalog(ctx, r.source)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			log.Warn("failed to release supplier catalog", zap.Error(cerr))
		}
	}()

	if r.aborted(ctx) {
		return nil
	}

	log.Info(fmt.Sprintf("Starting %s products sync...", r.source.Kind.DisplayName()))

	if !r.dry {
		gid, err := s.deps.Ledger.NextGroupID(ctx)
		if err != nil {
			return fmt.Errorf("allocate update log group: %w", err)
		}
		r.gid = gid
		r.result.GID = &gid
		if s.config.LogRetentionDays > 0 {
			cutoff := s.now().AddDate(0, 0, -s.config.LogRetentionDays)
			if _, err := s.deps.Ledger.PruneOlderThan(ctx, cutoff); err != nil {
				return fmt.Errorf("prune update log: %w", err)
			}
		}
	}

	defaultLocation := s.config.DefaultLocationName
	if override := r.options.LocationOverride(); override != "" {
		defaultLocation = override
	}
	r.matcher = NewMatcher(handle.Lookup, MatcherConfig{
		SKUPolicy:         s.config.SKUPolicy,
		NearMissSKUPolicy: s.config.NearMissSKUPolicy,
		DefaultLocation:   defaultLocation,
	})
	r.resolver = NewInventoryResolver(s.deps.Storefront,
		NewLocationDirectory(s.deps.Storefront, s.config.DefaultLocationName, s.config.MissingLocationPolicy))
	r.updater = NewVariantUpdater(s.deps.Storefront, s.config.WriteRetry)

	it := s.deps.Storefront.Variants(ctx)
	for !r.result.Aborted && it.Next(ctx) {
		if err := r.processVariant(ctx, it.Variant()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil && !r.result.Aborted {
		r.result.Incomplete = true
		log.Error(fmt.Sprintf("Unable to fetch variants from the Shopify store - %s", err))
	}

	if err := r.flush(ctx); err != nil {
		return err
	}

	if err := r.processUnmatched(ctx); err != nil {
		return err
	}

	if !r.dry && !r.result.Aborted {
		s.deps.Metrics.GroupRecorded(r.gid)
	}
	st := r.result.Stats
	log.Info(fmt.Sprintf("%s products sync done! variants=%d matched=%d unmatched=%d price_updates=%d quantity_updates=%d",
		r.source.Kind.DisplayName(), st.Variants, st.Matched, st.Unmatched, st.PriceUpdates, st.QuantityUpdates))
	return nil
}

func (r *syncRun) processVariant(ctx context.Context, variant productsync.StorefrontVariant) error {
	s := r.service
	log := logger.L(ctx)
	stats := &r.result.Stats

	stats.Variants++
	s.deps.Metrics.VariantProcessed(r.source.Name)
	log.Debug(fmt.Sprintf("%d - Processing variant_id=%d, barcode=%s, price=%s, qty=%d",
		stats.Variants, variant.ID, variant.Barcode, variant.Price.StringFixed(2), variant.InventoryQuantity))

	match, err := r.matcher.FindByBarcodeAndSKU(ctx, variant)
	if err != nil {
		if errors.Is(err, productsync.ErrInvalidBarcode) {
			stats.InvalidBarcodes++
			log.Warn(fmt.Sprintf("The shopify barcode is invalid: %s", variant.Barcode))
			return nil
		}
		return err
	}

	if match != nil {
		product := match.Product
		if override := r.options.LocationOverride(); override != "" {
			product = product.WithLocation(override)
		}
		r.batch = append(r.batch, MatchedPair{Variant: variant, Product: product, SKUMismatch: match.SKUMismatch})
		stats.Matched++
		if match.SKUMismatch {
			stats.SKUMismatches++
			s.deps.Metrics.Matched(r.source.Name, MatchKindBarcodeSKUMismatch)
		} else {
			s.deps.Metrics.Matched(r.source.Name, MatchKindBarcode)
		}
		if len(r.batch) >= s.config.BatchSize {
			return r.flush(ctx)
		}
		return nil
	}

	nearMisses, err := r.matcher.FindBySKU(ctx, variant)
	if err != nil {
		return err
	}
	r.unmatched = append(r.unmatched, unmatchedVariant{variant: variant, nearMisses: nearMisses})
	stats.Unmatched++
	if len(nearMisses) > 0 {
		stats.NearMisses++
		s.deps.Metrics.Matched(r.source.Name, MatchKindNearMiss)
		log.Warn(fmt.Sprintf("Products matched by SKU, but not matched by BARCODE are found in the supplier's data: "+
			"product_id=%d; variant_id=%d; sku=%s; barcode=%s. Found matches: %s",
			variant.ProductID, variant.ID, variant.SKU, variant.Barcode, productsync.JoinLabels(nearMisses)))
	} else {
		s.deps.Metrics.Matched(r.source.Name, MatchKindNone)
		log.Warn(fmt.Sprintf("The matched product was not found in the supplier's data: "+
			"product_id=%d; variant_id=%d; sku=%s; barcode=%s",
			variant.ProductID, variant.ID, variant.SKU, variant.Barcode))
	}
	return nil
}

// flush resolves inventory for the accumulated batch and applies every decision
func (r *syncRun) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	batch := r.batch
	r.batch = nil

	if r.aborted(ctx) {
		return nil
	}

	s := r.service
	log := logger.L(ctx)
	stats := &r.result.Stats

	ctx, span := telemetry.StartBatch(ctx, len(batch))
	defer span.End()

	snapshot, err := r.resolver.Resolve(ctx, batch)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn(fmt.Sprintf("Unable to get inventory levels from the Shopify store, quantities are not updated - %s", err))
	}

	for _, pair := range batch {
		if r.aborted(ctx) {
			return nil
		}

		decision := Decide(pair, snapshot, r.options)
		outcome := r.updater.Apply(ctx, pair, decision, r.dry)

		if outcome.PriceUpdated {
			stats.PriceUpdates++
		}
		if outcome.QuantityUpdated {
			stats.QuantityUpdates++
		}
		if outcome.PriceFailed {
			stats.PriceFailures++
			s.deps.Metrics.UpdateFailed(r.source.Name, FieldPrice)
		}
		if outcome.QuantityFailed {
			stats.QuantityFailures++
			s.deps.Metrics.UpdateFailed(r.source.Name, FieldQuantity)
		}
		if !outcome.Updated {
			if decision.IsEmpty() {
				stats.UpToDate++
			}
			continue
		}
		if r.dry {
			continue
		}

		if outcome.PriceUpdated {
			s.deps.Metrics.UpdateApplied(r.source.Name, FieldPrice)
		}
		if outcome.QuantityUpdated {
			s.deps.Metrics.UpdateApplied(r.source.Name, FieldQuantity)
		}
		entry := productsync.NewUpdateLogEntry(r.gid, r.source.Name, pair.Variant).WithChanges(outcome.Changes)
		if err := s.deps.Ledger.Record(ctx, []productsync.UpdateLogEntry{entry}); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("record update log: %w", err)
		}
		log.Info(entry.Summary())
	}
	return nil
}

// processUnmatched writes the unmatched ledger rows and replaces the review snapshot.
// Nothing is written for dry, aborted or incomplete runs.
func (r *syncRun) processUnmatched(ctx context.Context) error {
	if r.dry || r.result.Incomplete || r.aborted(ctx) {
		return nil
	}
	s := r.service

	entries := make([]productsync.UpdateLogEntry, 0, len(r.unmatched))
	reviews := make([]productsync.UnmatchedProductForReview, 0, len(r.unmatched))
	for _, u := range r.unmatched {
		changes := productsync.ChangeSet{}.AsUnmatched(productsync.JoinLabels(u.nearMisses))
		entries = append(entries, productsync.NewUpdateLogEntry(r.gid, r.source.Name, u.variant).WithChanges(changes))
		reviews = append(reviews, productsync.NewUnmatchedProductForReview(u.variant, u.nearMisses))
	}

	if len(entries) > 0 {
		if err := s.deps.Ledger.Record(ctx, entries); err != nil {
			return fmt.Errorf("record unmatched variants: %w", err)
		}
	}

	titles := r.productTitles(ctx, reviews)
	for i := range reviews {
		reviews[i].ProductTitle = titles[reviews[i].ProductID]
	}

	if err := s.deps.Registry.ReplaceAll(ctx, reviews); err != nil {
		return fmt.Errorf("replace unmatched products for review: %w", err)
	}
	logger.L(ctx).Info(fmt.Sprintf("%d unmatched variants stored for review", len(reviews)))
	return nil
}

// productTitles fetches product titles in chunks of DefaultBatchSize ids.
// Chunks run with bounded concurrency; a failed chunk only loses its titles.
func (r *syncRun) productTitles(ctx context.Context, reviews []productsync.UnmatchedProductForReview) map[int64]string {
	ids := make([]int64, 0, len(reviews))
	seen := make(map[int64]struct{}, len(reviews))
	for _, rv := range reviews {
		if _, ok := seen[rv.ProductID]; ok {
			continue
		}
		seen[rv.ProductID] = struct{}{}
		ids = append(ids, rv.ProductID)
	}
	return fetchTitles(ctx, r.service.deps.Storefront, ids, r.service.config.TitleFetchConcurrency)
}

func fetchTitles(ctx context.Context, client productsync.StorefrontClient, ids []int64, concurrency int) map[int64]string {
	chunks := slices.Collect(slices.Chunk(ids, DefaultBatchSize))
	results := make([]map[int64]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, chunk := range chunks {
		g.Go(func() error {
			titles, err := client.ProductTitles(gctx, chunk)
			if err != nil {
				logger.L(ctx).Warn(fmt.Sprintf("Unable to get product titles from the Shopify store - %s", err))
				return nil
			}
			results[i] = titles
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int64]string, len(ids))
	for _, m := range results {
		for id, title := range m {
			out[id] = title
		}
	}
	return out
}
