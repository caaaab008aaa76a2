package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/auth"
	"github.com/stocksync/backend/internal/infrastructure/config"
	csvimport "github.com/stocksync/backend/internal/infrastructure/import"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/supplier"
)

// stdout receives command output; logs go to stderr so exports can be piped
var stdout io.Writer = os.Stdout

// =============================================================================
// run / run-all
// =============================================================================

func cmdRun(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	sourceID := fs.Int64("source", 0, "Stock data source id")
	dry := fs.Bool("dry", false, "Compute the changes without writing anything")
	noPrice := fs.Bool("no-price", false, "Leave prices untouched")
	noInventory := fs.Bool("no-inventory", false, "Leave inventory untouched")
	location := fs.String("location", "", "Force every supplier row onto this storefront location")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sourceID <= 0 {
		return errors.New("run: -source is required")
	}

	source, err := a.sourceService().Get(ctx, *sourceID)
	if err != nil {
		return err
	}
	if !source.Active {
		return fmt.Errorf("%w: %s", productsync.ErrSourceInactive, source.Name)
	}

	options := runOptions(source.Params.Options(), *noPrice, *noInventory, *location)

	svc, err := a.syncService(nil)
	if err != nil {
		return err
	}
	result, err := runLocked(ctx, a, svc, productsync.RunRequest{
		SourceID: source.ID,
		Dry:      *dry,
		Options:  options,
	})
	if err != nil {
		return err
	}
	printRunResult(stdout, *source, *dry, result)
	return nil
}

// runOptions returns nil when no flag overrides the stored source options
func runOptions(stored productsync.SyncOptions, noPrice, noInventory bool, location string) *productsync.SyncOptions {
	if !noPrice && !noInventory && location == "" {
		return nil
	}
	opts := stored
	if noPrice {
		opts.UpdatePrice = false
	}
	if noInventory {
		opts.UpdateInventory = false
	}
	if location != "" {
		opts.InventoryLocation = location
	}
	return &opts
}

func cmdRunAll(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("run-all", flag.ExitOnError)
	dry := fs.Bool("dry", false, "Compute the changes without writing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources, err := a.sourceService().Active(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		a.log.Info("No active stock data sources")
		return nil
	}

	svc, err := a.syncService(nil)
	if err != nil {
		return err
	}

	var failed int
	for _, source := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := runLocked(ctx, a, svc, productsync.RunRequest{SourceID: source.ID, Dry: *dry})
		if err != nil {
			failed++
			a.log.Error("Sync failed",
				zap.Int64("source_id", source.ID),
				zap.String("source", source.Name),
				zap.Error(err),
			)
			continue
		}
		printRunResult(stdout, source, *dry, result)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(sources))
	}
	return nil
}

// runLocked runs one sync under the same per-source lock the scheduler takes.
// Interrupting the process raises the cooperative abort instead of killing the run.
func runLocked(ctx context.Context, a *app, runner productsync.SyncRunner, req productsync.RunRequest) (*productsync.RunResult, error) {
	release, err := a.syncLock().Acquire(ctx, req.SourceID, a.cfg.Sync.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			a.log.Warn("Failed to release sync lock", zap.Int64("source_id", req.SourceID), zap.Error(err))
		}
	}()

	req.Sink = productsync.LogSinkFunc(func(line productsync.LogLine) {
		fmt.Fprintln(stdout, line.String())
	})
	req.Abort = productsync.AbortFunc(func() bool { return ctx.Err() != nil })

	// the run keeps its own context so an abort still flushes and records the ledger
	runCtx, _ := logger.WithSourceID(context.WithoutCancel(ctx), a.log, req.SourceID)
	return runner.RunSync(runCtx, req)
}

func printRunResult(w io.Writer, source productsync.StockDataSource, dry bool, r *productsync.RunResult) {
	s := r.Stats
	fmt.Fprintf(w, "\n%s (#%d)\n", source.Name, source.ID)
	fmt.Fprintf(w, "  variants:          %d\n", s.Variants)
	fmt.Fprintf(w, "  matched:           %d (%d sku mismatches)\n", s.Matched, s.SKUMismatches)
	fmt.Fprintf(w, "  unmatched:         %d (%d near misses, %d invalid barcodes)\n", s.Unmatched, s.NearMisses, s.InvalidBarcodes)
	fmt.Fprintf(w, "  up to date:        %d\n", s.UpToDate)
	fmt.Fprintf(w, "  price updates:     %d (%d failed)\n", s.PriceUpdates, s.PriceFailures)
	fmt.Fprintf(w, "  quantity updates:  %d (%d failed)\n", s.QuantityUpdates, s.QuantityFailures)
	switch {
	case r.Aborted:
		fmt.Fprintln(w, "  run aborted")
	case r.Incomplete:
		fmt.Fprintln(w, "  storefront iteration stopped early")
	}
	switch {
	case r.GID != nil:
		fmt.Fprintf(w, "  update log group:  %d\n", *r.GID)
	case dry:
		fmt.Fprintln(w, "  dry run, nothing written")
	}
}

// =============================================================================
// export
// =============================================================================

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	gid := fs.Int64("gid", 0, "Update log group (default: latest)")
	filterName := fs.String("filter", "all", "Rows to export: matched, unmatched or all")
	out := fs.String("out", "", "Output file (default: stdout, or none with -upload)")
	upload := fs.Bool("upload", false, "Upload the export and print a download link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *gid < 0 {
		return fmt.Errorf("export: invalid -gid %d", *gid)
	}
	filter, err := productsync.ParseExportFilter(*filterName)
	if err != nil {
		return err
	}

	svc, err := a.exportService()
	if err != nil {
		return err
	}

	var w io.Writer
	switch {
	case *out != "":
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	case !*upload:
		w = stdout
	}

	result, err := svc.Export(ctx, w, *gid, filter, *upload)
	if err != nil {
		return err
	}
	a.log.Info("Update log exported",
		zap.Int64("gid", result.GID),
		zap.Int("rows", result.Rows),
		zap.String("filter", string(filter)),
	)
	if result.URL != "" {
		fmt.Fprintln(stdout, result.URL)
	}
	return nil
}

// =============================================================================
// review
// =============================================================================

func cmdReview(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("review: expected list, hide or unhide")
	}
	svc, err := a.reviewService()
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("review list", flag.ExitOnError)
		hidden := fs.Bool("hidden", false, "Include hidden items")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		items, err := svc.List(ctx, *hidden)
		if err != nil {
			return err
		}
		printReviewItems(stdout, items)
		return nil

	case "hide", "unhide":
		if len(args) < 3 {
			return fmt.Errorf("review %s: usage: review %s <product_id> <variant_id>", args[0], args[0])
		}
		productID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id %q", args[1])
		}
		variantID, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid variant id %q", args[2])
		}
		if args[0] == "hide" {
			return svc.Hide(ctx, productID, variantID)
		}
		return svc.Unhide(ctx, productID, variantID)

	default:
		return fmt.Errorf("review: unknown subcommand %q", args[0])
	}
}

func printReviewItems(w io.Writer, items []productsync.UnmatchedProductForReview) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing to review")
		return
	}
	for _, item := range items {
		hidden := ""
		if item.Hidden {
			hidden = " [hidden]"
		}
		fmt.Fprintf(w, "%d/%d %s sku=%q barcode=%q%s\n",
			item.ProductID, item.VariantID, item.ProductTitle, item.SKU, item.Barcode, hidden)
		for _, m := range item.PossibleMatches {
			fmt.Fprintf(w, "    possible match: sku=%q barcode=%q price=%s quantity=%s\n",
				m.SKU, m.Barcode, formatPrice(m), formatQuantity(m.Quantity))
		}
	}
}

func formatPrice(p productsync.SupplierProduct) string {
	if !p.Price.Valid {
		return "-"
	}
	return p.Price.Decimal.StringFixed(2)
}

func formatQuantity(q *int) string {
	if q == nil {
		return "-"
	}
	return strconv.Itoa(*q)
}

// =============================================================================
// csv
// =============================================================================

func cmdCSV(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("csv: expected import, list or prune")
	}
	svc := a.csvFeedService()

	switch args[0] {
	case "import":
		fs := flag.NewFlagSet("csv import", flag.ExitOnError)
		file := fs.String("file", "", "CSV feed to import")
		name := fs.String("name", "", "Feed name (default: the file name)")
		encodingName := fs.String("encoding", "", "Source encoding (default: detect)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *file == "" {
			return errors.New("csv import: -file is required")
		}
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		feedName := *name
		if feedName == "" {
			feedName = filepath.Base(*file)
		}

		result, err := svc.Import(ctx, feedName, f, csvimport.DefaultColumnMapping(), *encodingName)
		if result != nil {
			for _, rowErr := range result.Errors {
				fmt.Fprintf(stdout, "row %d %s: %s\n", rowErr.Row, rowErr.Column, rowErr.Message)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Imported %d of %d rows into feed #%d (%s)\n",
			result.ImportedRows, result.TotalRows, result.Feed.ID, result.Feed.Name)
		return nil

	case "list":
		feeds, err := svc.List(ctx)
		if err != nil {
			return err
		}
		for _, feed := range feeds {
			fmt.Fprintf(stdout, "#%d %s %s (%d products)\n",
				feed.ID, feed.Name, feed.CreatedAt.Format(time.DateTime), feed.ProductCount)
		}
		return nil

	case "prune":
		fs := flag.NewFlagSet("csv prune", flag.ExitOnError)
		days := fs.Int("days", a.cfg.Sync.CustomCSVRetentionDays, "Delete feeds older than this many days")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		n, err := svc.Prune(ctx, *days)
		if err != nil {
			return err
		}
		a.log.Info("Custom CSV feeds pruned", zap.Int64("deleted", n), zap.Int("days", *days))
		return nil

	default:
		return fmt.Errorf("csv: unknown subcommand %q", args[0])
	}
}

// =============================================================================
// sources / prune-logs
// =============================================================================

func cmdSources(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("sources: expected sync or list")
	}
	svc := a.sourceService()

	switch args[0] {
	case "sync":
		fs := flag.NewFlagSet("sources sync", flag.ExitOnError)
		file := fs.String("file", a.cfg.App.SourcesFile, "Source declarations")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()

		synced, err := svc.Sync(logger.WithContext(ctx, a.log), f)
		if err != nil {
			return err
		}
		a.log.Info("Stock data sources synced", zap.Int("count", len(synced)), zap.String("file", *file))
		return nil

	case "list":
		sources, err := svc.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range sources {
			state := "active"
			if !s.Active {
				state = "inactive"
			}
			fmt.Fprintf(stdout, "#%d %s %s %s\n", s.ID, s.Name, s.Kind.DisplayName(), state)
		}
		return nil

	default:
		return fmt.Errorf("sources: unknown subcommand %q", args[0])
	}
}

func cmdPruneLogs(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("prune-logs", flag.ExitOnError)
	days := fs.Int("days", a.cfg.Sync.LogRetentionDays, "Delete update log groups older than this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := a.maintenanceService().PruneLogs(ctx, *days)
	if err != nil {
		return err
	}
	a.log.Info("Update log pruned", zap.Int64("deleted", n), zap.Int("days", *days))
	return nil
}

// =============================================================================
// Commands without a database
// =============================================================================

func cmdToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	operator := fs.String("operator", "", "Operator name recorded in the request logs")
	scopes := fs.String("scopes", "", "Comma separated scopes (default: all)")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *operator == "" {
		return errors.New("token: -operator is required")
	}
	parsed, err := auth.ParseScopes(*scopes)
	if err != nil {
		return err
	}
	token, expiresAt, err := auth.NewJWTService(cfg.HTTP).IssueToken(*operator, parsed, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func cmdLocations(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("locations", flag.ExitOnError)
	apiKey := fs.String("api-key", cfg.Fuse5.APIKey, "Fuse5 API key")
	apiURL := fs.String("api-url", cfg.Fuse5.APIURL, "Fuse5 service URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fc := supplier.NewFuse5Config(*apiKey, *apiURL)
	if cfg.Fuse5.Timeout > 0 {
		fc.Timeout = cfg.Fuse5.Timeout
	}
	client, err := supplier.NewFuse5Client(fc, supplier.WithFuse5Logger(log.Named("fuse5")))
	if err != nil {
		return err
	}
	locations, err := client.Locations(ctx)
	if err != nil {
		return err
	}
	for _, l := range locations {
		fmt.Fprintf(stdout, "%s\t%s\n", l.LocationID, l.LocationName)
	}
	return nil
}
