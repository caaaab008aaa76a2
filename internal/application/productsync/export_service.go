package productsync

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// ErrUploadDisabled is returned when an upload is requested without an export store
var ErrUploadDisabled = errors.New("productsync: export upload is not configured")

// ExportTimeLayout is the MM-DD-YYYY HH:MM:SS layout of the time column
const ExportTimeLayout = "01-02-2006 15:04:05"

var exportColumns = []string{
	"source", "time", "product_id", "variant_id", "sku", "barcode",
	"price_old", "price_new", "quantity_old", "quantity_new", "location",
}

// ExportHeader returns the CSV header written for a filter
func ExportHeader(filter productsync.ExportFilter) []string {
	header := append([]string(nil), exportColumns...)
	if filter != productsync.ExportFilterMatched {
		header = append(header, "matched_by_sku")
	}
	return header
}

// ExportResult describes a finished export
type ExportResult struct {
	GID  int64
	Rows int
	// URL is the presigned download link when the export was uploaded
	URL string
}

// ExportService renders ledger groups as CSV
type ExportService struct {
	ledger productsync.UpdateLogRepository
	store  ExportStore
}

// NewExportService creates an ExportService; store may be nil when uploads are disabled
func NewExportService(ledger productsync.UpdateLogRepository, store ExportStore) *ExportService {
	return &ExportService{ledger: ledger, store: store}
}

// ResolveGroup returns gid, or the latest group when gid is 0
func (s *ExportService) ResolveGroup(ctx context.Context, gid int64) (int64, error) {
	if gid > 0 {
		return gid, nil
	}
	latest, err := s.ledger.LatestGroupID(ctx)
	if err != nil {
		return 0, err
	}
	if latest == 0 {
		return 0, productsync.ErrGroupNotFound
	}
	return latest, nil
}

// WriteCSV writes the entries of one group that pass the filter to w
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, gid int64, filter productsync.ExportFilter) (*ExportResult, error) {
	gid, err := s.ResolveGroup(ctx, gid)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.FindByGroup(ctx, gid)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: gid=%d", productsync.ErrGroupNotFound, gid)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader(filter)); err != nil {
		return nil, err
	}
	result := &ExportResult{GID: gid}
	for _, e := range entries {
		if !filter.Includes(e) {
			continue
		}
		if err := cw.Write(exportRecord(e, filter)); err != nil {
			return nil, err
		}
		result.Rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return result, nil
}

// Export renders one group and uploads it when upload is set
func (s *ExportService) Export(ctx context.Context, w io.Writer, gid int64, filter productsync.ExportFilter, upload bool) (*ExportResult, error) {
	if !upload {
		return s.WriteCSV(ctx, w, gid, filter)
	}
	if s.store == nil {
		return nil, ErrUploadDisabled
	}

	var buf bytes.Buffer
	result, err := s.WriteCSV(ctx, &buf, gid, filter)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("update-log-%d-%s.csv", result.GID, filter)
	url, err := s.store.Upload(ctx, name, buf.Bytes(), "text/csv")
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	result.URL = url
	logger.L(ctx).Info(fmt.Sprintf("Update log %d exported (%d rows)", result.GID, result.Rows))

	if w != nil {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func exportRecord(e productsync.UpdateLogEntry, filter productsync.ExportFilter) []string {
	var priceOld, priceNew, qtyOld, qtyNew, location string
	if p, ok := e.Changes.Price(); ok {
		priceOld = p.Old.StringFixed(2)
		priceNew = p.New.StringFixed(2)
	}
	if q, ok := e.Changes.Quantity(); ok {
		if q.Old != nil {
			qtyOld = strconv.Itoa(*q.Old)
		}
		qtyNew = strconv.Itoa(q.New)
		location = q.Location
	}

	record := []string{
		e.Source,
		e.Time.Format(ExportTimeLayout),
		strconv.FormatInt(e.ProductID, 10),
		strconv.FormatInt(e.VariantID, 10),
		e.SKU,
		e.Barcode,
		priceOld, priceNew, qtyOld, qtyNew, location,
	}
	if filter != productsync.ExportFilterMatched {
		record = append(record, e.Changes.MatchedBySKU())
	}
	return record
}
