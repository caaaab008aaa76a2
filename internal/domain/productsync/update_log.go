package productsync

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UpdateLogEntry is one immutable row of the update ledger
type UpdateLogEntry struct {
	ID        int64
	GID       int64
	Source    string
	Time      time.Time
	SKU       string
	Barcode   string
	ProductID int64
	VariantID int64
	Changes   ChangeSet
}

// NewUpdateLogEntry starts an entry for a variant with an empty change set
func NewUpdateLogEntry(gid int64, source string, variant StorefrontVariant) UpdateLogEntry {
	return UpdateLogEntry{
		GID:       gid,
		Source:    source,
		SKU:       variant.SKU,
		Barcode:   variant.Barcode,
		ProductID: variant.ProductID,
		VariantID: variant.ID,
	}
}

// WithChanges returns a copy of the entry carrying the given change set
func (e UpdateLogEntry) WithChanges(changes ChangeSet) UpdateLogEntry {
	e.Changes = changes
	return e
}

// Summary renders the human readable description of an applied update
func (e UpdateLogEntry) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The variant (sku=%s, product_id=%d, variant id=%d) has been updated - ", e.SKU, e.ProductID, e.VariantID)
	if p, ok := e.Changes.Price(); ok {
		fmt.Fprintf(&b, "price: %s->%s; ", p.Old.StringFixed(2), p.New.StringFixed(2))
	}
	if q, ok := e.Changes.Quantity(); ok {
		fmt.Fprintf(&b, "quantity: %s->%d (%s); ", formatOptionalInt(q.Old), q.New, q.Location)
	}
	return strings.TrimSpace(b.String())
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *v)
}

// ExportFilter selects which ledger rows an export contains
type ExportFilter string

const (
	ExportFilterMatched   ExportFilter = "matched"
	ExportFilterUnmatched ExportFilter = "unmatched"
	ExportFilterAll       ExportFilter = "all"
)

// ParseExportFilter parses an export filter name; empty means all
func ParseExportFilter(s string) (ExportFilter, error) {
	f := ExportFilter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return ExportFilterAll, nil
	}
	switch f {
	case ExportFilterMatched, ExportFilterUnmatched, ExportFilterAll:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExportFilter, s)
}

// Includes reports whether an entry passes the filter
func (f ExportFilter) Includes(e UpdateLogEntry) bool {
	switch f {
	case ExportFilterMatched:
		return !e.Changes.Unmatched()
	case ExportFilterUnmatched:
		return e.Changes.Unmatched()
	}
	return true
}

// UpdateLogRepository is the durable update ledger
type UpdateLogRepository interface {
	// NextGroupID returns max(gid)+1, or 1 for an empty ledger.
	// Not race-free; callers rely on one sync per source at a time.
	NextGroupID(ctx context.Context) (int64, error)
	// Record appends entries; the store stamps Time when it is zero
	Record(ctx context.Context, entries []UpdateLogEntry) error
	// PruneOlderThan deletes whole gid groups whose newest entry is older than cutoff
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// FindByGroup returns the entries of one group ordered by id
	FindByGroup(ctx context.Context, gid int64) ([]UpdateLogEntry, error)
	// LatestGroupID returns the highest gid, or 0 for an empty ledger
	LatestGroupID(ctx context.Context) (int64, error)
}
