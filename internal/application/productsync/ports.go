package productsync

import (
	"context"
	"time"
)

// ExportStore uploads a rendered export and returns a download URL
type ExportStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Match kinds reported to MetricsRecorder
const (
	MatchKindBarcode            = "barcode"
	MatchKindBarcodeSKUMismatch = "barcode_sku_mismatch"
	MatchKindNearMiss           = "near_miss"
	MatchKindNone               = "none"
)

// Fields reported to MetricsRecorder for updates and failures
const (
	FieldPrice    = "price"
	FieldQuantity = "quantity"
)

// Run outcomes reported to MetricsRecorder
const (
	OutcomeSuccess = "success"
	OutcomeAborted = "aborted"
	OutcomeFailed  = "failed"
)

// MetricsRecorder receives counters of sync runs. Labels are plain strings
// so the recorder stays independent of the domain types.
type MetricsRecorder interface {
	RunFinished(source string, dry bool, outcome string, elapsed time.Duration)
	VariantProcessed(source string)
	Matched(source, kind string)
	UpdateApplied(source, field string)
	UpdateFailed(source, field string)
	GroupRecorded(gid int64)
}

// NopMetrics discards every observation
type NopMetrics struct{}

func (NopMetrics) RunFinished(string, bool, string, time.Duration) {}
func (NopMetrics) VariantProcessed(string) {}
func (NopMetrics) Matched(string, string) {}
func (NopMetrics) UpdateApplied(string, string) {}
func (NopMetrics) UpdateFailed(string, string) {}
func (NopMetrics) GroupRecorded(int64) {}

var _ MetricsRecorder = NopMetrics{}
