package productsync

import (
	"context"
	"sync/atomic"
	"time"
)

// LogLevel is the severity of a run log line
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARNING"
	LogLevelError LogLevel = "ERROR"
)

// LogLine is one human readable line of a run log
type LogLine struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// String renders the line as "DD-MM-YYYY hh:mm:ss LEVEL:message"
func (l LogLine) String() string {
	return l.Time.Format("02-01-2006 03:04:05") + " " + string(l.Level) + ":" + l.Message
}

// LogSink receives the log lines of one run
type LogSink interface {
	Write(line LogLine)
}

// LogSinkFunc adapts a function to LogSink
type LogSinkFunc func(line LogLine)

// Write calls f(line)
func (f LogSinkFunc) Write(line LogLine) {
	f(line)
}

// MultiSink fans a line out to several sinks
type MultiSink []LogSink

// Write forwards the line to every non-nil sink
func (m MultiSink) Write(line LogLine) {
	for _, s := range m {
		if s != nil {
			s.Write(line)
		}
	}
}

// AbortSignal is polled at cooperative cancellation points
type AbortSignal interface {
	Aborted() bool
}

// AbortFunc adapts a function to AbortSignal
type AbortFunc func() bool

// Aborted calls f()
func (f AbortFunc) Aborted() bool {
	return f()
}

// AbortFlag is a settable AbortSignal safe for concurrent use
type AbortFlag struct {
	set atomic.Bool
}

// Abort raises the flag
func (f *AbortFlag) Abort() {
	f.set.Store(true)
}

// Aborted reports whether Abort was called
func (f *AbortFlag) Aborted() bool {
	return f.set.Load()
}

// RunRequest asks for one sync of one source
type RunRequest struct {
	SourceID int64
	Dry      bool
	// Options overrides the options stored on the source when set
	Options *SyncOptions
	Sink    LogSink
	Abort   AbortSignal
}

// RunStats counts what a run did
type RunStats struct {
	Variants         int
	Matched          int
	SKUMismatches    int
	Unmatched        int
	NearMisses       int
	InvalidBarcodes  int
	UpToDate         int
	PriceUpdates     int
	QuantityUpdates  int
	PriceFailures    int
	QuantityFailures int
}

// RunResult is returned by a run
type RunResult struct {
	// GID is the ledger group of a live run; nil for dry or aborted-before-start runs
	GID     *int64
	Logs    []string
	Aborted bool
	// Incomplete is set when the storefront iteration stopped on an error
	Incomplete bool
	Stats      RunStats
}

// SyncRunner runs one sync end to end
type SyncRunner interface {
	RunSync(ctx context.Context, req RunRequest) (*RunResult, error)
}

// SyncLock is the external per-source mutual exclusion used around runs
type SyncLock interface {
	// Acquire returns a release function, or ErrSyncAlreadyRunning when held
	Acquire(ctx context.Context, sourceID int64, ttl time.Duration) (func(context.Context) error, error)
}
