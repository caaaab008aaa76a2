package logger

import (
	"sync"

	"github.com/stocksync/backend/internal/domain/productsync"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sinkCore forwards entries to a productsync.LogSink as human readable lines.
// Structured fields stay with the base logger; the sink only sees the message.
type sinkCore struct {
	zapcore.LevelEnabler
	sink productsync.LogSink
}

// NewSinkCore returns a core writing every enabled entry to sink
func NewSinkCore(sink productsync.LogSink, level zapcore.LevelEnabler) zapcore.Core {
	return &sinkCore{LevelEnabler: level, sink: sink}
}

func (c *sinkCore) With([]zapcore.Field) zapcore.Core {
	return c
}

func (c *sinkCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *sinkCore) Write(e zapcore.Entry, _ []zapcore.Field) error {
	c.sink.Write(productsync.LogLine{
		Time:    e.Time,
		Level:   lineLevel(e.Level),
		Message: e.Message,
	})
	return nil
}

func (c *sinkCore) Sync() error {
	return nil
}

func lineLevel(l zapcore.Level) productsync.LogLevel {
	switch {
	case l >= zapcore.ErrorLevel:
		return productsync.LogLevelError
	case l == zapcore.WarnLevel:
		return productsync.LogLevelWarn
	case l == zapcore.DebugLevel:
		return productsync.LogLevelDebug
	}
	return productsync.LogLevelInfo
}

// TeeToSink returns a child of base that also writes info-and-above entries to sink
func TeeToSink(base *zap.Logger, sink productsync.LogSink) *zap.Logger {
	if sink == nil {
		return base
	}
	core := NewSinkCore(sink, zapcore.InfoLevel)
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	}))
}

// MemorySink buffers the lines of one run
type MemorySink struct {
	mu    sync.Mutex
	lines []productsync.LogLine
}

// NewMemorySink creates an empty buffer
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements productsync.LogSink
func (s *MemorySink) Write(line productsync.LogLine) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

// Lines returns the rendered lines starting at index from
func (s *MemorySink) Lines(from int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from < 0 {
		from = 0
	}
	if from >= len(s.lines) {
		return []string{}
	}
	out := make([]string, 0, len(s.lines)-from)
	for _, l := range s.lines[from:] {
		out = append(out, l.String())
	}
	return out
}

// Len returns the number of buffered lines
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

var _ productsync.LogSink = (*MemorySink)(nil)
