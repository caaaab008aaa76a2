package scheduler

import (
	"context"
	"sync"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// MemoryLogStore keeps job logs in process memory.
// Used when Redis is not configured.
type MemoryLogStore struct {
	mu    sync.Mutex
	sinks map[string]*logger.MemorySink
}

// NewMemoryLogStore creates an empty store
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{sinks: make(map[string]*logger.MemorySink)}
}

func (s *MemoryLogStore) sink(jobID string) *logger.MemorySink {
	s.mu.Lock()
	defer s.mu.Unlock()
	sink, ok := s.sinks[jobID]
	if !ok {
		sink = logger.NewMemorySink()
		s.sinks[jobID] = sink
	}
	return sink
}

// Sink returns the buffer of a job, creating it on first use
func (s *MemoryLogStore) Sink(jobID string) productsync.LogSink {
	return s.sink(jobID)
}

// Lines returns the lines of a job starting at index from
func (s *MemoryLogStore) Lines(_ context.Context, jobID string, from int) ([]string, error) {
	s.mu.Lock()
	sink, ok := s.sinks[jobID]
	s.mu.Unlock()
	if !ok {
		return []string{}, nil
	}
	return sink.Lines(from), nil
}

// Delete forgets the lines of a job
func (s *MemoryLogStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	delete(s.sinks, jobID)
	s.mu.Unlock()
	return nil
}

var _ JobLogStore = (*MemoryLogStore)(nil)
