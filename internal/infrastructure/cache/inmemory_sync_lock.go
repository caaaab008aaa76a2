package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/productsync"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemorySyncLock implements productsync.SyncLock within one process.
// It is suitable for single-instance deployments and testing.
type InMemorySyncLock struct {
	mu    sync.Mutex
	locks map[int64]lockEntry
	now   func() time.Time
}

// NewInMemorySyncLock creates a new in-memory lock
func NewInMemorySyncLock() *InMemorySyncLock {
	return &InMemorySyncLock{
		locks: make(map[int64]lockEntry),
		now:   time.Now,
	}
}

// Acquire takes the lock of a source for ttl
func (l *InMemorySyncLock) Acquire(_ context.Context, sourceID int64, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, held := l.locks[sourceID]; held && now.Before(e.expiresAt) {
		return nil, fmt.Errorf("%w: source %d", productsync.ErrSyncAlreadyRunning, sourceID)
	}

	token := uuid.NewString()
	l.locks[sourceID] = lockEntry{token: token, expiresAt: now.Add(ttl)}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, held := l.locks[sourceID]; held && e.token == token {
			delete(l.locks, sourceID)
		}
		return nil
	}
	return release, nil
}

// IsHeld reports whether the lock of a source is currently taken
func (l *InMemorySyncLock) IsHeld(_ context.Context, sourceID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, held := l.locks[sourceID]
	return held && l.now().Before(e.expiresAt), nil
}

// Ensure InMemorySyncLock implements SyncLock
var _ productsync.SyncLock = (*InMemorySyncLock)(nil)
