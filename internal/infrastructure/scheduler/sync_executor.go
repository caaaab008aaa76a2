package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// SyncExecutor runs a job through the sync service while holding the
// per-source singleton lock.
type SyncExecutor struct {
	runner  productsync.SyncRunner
	lock    productsync.SyncLock
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewSyncExecutor creates the executor used by the scheduler
func NewSyncExecutor(runner productsync.SyncRunner, lock productsync.SyncLock, lockTTL time.Duration, logger *zap.Logger) *SyncExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncExecutor{
		runner:  runner,
		lock:    lock,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Execute acquires the lock of the job's source and runs the sync.
// A held lock fails the job with productsync.ErrSyncAlreadyRunning
// before the runner is called.
func (e *SyncExecutor) Execute(ctx context.Context, job *ProductSyncJob) (*productsync.RunResult, error) {
	release, err := e.lock.Acquire(ctx, job.SourceID, e.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		// the run context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			e.logger.Warn("Failed to release sync lock",
				zap.Int64("source_id", job.SourceID),
				zap.Error(err),
			)
		}
	}()

	abort := job.AbortSignal()
	return e.runner.RunSync(ctx, productsync.RunRequest{
		SourceID: job.SourceID,
		Dry:      job.Dry,
		Options:  job.Options,
		Sink:     job.Sink(),
		Abort: productsync.AbortFunc(func() bool {
			return abort.Aborted() || ctx.Err() != nil
		}),
	})
}

var _ JobExecutor = (*SyncExecutor)(nil)
