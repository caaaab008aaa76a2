package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// JobExecutor runs one sync job
type JobExecutor interface {
	Execute(ctx context.Context, job *ProductSyncJob) (*productsync.RunResult, error)
}

// JobLogStore keeps the log lines of each job
type JobLogStore interface {
	Sink(jobID string) productsync.LogSink
	Lines(ctx context.Context, jobID string, from int) ([]string, error)
	Delete(ctx context.Context, jobID string) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	// RetryAttempts applies to live runs that failed for a transient reason
	RetryAttempts int
	RetryDelay    time.Duration
	MaxHistory    int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 1,
		QueueSize:         100,
		JobTimeout:        6 * time.Hour,
		RetryAttempts:     0,
		RetryDelay:        10 * time.Minute,
		MaxHistory:        100,
	}
}

// Validate validates the configuration
func (c *SchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("%w: max_concurrent_jobs must be positive", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job_timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts must not be negative", ErrInvalidConfig)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("%w: history size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs product sync jobs on a fixed worker pool and keeps
// the recent finished jobs for inspection.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logs     JobLogStore
	logger   *zap.Logger
	now      func() time.Time

	queue     chan *ProductSyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	jobsMu  sync.RWMutex
	jobs    map[uuid.UUID]*ProductSyncJob
	history []*ProductSyncJob
}

// NewScheduler creates a scheduler. A nil log store keeps logs in memory.
func NewScheduler(config SchedulerConfig, executor JobExecutor, logs JobLogStore, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = NewMemoryLogStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logs:     logs,
		logger:   logger,
		now:      time.Now,
		jobs:     make(map[uuid.UUID]*ProductSyncJob),
		history:  make([]*ProductSyncJob, 0, config.MaxHistory),
	}, nil
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.queue = make(chan *ProductSyncJob, s.config.QueueSize)
	queue := s.queue
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, queue, i)
	}

	s.logger.Info("Product sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop aborts running jobs, cancels queued ones and waits for the workers
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	queue := s.queue
	close(queue)
	s.mu.Unlock()

	s.abortRunning()
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		for job := range queue {
			s.cancelJob(job)
		}
		s.logger.Info("Product sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Product sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a sync of one source
func (s *Scheduler) Submit(sourceID int64, dry bool, options *productsync.SyncOptions, trigger JobTrigger) (*ProductSyncJob, error) {
	job := NewProductSyncJob(sourceID, dry, options, trigger, s.config.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// SubmitJob queues a prepared job
func (s *Scheduler) SubmitJob(job *ProductSyncJob) error {
	job.setSink(s.logs.Sink(job.ID.String()))

	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	if err := s.enqueue(job); err != nil {
		s.jobsMu.Lock()
		delete(s.jobs, job.ID)
		s.jobsMu.Unlock()
		return err
	}

	s.logger.Debug("Sync job submitted",
		zap.String("job_id", job.ID.String()),
		zap.Int64("source_id", job.SourceID),
		zap.Bool("dry", job.Dry),
		zap.String("trigger", string(job.Trigger)),
	)
	return nil
}

// Cancel cancels a queued job or raises the abort flag of a running one.
// A running job ends as CANCELLED at its next abort check.
func (s *Scheduler) Cancel(jobID uuid.UUID) error {
	job, ok := s.lookup(jobID)
	if !ok {
		return ErrJobNotFound
	}
	finished, err := job.requestCancel(s.now())
	if err != nil {
		return err
	}
	if finished {
		s.addToHistory(job)
		job.signalDone()
	}
	s.logger.Info("Sync job cancellation requested",
		zap.String("job_id", jobID.String()),
		zap.Bool("was_queued", finished),
	)
	return nil
}

// Job returns the state of a known job
func (s *Scheduler) Job(jobID uuid.UUID) (JobSnapshot, error) {
	job, ok := s.lookup(jobID)
	if !ok {
		return JobSnapshot{}, ErrJobNotFound
	}
	return job.Snapshot(), nil
}

// Logs returns the log lines of a job starting at index from
func (s *Scheduler) Logs(ctx context.Context, jobID uuid.UUID, from int) ([]string, error) {
	if _, ok := s.lookup(jobID); !ok {
		return nil, ErrJobNotFound
	}
	return s.logs.Lines(ctx, jobID.String(), from)
}

// Active returns the pending and running jobs
func (s *Scheduler) Active() []JobSnapshot {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	result := make([]JobSnapshot, 0)
	for _, job := range s.jobs {
		if snap := job.Snapshot(); !snap.Status.IsFinal() {
			result = append(result, snap)
		}
	}
	return result
}

// History returns recent finished jobs, newest first
func (s *Scheduler) History(limit int) []JobSnapshot {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]JobSnapshot, limit)
	for i := 0; i < limit; i++ {
		result[i] = s.history[i].Snapshot()
	}
	return result
}

func (s *Scheduler) lookup(jobID uuid.UUID) (*ProductSyncJob, bool) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

func (s *Scheduler) enqueue(job *ProductSyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	select {
	case s.queue <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, queue <-chan *ProductSyncJob, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-queue:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *Scheduler) processJob(ctx context.Context, job *ProductSyncJob, workerID int) {
	if !job.start(s.now()) {
		// cancelled while queued
		return
	}
	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.Int64("source_id", job.SourceID),
		zap.Bool("dry", job.Dry),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.executor.Execute(jobCtx, job)
	stopped := err != nil || (result != nil && result.Aborted)
	if stopped && errors.Is(jobCtx.Err(), context.DeadlineExceeded) && !job.abortRequested() {
		err = fmt.Errorf("%w after %s", ErrJobTimeout, s.config.JobTimeout)
	}

	switch {
	case job.abortRequested():
		s.completeJob(job, JobStatusCancelled, result, err)
	case err != nil:
		if !job.Dry && isRetryable(err) && job.scheduleRetry(result, err) {
			s.logger.Warn("Sync job failed, scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int64("source_id", job.SourceID),
				zap.Duration("retry_delay", s.config.RetryDelay),
				zap.Error(err),
			)
			s.retryLater(ctx, job)
			return
		}
		s.completeJob(job, JobStatusFailed, result, err)
	default:
		s.completeJob(job, JobStatusSuccess, result, nil)
	}
}

func (s *Scheduler) retryLater(ctx context.Context, job *ProductSyncJob) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.config.RetryDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			s.cancelJob(job)
		case <-timer.C:
			if err := s.enqueue(job); err != nil {
				s.completeJob(job, JobStatusFailed, nil, err)
			}
		}
	}()
}

func (s *Scheduler) completeJob(job *ProductSyncJob, status JobStatus, result *productsync.RunResult, err error) {
	if !job.finish(status, result, err, s.now()) {
		return
	}

	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.Int64("source_id", job.SourceID),
		zap.String("status", string(status)),
	}
	if result != nil {
		fields = append(fields,
			zap.Int("variants", result.Stats.Variants),
			zap.Int("matched", result.Stats.Matched),
			zap.Int("unmatched", result.Stats.Unmatched),
		)
	}
	if err != nil {
		s.logger.Error("Sync job failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("Sync job finished", fields...)
	}
	s.addToHistory(job)
	job.signalDone()
}

func (s *Scheduler) cancelJob(job *ProductSyncJob) {
	if finished, _ := job.requestCancel(s.now()); finished {
		s.addToHistory(job)
		job.signalDone()
	}
}

func (s *Scheduler) abortRunning() {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	for _, job := range s.jobs {
		if job.Status() == JobStatusRunning {
			job.abort.Abort()
		}
	}
}

// addToHistory records a finished job and forgets the oldest beyond MaxHistory
func (s *Scheduler) addToHistory(job *ProductSyncJob) {
	s.jobsMu.Lock()
	s.history = append([]*ProductSyncJob{job}, s.history...)
	var evicted []*ProductSyncJob
	if len(s.history) > s.config.MaxHistory {
		evicted = s.history[s.config.MaxHistory:]
		s.history = s.history[:s.config.MaxHistory:s.config.MaxHistory]
		for _, old := range evicted {
			delete(s.jobs, old.ID)
		}
	}
	s.jobsMu.Unlock()

	for _, old := range evicted {
		if err := s.logs.Delete(context.Background(), old.ID.String()); err != nil {
			s.logger.Warn("Failed to delete job log", zap.String("job_id", old.ID.String()), zap.Error(err))
		}
	}
}

// isRetryable is false for errors that another attempt cannot fix
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, productsync.ErrSyncAlreadyRunning),
		errors.Is(err, productsync.ErrSourceNotFound),
		errors.Is(err, productsync.ErrSourceInactive),
		errors.Is(err, productsync.ErrInvalidSourceKind),
		errors.Is(err, productsync.ErrInvalidSourceParams),
		errors.Is(err, productsync.ErrNoProcessor),
		errors.Is(err, ErrJobTimeout):
		return false
	}
	return true
}
