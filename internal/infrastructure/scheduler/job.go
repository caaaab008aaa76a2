package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// JobStatus represents the status of a sync job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSuccess   JobStatus = "SUCCESS"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// IsFinal reports whether no further transition can happen
func (s JobStatus) IsFinal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed || s == JobStatusCancelled
}

// JobTrigger records what submitted a job
type JobTrigger string

const (
	JobTriggerManual JobTrigger = "MANUAL"
	JobTriggerDaily  JobTrigger = "DAILY"
)

// ProductSyncJob is one queued sync of one stock data source.
// The exported fields are fixed at creation; the rest is guarded by mu.
type ProductSyncJob struct {
	ID         uuid.UUID
	SourceID   int64
	Dry        bool
	Options    *productsync.SyncOptions
	Trigger    JobTrigger
	MaxRetries int

	mu          sync.RWMutex
	status      JobStatus
	err         string
	submittedAt time.Time
	startedAt   *time.Time
	completedAt *time.Time
	retryCount  int
	result      *productsync.RunResult

	abort    productsync.AbortFlag
	sink     productsync.LogSink
	done     chan struct{}
	doneOnce sync.Once
}

// JobSnapshot is a point-in-time copy of a job
type JobSnapshot struct {
	ID          uuid.UUID                `json:"id"`
	SourceID    int64                    `json:"source_id"`
	Dry         bool                     `json:"dry"`
	Options     *productsync.SyncOptions `json:"options,omitempty"`
	Trigger     JobTrigger               `json:"trigger"`
	Status      JobStatus                `json:"status"`
	Error       string                   `json:"error,omitempty"`
	SubmittedAt time.Time                `json:"submitted_at"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	RetryCount  int                      `json:"retry_count"`
	Result      *productsync.RunResult   `json:"result,omitempty"`
}

// NewProductSyncJob creates a pending job
func NewProductSyncJob(sourceID int64, dry bool, options *productsync.SyncOptions, trigger JobTrigger, maxRetries int) *ProductSyncJob {
	if trigger == "" {
		trigger = JobTriggerManual
	}
	return &ProductSyncJob{
		ID:          uuid.New(),
		SourceID:    sourceID,
		Dry:         dry,
		Options:     options,
		Trigger:     trigger,
		MaxRetries:  maxRetries,
		status:      JobStatusPending,
		submittedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Status returns the current status
func (j *ProductSyncJob) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Done is closed once the job reaches a final status and is in the history
func (j *ProductSyncJob) Done() <-chan struct{} {
	return j.done
}

func (j *ProductSyncJob) signalDone() {
	j.doneOnce.Do(func() { close(j.done) })
}

// AbortSignal is handed to the run as its cooperative cancellation point
func (j *ProductSyncJob) AbortSignal() productsync.AbortSignal {
	return &j.abort
}

// Sink returns the log sink the run writes to
func (j *ProductSyncJob) Sink() productsync.LogSink {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.sink
}

// Snapshot copies the job state
func (j *ProductSyncJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobSnapshot{
		ID:          j.ID,
		SourceID:    j.SourceID,
		Dry:         j.Dry,
		Options:     j.Options,
		Trigger:     j.Trigger,
		Status:      j.status,
		Error:       j.err,
		SubmittedAt: j.submittedAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		RetryCount:  j.retryCount,
		Result:      j.result,
	}
}

func (j *ProductSyncJob) setSink(sink productsync.LogSink) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sink = sink
}

func (j *ProductSyncJob) abortRequested() bool {
	return j.abort.Aborted()
}

// start marks the job running; false means it is no longer pending
func (j *ProductSyncJob) start(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != JobStatusPending {
		return false
	}
	j.status = JobStatusRunning
	j.startedAt = &now
	j.err = ""
	return true
}

// finish moves the job to a final status once
func (j *ProductSyncJob) finish(status JobStatus, result *productsync.RunResult, err error, now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.IsFinal() {
		return false
	}
	j.status = status
	j.completedAt = &now
	if result != nil {
		j.result = result
	}
	if err != nil {
		j.err = err.Error()
	}
	return true
}

// scheduleRetry puts a failed run back to pending while attempts remain
func (j *ProductSyncJob) scheduleRetry(result *productsync.RunResult, err error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.retryCount >= j.MaxRetries {
		return false
	}
	j.retryCount++
	j.status = JobStatusPending
	j.result = result
	j.err = err.Error()
	return true
}

// requestCancel finishes a pending job right away and flags a running one.
// It reports whether the job was finished by this call.
func (j *ProductSyncJob) requestCancel(now time.Time) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.status {
	case JobStatusPending:
		j.abort.Abort()
		j.status = JobStatusCancelled
		j.completedAt = &now
		return true, nil
	case JobStatusRunning:
		j.abort.Abort()
		return false, nil
	default:
		return false, ErrJobFinished
	}
}
