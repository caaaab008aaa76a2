package scheduler

import "errors"

// Submission and lookup failures. The admin API maps these to HTTP statuses.
var (
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	ErrJobQueueFull        = errors.New("scheduler: job queue full")
	ErrJobNotFound         = errors.New("scheduler: job not found")
	ErrJobFinished         = errors.New("scheduler: job already finished")
	ErrJobTimeout          = errors.New("scheduler: sync job timed out")
	ErrInvalidConfig       = errors.New("scheduler: invalid configuration")
)
