package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// SourceProvider lists the sources the daily run covers
type SourceProvider interface {
	Active(ctx context.Context) ([]productsync.StockDataSource, error)
}

// Maintenance runs the retention housekeeping before the daily syncs
type Maintenance interface {
	Run(ctx context.Context) error
}

// DailyTrigger runs maintenance and then submits one live sync per active
// source at a fixed local wall-clock time each day.
type DailyTrigger struct {
	hour, minute int
	scheduler    *Scheduler
	sources      SourceProvider
	maintenance  Maintenance
	logger       *zap.Logger
	now          func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastDay string
}

// NewDailyTrigger fires at hour:minute local time. maintenance may be nil.
func NewDailyTrigger(hour, minute int, scheduler *Scheduler, sources SourceProvider, maintenance Maintenance, logger *zap.Logger) *DailyTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyTrigger{
		hour:        hour,
		minute:      minute,
		scheduler:   scheduler,
		sources:     sources,
		maintenance: maintenance,
		logger:      logger,
		now:         time.Now,
	}
}

// Start launches the timer loop; a second Start is a no-op
func (d *DailyTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		return nil
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.loop(ctx, d.done)

	d.logger.Info("Daily sync trigger started", zap.Time("next_run", d.nextRun(d.now())))
	return nil
}

// Stop ends the loop and waits for an in-flight fire to finish, bounded by ctx
func (d *DailyTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	done, cancel := d.done, d.cancel
	d.done, d.cancel = nil, nil
	d.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		d.logger.Info("Daily sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DailyTrigger) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		timer := time.NewTimer(time.Until(d.nextRun(d.now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.fire(ctx)
		}
	}
}

// nextRun is the first hour:minute strictly after now, in now's location.
// time.Date normalises the day after a DST gap.
func (d *DailyTrigger) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, d.hour, d.minute, 0, 0, now.Location())
	}
	return next
}

// fire runs the daily batch unless it already ran for today's date.
// A timer that wakes slightly early or twice still runs once per day.
func (d *DailyTrigger) fire(ctx context.Context) bool {
	day := d.now().Format(time.DateOnly)
	d.mu.Lock()
	if d.lastDay == day {
		d.mu.Unlock()
		return false
	}
	d.lastDay = day
	d.mu.Unlock()

	d.logger.Info("Triggering daily product sync", zap.String("day", day))
	if d.maintenance != nil {
		if err := d.maintenance.Run(ctx); err != nil {
			d.logger.Error("Daily maintenance failed", zap.Error(err))
		}
	}
	if _, err := d.SubmitActive(ctx); err != nil {
		d.logger.Error("Failed to list sources for the daily sync", zap.Error(err))
	}
	return true
}

// SubmitActive submits one live job per active source, in id order.
// A source whose submission fails is logged and skipped.
func (d *DailyTrigger) SubmitActive(ctx context.Context) ([]*ProductSyncJob, error) {
	sources, err := d.sources.Active(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]*ProductSyncJob, 0, len(sources))
	for _, source := range sources {
		job, err := d.scheduler.Submit(source.ID, false, nil, JobTriggerDaily)
		if err != nil {
			d.logger.Error("Failed to schedule daily sync",
				zap.Int64("source_id", source.ID),
				zap.String("source_name", source.Name),
				zap.Error(err),
			)
			continue
		}
		jobs = append(jobs, job)
	}
	d.logger.Info("Daily syncs scheduled", zap.Int("jobs", len(jobs)), zap.Int("sources", len(sources)))
	return jobs, nil
}
