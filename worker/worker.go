package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Worker long running worker
type Worker interface {
	Run(ctx context.Context) error
}

// TickWorker tick loop with backoff: ticks immediately, then at Delay
// while work succeeds and ErrDelay after a failed or empty round.
type TickWorker struct {
	Delay    time.Duration
	ErrDelay time.Duration
}

// StartTick run onTick until ctx is done
func (w *TickWorker) StartTick(ctx context.Context, onTick func(ctx context.Context) error) error {
	dur := time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := onTick(ctx); err == nil {
				dur = w.delay()
			} else {
				dur = w.errDelay()
			}
		}
	}
}

func (w *TickWorker) delay() time.Duration {
	if w.Delay > 0 {
		return w.Delay
	}
	return 100 * time.Millisecond
}

func (w *TickWorker) errDelay() time.Duration {
	if w.ErrDelay > 0 {
		return w.ErrDelay
	}
	return 500 * time.Millisecond
}

// BaseJob cron scheduled job
type BaseJob struct {
	Cron      *cron.Cron
	IsRunning bool
	OnWork    func() error
}

// Start start the schedule
func (job *BaseJob) Start() error {
	job.Cron.Start()
	return nil
}

// Stop stop the schedule
func (job *BaseJob) Stop() error {
	job.Cron.Stop()
	return nil
}

// Run implements cron.Job, skipping overlapped fires
func (job *BaseJob) Run() {
	if job.IsRunning {
		return
	}

	job.IsRunning = true
	job.OnWork()
	job.IsRunning = false
}
