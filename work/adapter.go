package work

import (
	"context"
	"strings"
	"time"

	"github.com/Daskott/favdial/logger"
	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WorkerPoolAdapter pairs the worker pool with a cron scheduler so periodic
// jobs (backups, GC sweeps) run on the same workers as on-demand tasks.
type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
	logg          *zap.SugaredLogger
}

func NewWorkerAdapter(timeZoneArg string, concurrency int, logg *zap.SugaredLogger) *WorkerPoolAdapter {
	logg = logger.OrNop(logg)
	return &WorkerPoolAdapter{
		cronScheduler: NewCronScheduler(timeZoneArg, logg),
		pool:          NewWorkerPool(concurrency, logg),
		logg:          logg,
	}
}

// NewCronScheduler falls back to UTC when timeZoneArg cannot be loaded.
func NewCronScheduler(timeZoneArg string, logg *zap.SugaredLogger) *gocron.Scheduler {
	timeZone, err := time.LoadLocation(timeZoneArg)
	if err != nil {
		logger.OrNop(logg).Warnf("unknown time zone %q, using UTC", timeZoneArg)
		timeZone = time.UTC
	}

	scheduler := gocron.NewScheduler(timeZone)
	scheduler.TagsUnique()

	return scheduler
}

// Pool exposes the underlying worker pool for on-demand tasks.
func (adapter *WorkerPoolAdapter) Pool() *WorkerPool {
	return adapter.pool
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() {
	adapter.logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.Start()
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() {
	adapter.logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.Stop()
}

// Perform sends a new task to the queue, to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(name string, fn TaskFunc) *Task {
	adapter.logg.Debugf("Enqueuing task: %v", name)
	return adapter.pool.Submit(name, fn)
}

// PeriodicallyPerform enqueues fn periodically, based on the 'cronExpression' provided.
// A run is skipped while a previous run with the same name is still in flight.
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, name string, fn TaskFunc) error {
	var scheduler *gocron.Scheduler
	if len(strings.Fields(cronExpression)) == 6 {
		scheduler = adapter.cronScheduler.CronWithSeconds(cronExpression)
	} else {
		scheduler = adapter.cronScheduler.Cron(cronExpression)
	}

	_, err := scheduler.Tag(name).Do(func() {
		if adapter.pool.pendingFor(name) > 0 {
			adapter.logg.Warnf("Previous %v run still in progress, skipping", name)
			return
		}

		task := adapter.Perform(name, fn)
		go func() {
			if _, err := task.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				adapter.logg.Errorf("periodic task %v: %v", name, err)
			}
		}()
	})
	if err != nil {
		return errors.Wrapf(err, "unable to schedule %v with %q", name, cronExpression)
	}

	return nil
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(name string) {
	adapter.cronScheduler.RemoveByTag(name)
}
