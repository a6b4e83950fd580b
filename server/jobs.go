package server

import (
	"context"

	"github.com/Daskott/favdial/work"
	"github.com/pkg/errors"
)

const (
	GC_SWEEP_JOB = "gc.sweep"
	BACKUP_JOB   = "gstorage.backup"
)

// registerJobs schedules the periodic GC sweep and, when enabled, the bucket backup.
func registerJobs(opts Options) error {
	if schedule := opts.Config.Store.GCSchedule; schedule != "" {
		err := opts.Adapter.PeriodicallyPerform(schedule, GC_SWEEP_JOB, sweepGarbage(opts))
		if err != nil {
			return err
		}
	}

	if opts.Backup != nil {
		err := opts.Adapter.PeriodicallyPerform(opts.Config.Google.Storage.BackupSchedule, BACKUP_JOB, backupFavorites(opts))
		if err != nil {
			return err
		}
	}

	return nil
}

// sweepGarbage collects blobs orphaned by sessions that ended before their
// reconcile pass ran.
func sweepGarbage(opts Options) work.TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		result, err := opts.Manager.CollectGarbage()
		if err != nil {
			return nil, errors.Wrap(err, GC_SWEEP_JOB)
		}
		return result, nil
	}
}

func backupFavorites(opts Options) work.TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		result, err := opts.Backup.Run(ctx)
		if err != nil {
			return nil, errors.Wrap(err, BACKUP_JOB)
		}
		return result, nil
	}
}
