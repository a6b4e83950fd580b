package gc

import (
	"context"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/work"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const TASK_KEY = "gc.reconcile"

// BlobLister is the part of the blob store the collector needs.
type BlobLister interface {
	ListKeys() ([]string, error)
	Delete(ref string) error
}

// Result describes one reconcile pass.
type Result struct {
	Scanned int
	Kept    []string
	Deleted []string
	Failed  map[string]error
}

// Collector deletes blobs no live record references.
type Collector struct {
	blobs BlobLister
	logg  *zap.SugaredLogger
}

func New(blobs BlobLister, logg *zap.SugaredLogger) *Collector {
	return &Collector{blobs: blobs, logg: logger.OrNop(logg)}
}

// Reconcile deletes every blob key not in liveRefs. liveRefs must be the
// reference set after the triggering mutation has been persisted.
// A failed delete is recorded in the result and does not stop the pass.
func (c *Collector) Reconcile(liveRefs map[string]bool) (*Result, error) {
	keys, err := c.blobs.ListKeys()
	if err != nil {
		return nil, errors.Wrap(err, "gc.Reconcile")
	}

	result := &Result{Scanned: len(keys), Failed: map[string]error{}}
	for _, key := range keys {
		if liveRefs[key] {
			result.Kept = append(result.Kept, key)
			continue
		}

		if err := c.blobs.Delete(key); err != nil {
			c.logError(key, err)
			result.Failed[key] = err
			continue
		}
		result.Deleted = append(result.Deleted, key)
	}

	if len(result.Deleted) > 0 {
		c.logg.Infof("%sremoved %v orphaned blob(s) of %v", colors.Prefix(colors.Blue, "gc"), len(result.Deleted), result.Scanned)
	}

	return result, nil
}

// ReconcileAsync runs Reconcile on the worker pool. liveRefs is copied so the
// caller may keep mutating its own set.
func (c *Collector) ReconcileAsync(pool *work.WorkerPool, liveRefs map[string]bool) *work.Task {
	snapshot := make(map[string]bool, len(liveRefs))
	for ref := range liveRefs {
		snapshot[ref] = true
	}

	return pool.Submit(TASK_KEY, func(ctx context.Context) (interface{}, error) {
		return c.Reconcile(snapshot)
	})
}

func (c *Collector) logError(key string, err error) {
	c.logg.Errorf("%sunable to delete %v: %v", colors.Prefix(colors.Red, "gc"), key, err)
}
