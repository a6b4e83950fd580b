package work

import (
	"context"
	"sync"
	"sync/atomic"
)

// TaskFunc is a unit of work. It should return promptly once ctx is done.
type TaskFunc func(ctx context.Context) (interface{}, error)

// Task is a cancellable unit of work keyed by the record it belongs to.
// Cancelling a task marks its result as irrelevant; the underlying work may
// still run to completion.
type Task struct {
	Key string

	fn     TaskFunc
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	cancelled int32

	result interface{}
	err    error
}

func newTask(key string, fn TaskFunc) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		Key:    key,
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed once the task has finished, failed or been discarded.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is done and returns its outcome.
func (t *Task) Wait() (interface{}, error) {
	<-t.done
	return t.result, t.err
}

// Cancel marks the task as cancelled.
func (t *Task) Cancel() {
	atomic.StoreInt32(&t.cancelled, 1)
	t.cancel()
}

// Cancelled reports whether Cancel was called (directly or via CancelKey).
func (t *Task) Cancelled() bool {
	return atomic.LoadInt32(&t.cancelled) == 1
}

// Context is cancelled together with the task.
func (t *Task) Context() context.Context {
	return t.ctx
}

func (t *Task) finish(result interface{}, err error) {
	t.once.Do(func() {
		t.result = result
		t.err = err
		t.cancel()
		close(t.done)
	})
}

// Completed returns an already finished task, for callers that have nothing to dispatch.
func Completed(key string, result interface{}, err error) *Task {
	task := newTask(key, nil)
	task.finish(result, err)
	return task
}
