package work

import (
	"sync"

	"github.com/Daskott/favdial/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DEFAULT_CONCURRENCY = 2
	MAX_QUEUED_TASKS    = 256
)

var (
	ErrQueueFull   = errors.New("work queue is full")
	ErrPoolStopped = errors.New("worker pool stopped")
)

// WorkerPool runs submitted tasks on a fixed number of workers and keeps
// track of in-flight tasks per key so they can be cancelled together.
type WorkerPool struct {
	queue   chan *Task
	workers []*worker
	logg    *zap.SugaredLogger

	mu       sync.Mutex
	started  bool
	inflight map[string]map[*Task]bool
}

func NewWorkerPool(concurrency int, logg *zap.SugaredLogger) *WorkerPool {
	if concurrency <= 0 {
		concurrency = DEFAULT_CONCURRENCY
	}

	wp := &WorkerPool{
		queue:    make(chan *Task, MAX_QUEUED_TASKS),
		logg:     logger.OrNop(logg),
		inflight: make(map[string]map[*Task]bool),
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(wp.queue, wp.untrack, wp.logg))
	}

	return wp
}

// Submit queues fn under key. Tasks submitted before Start wait in the queue.
func (wp *WorkerPool) Submit(key string, fn TaskFunc) *Task {
	task := newTask(key, fn)

	wp.mu.Lock()
	defer wp.mu.Unlock()

	select {
	case wp.queue <- task:
		if wp.inflight[key] == nil {
			wp.inflight[key] = make(map[*Task]bool)
		}
		wp.inflight[key][task] = true
	default:
		task.finish(nil, ErrQueueFull)
	}

	return task
}

// CancelKey cancels every in-flight task for key and returns how many were cancelled.
func (wp *WorkerPool) CancelKey(key string) int {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	for task := range wp.inflight[key] {
		task.Cancel()
	}
	return len(wp.inflight[key])
}

// Pending returns the number of tasks that have been submitted but not finished.
func (wp *WorkerPool) Pending() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	count := 0
	for _, tasks := range wp.inflight {
		count += len(tasks)
	}
	return count
}

// Start starts all workers in pool i.e the workers can start processing tasks
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, w := range wp.workers {
		w.start()
	}
}

// Stop stops all workers in pool. Tasks still queued are finished with ErrPoolStopped.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}
	wg.Wait()

	for {
		select {
		case task := <-wp.queue:
			task.finish(nil, ErrPoolStopped)
			wp.untrack(task)
		default:
			return
		}
	}
}

func (wp *WorkerPool) untrack(task *Task) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	delete(wp.inflight[task.Key], task)
	if len(wp.inflight[task.Key]) == 0 {
		delete(wp.inflight, task.Key)
	}
}

func (wp *WorkerPool) pendingFor(key string) int {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	return len(wp.inflight[key])
}
