package work

import (
	"context"
	"fmt"
	"time"

	"github.com/Daskott/favdial/colors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrTaskPanicked = errors.New("task panicked")

type worker struct {
	id       string
	queue    <-chan *Task
	onDone   func(*Task)
	stopChan chan struct{}
	logg     *zap.SugaredLogger
}

func newWorker(queue <-chan *Task, onDone func(*Task), logg *zap.SugaredLogger) *worker {
	return &worker{
		id:       makeIdentifier(),
		queue:    queue,
		onDone:   onDone,
		stopChan: make(chan struct{}),
		logg:     logg,
	}
}

// start starts the worker loop that pulls tasks from the queue & process them
func (w *worker) start() {
	go w.loop()
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop() {
	w.logInfof("started")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("stopped")
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

func (w *worker) process(task *Task) {
	defer w.onDone(task)

	// A task cancelled while still queued is discarded without running
	if task.Cancelled() {
		w.logInfof("discarding cancelled task for key=%v", task.Key)
		task.finish(nil, context.Canceled)
		return
	}

	start := time.Now()
	result, err := w.run(task)
	if err != nil {
		w.logError(fmt.Sprintf("task for key=%v failed: %v", task.Key, err))
	}

	w.logInfof("task for key=%v completed in %v", task.Key, time.Since(start))
	task.finish(result, err)
}

func (w *worker) run(task *Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrTaskPanicked, "%v", r)
		}
	}()

	return task.fn(task.ctx)
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
	w.logg.Debugf(prefix+template, args...)
}

func (w *worker) logError(args ...interface{}) {
	prefix := colors.Red(fmt.Sprintf("[worker %v] ", w.id))
	w.logg.Error(append([]interface{}{prefix}, args...)...)
}

func makeIdentifier() string {
	return uuid.NewString()[:8]
}
