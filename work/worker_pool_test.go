package work

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, task *Task) {
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task %v did not finish in time", task.Key)
	}
}

func TestSubmitRunsTask(t *testing.T) {
	pool := NewWorkerPool(2, nil)
	pool.Start()
	defer pool.Stop()

	task := pool.Submit("record-1", func(ctx context.Context) (interface{}, error) {
		return "Hello", nil
	})
	waitFor(t, task)

	result, err := task.Wait()
	assert.NoError(t, err)
	assert.Equal(t, "Hello", result)
	assert.False(t, task.Cancelled())
}

func TestTasksQueuedBeforeStart(t *testing.T) {
	pool := NewWorkerPool(1, nil)

	var runs int32
	tasks := []*Task{}
	for i := 0; i < 5; i++ {
		tasks = append(tasks, pool.Submit("record-1", func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&runs, 1)
			return nil, nil
		}))
	}

	// Nothing runs until the pool is started
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))

	pool.Start()
	defer pool.Stop()
	for _, task := range tasks {
		waitFor(t, task)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&runs))
}

func TestCancelKeyDiscardsQueuedTasks(t *testing.T) {
	pool := NewWorkerPool(1, nil)

	var ran int32
	task := pool.Submit("record-2", func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&ran, 1)
		return "late", nil
	})
	other := pool.Submit("record-3", func(ctx context.Context) (interface{}, error) {
		return "kept", nil
	})

	assert.Equal(t, 1, pool.CancelKey("record-2"))
	assert.True(t, task.Cancelled())

	pool.Start()
	defer pool.Stop()
	waitFor(t, task)
	waitFor(t, other)

	_, err := task.Wait()
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))

	result, err := other.Wait()
	assert.NoError(t, err)
	assert.Equal(t, "kept", result)
}

func TestPanickingTaskIsReported(t *testing.T) {
	pool := NewWorkerPool(1, nil)
	pool.Start()
	defer pool.Stop()

	task := pool.Submit("record-4", func(ctx context.Context) (interface{}, error) {
		panic("boom")
	})
	waitFor(t, task)

	_, err := task.Wait()
	assert.True(t, errors.Is(err, ErrTaskPanicked))

	// The worker survives the panic
	next := pool.Submit("record-4", func(ctx context.Context) (interface{}, error) { return 1, nil })
	waitFor(t, next)
	result, err := next.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestStopFinishesQueuedTasks(t *testing.T) {
	pool := NewWorkerPool(1, nil)
	pool.Start()

	block := make(chan struct{})
	first := pool.Submit("slow", func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})
	time.Sleep(20 * time.Millisecond)
	queued := pool.Submit("queued", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	pool.Stop()

	waitFor(t, first)
	waitFor(t, queued)
	_, err := queued.Wait()
	if err != nil {
		assert.True(t, errors.Is(err, ErrPoolStopped))
	}
	assert.Equal(t, 0, pool.Pending())
}

func TestCompleted(t *testing.T) {
	task := Completed("record-5", nil, ErrQueueFull)
	waitFor(t, task)
	_, err := task.Wait()
	assert.Equal(t, ErrQueueFull, err)
}
