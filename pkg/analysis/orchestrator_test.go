package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteParallelTasks_NeverExceedsMaxConcurrency(t *testing.T) {
	o := NewParallelOrchestrator(3)
	var current int32
	var maxSeen int32
	var mu sync.Mutex

	tasks := make([]TaskFunc, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (any, error) {
			n := atomic.AddInt32(&current, 1)
			mu.Lock()
			if n > maxSeen {
				maxSeen = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil, nil
		}
	}

	o.ExecuteParallelTasks(context.Background(), tasks)

	assert.LessOrEqual(t, maxSeen, int32(3))
}

func TestExecuteParallelTasks_PreservesSubmissionOrder(t *testing.T) {
	o := NewParallelOrchestrator(4)
	tasks := make([]TaskFunc, 10)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (any, error) { return i, nil }
	}

	results := o.ExecuteParallelTasks(context.Background(), tasks)

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Value)
	}
}

func TestExecuteParallelTasks_FailingTaskDoesNotStopOthers(t *testing.T) {
	o := NewParallelOrchestrator(2)
	tasks := []TaskFunc{
		func(ctx context.Context) (any, error) { return nil, assert.AnError },
		func(ctx context.Context) (any, error) { return "ok", nil },
	}

	results := o.ExecuteParallelTasks(context.Background(), tasks)

	assert.Error(t, results[0].Err)
	assert.Equal(t, "ok", results[1].Value)
}

func TestGetOptimizedFileBatches_AutoSizeClampedToFive(t *testing.T) {
	o := NewParallelOrchestrator(2)
	files := make([]FileTask, 6)
	for i := range files {
		files[i] = FileTask{FileID: string(rune('a' + i)), Language: "Go"}
	}

	batches := o.GetOptimizedFileBatches(files, 0)

	require.NotEmpty(t, batches)
	assert.Len(t, batches[0], 5)
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	assert.Equal(t, 6, total)
}

func TestGetOptimizedFileBatches_RoundRobinsAcrossLanguages(t *testing.T) {
	o := NewParallelOrchestrator(1)
	files := []FileTask{
		{FileID: "a1", Language: "Go"}, {FileID: "a2", Language: "Go"}, {FileID: "a3", Language: "Go"},
		{FileID: "b1", Language: "Python"},
	}

	batches := o.GetOptimizedFileBatches(files, 2)

	require.Len(t, batches, 2)
	assert.Equal(t, "Go", batches[0][0].Language)
	assert.Equal(t, "Python", batches[0][1].Language)
}
