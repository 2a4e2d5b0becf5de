package analysis

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// TaskFunc is one unit of work scheduled through the Parallel Orchestrator.
// A TaskFunc that returns an error contributes that error as its result
// marker; it never aborts sibling tasks.
type TaskFunc func(ctx context.Context) (any, error)

// TaskResult is a TaskFunc's outcome. ExecuteParallelTasks stores each one
// at its task's submission index, so results come back in submission order
// even though tasks complete out of order.
type TaskResult struct {
	Value any
	Err   error
}

// ParallelOrchestrator is the bounded-concurrency fan-out utility used by
// the Code Analyzer and by agents that need to run many independent units
// of work without exceeding a configured concurrency ceiling.
type ParallelOrchestrator struct {
	maxConcurrency int
	sem            *semaphore.Weighted
}

// NewParallelOrchestrator constructs an orchestrator with the given permit
// count. maxConcurrency <= 0 defaults to runtime.NumCPU(), matching the
// original source's multiprocessing.cpu_count() default.
func NewParallelOrchestrator(maxConcurrency int) *ParallelOrchestrator {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}
	return &ParallelOrchestrator{
		maxConcurrency: maxConcurrency,
		sem:            semaphore.NewWeighted(int64(maxConcurrency)),
	}
}

// MaxConcurrency returns the configured permit count.
func (o *ParallelOrchestrator) MaxConcurrency() int { return o.maxConcurrency }

// ExecuteParallelTasks schedules every task under the orchestrator's
// semaphore and returns their results in submission order. A task whose
// context is cancelled before it acquires a permit contributes the
// cancellation error as its result; every other task still runs.
func (o *ParallelOrchestrator) ExecuteParallelTasks(ctx context.Context, tasks []TaskFunc) []TaskResult {
	results := make([]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		i, task := i, task
		go func() {
			defer wg.Done()
			if err := o.sem.Acquire(ctx, 1); err != nil {
				results[i] = TaskResult{Err: err}
				return
			}
			defer o.sem.Release(1)
			value, err := task(ctx)
			results[i] = TaskResult{Value: value, Err: err}
		}()
	}

	wg.Wait()
	return results
}

// FileTask names one file plus the language-classification used for
// batching.
type FileTask struct {
	FileID   string
	Language string
}

// ParallelizeByFile maps generator over files and runs the results through
// ExecuteParallelTasks.
func (o *ParallelOrchestrator) ParallelizeByFile(ctx context.Context, files []FileTask, generator func(FileTask) TaskFunc) []TaskResult {
	tasks := make([]TaskFunc, len(files))
	for i, f := range files {
		tasks[i] = generator(f)
	}
	return o.ExecuteParallelTasks(ctx, tasks)
}

// GetOptimizedFileBatches groups files by language, then round-robins
// across language groups (largest group first) to build balanced batches.
// batchSize <= 0 triggers the automatic formula:
// max(1, len(files) / (2 * max_concurrency)), clamped to [5, len(files)].
func (o *ParallelOrchestrator) GetOptimizedFileBatches(files []FileTask, batchSize int) [][]FileTask {
	if len(files) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(files) / (2 * o.maxConcurrency)
		if batchSize < 1 {
			batchSize = 1
		}
		if batchSize < 5 {
			batchSize = 5
		}
		if batchSize > len(files) {
			batchSize = len(files)
		}
	}

	byLanguage := make(map[string][]FileTask)
	for _, f := range files {
		byLanguage[f.Language] = append(byLanguage[f.Language], f)
	}
	languages := make([]string, 0, len(byLanguage))
	for lang := range byLanguage {
		languages = append(languages, lang)
	}
	sort.Slice(languages, func(i, j int) bool {
		return len(byLanguage[languages[i]]) > len(byLanguage[languages[j]])
	})

	var batches [][]FileTask
	var current []FileTask
	for {
		progressed := false
		for _, lang := range languages {
			group := byLanguage[lang]
			if len(group) == 0 {
				continue
			}
			current = append(current, group[0])
			byLanguage[lang] = group[1:]
			progressed = true
			if len(current) >= batchSize {
				batches = append(batches, current)
				current = nil
			}
		}
		if !progressed {
			break
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
