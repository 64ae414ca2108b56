// Package queue runs tasks with a bounded number in flight at once.
//
// A Queue is shared by every caller that submits to it; its concurrency limit
// applies across all of them. Results always come back in submission order,
// either all at once with [AddAll] or one at a time with [Stream]:
//
//	q := queue.New(queue.Options{Concurrency: 4})
//	for page, err := range queue.Stream(ctx, q, tasks) {
//		...
//	}
package queue

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Task is a unit of work submitted to a Queue.
type Task[T any] func(ctx context.Context) (T, error)

// Options configures a Queue.
type Options struct {
	// Concurrency is the maximum number of tasks running at once.
	// Zero or negative means no limit.
	Concurrency int
}

// Queue bounds how many tasks run concurrently.
type Queue struct {
	sem         *semaphore.Weighted
	concurrency int
	pending     atomic.Int64
}

// New returns a Queue configured by opts.
func New(opts Options) *Queue {
	q := &Queue{concurrency: opts.Concurrency}
	if opts.Concurrency > 0 {
		q.sem = semaphore.NewWeighted(int64(opts.Concurrency))
	}
	return q
}

// Concurrency returns the configured limit, or 0 if there is none.
func (q *Queue) Concurrency() int {
	if q.concurrency < 0 {
		return 0
	}
	return q.concurrency
}

// Pending returns the number of tasks submitted and not yet finished,
// including those waiting for a slot.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

func (q *Queue) acquire(ctx context.Context) error {
	if q.sem == nil {
		return ctx.Err()
	}
	return q.sem.Acquire(ctx, 1)
}

func (q *Queue) release() {
	if q.sem != nil {
		q.sem.Release(1)
	}
}

// Add waits for a free slot, runs task and returns its result.
// If ctx ends while waiting, task is not run and ctx.Err() is returned.
func Add[T any](ctx context.Context, q *Queue, task Task[T]) (T, error) {
	return run(ctx, q, task)
}

// run is Add with extra fields attached to the TaskCompleted signal.
func run[T any](ctx context.Context, q *Queue, task Task[T], fields ...capitan.Field) (T, error) {
	q.pending.Add(1)
	defer q.pending.Add(-1)

	if err := q.acquire(ctx); err != nil {
		var zero T
		return zero, err
	}
	defer q.release()

	start := time.Now()
	v, err := task(ctx)
	fields = append(fields, KeyDuration.Field(time.Since(start)))
	if err != nil {
		fields = append(fields, KeyError.Field(err.Error()))
	}
	capitan.Emit(ctx, TaskCompleted, fields...)
	return v, err
}

// AddAll runs tasks through q and returns their results in submission order.
// The first error cancels the context passed to the remaining tasks and is
// returned with a nil slice.
func AddAll[T any](ctx context.Context, q *Queue, tasks []Task[T]) ([]T, error) {
	results := make([]T, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			v, err := run(gctx, q, task, KeyIndex.Field(i))
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type result[T any] struct {
	val T
	err error
}

// Stream submits every task to q at once and yields each result, in
// submission order, as soon as it and all earlier ones have completed.
// A failed task yields its error in its position and iteration continues.
// Stopping the iteration early cancels the tasks that have not finished.
func Stream[T any](ctx context.Context, q *Queue, tasks []Task[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		slots := make([]chan result[T], len(tasks))
		for i, task := range tasks {
			slots[i] = make(chan result[T], 1)
			go func() {
				v, err := run(ctx, q, task, KeyIndex.Field(i))
				slots[i] <- result[T]{val: v, err: err}
			}()
		}

		for _, slot := range slots {
			r := <-slot
			if !yield(r.val, r.err) {
				return
			}
		}
	}
}
