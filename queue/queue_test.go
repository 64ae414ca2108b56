package queue_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/probablyarth/fresh-go/queue"
)

func TestMain(m *testing.M) {
	capitan.Configure(capitan.WithSyncMode())
	os.Exit(m.Run())
}

func constant(n int) queue.Task[int] {
	return func(context.Context) (int, error) { return n, nil }
}

// reversed returns tasks 1..n where earlier tasks take longer, so they
// complete in the opposite order to submission.
func reversed(n int) []queue.Task[int] {
	tasks := make([]queue.Task[int], n)
	for i := range tasks {
		d := time.Duration(n-i) * 5 * time.Millisecond
		tasks[i] = func(context.Context) (int, error) {
			time.Sleep(d)
			return i + 1, nil
		}
	}
	return tasks
}

func equalInts(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// tracked returns a task that records the peak number of tasks running at once.
func tracked(running, peak *atomic.Int32, n int) queue.Task[int] {
	return func(context.Context) (int, error) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return n, nil
	}
}

func TestAddReturnsTaskResult(t *testing.T) {
	q := queue.New(queue.Options{})
	v, err := queue.Add(context.Background(), q, constant(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
}

func TestAddCanceledWhileWaiting(t *testing.T) {
	q := queue.New(queue.Options{Concurrency: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	go queue.Add[int](context.Background(), q, func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var ran atomic.Bool
	_, err := queue.Add[int](ctx, q, func(context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	})
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got err=%v, want %v", err, context.DeadlineExceeded)
	}
	if ran.Load() {
		t.Fatal("task ran after its context ended")
	}
}

func TestAddAllKeepsOrder(t *testing.T) {
	q := queue.New(queue.Options{})
	values, err := queue.AddAll(context.Background(), q, reversed(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{1, 2, 3, 4}; !equalInts(values, want) {
		t.Fatalf("got %v, want %v", values, want)
	}
}

func TestAddAllEmpty(t *testing.T) {
	q := queue.New(queue.Options{})
	values, err := queue.AddAll[int](context.Background(), q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values == nil || len(values) != 0 {
		t.Fatalf("got %#v, want an empty slice", values)
	}
}

func TestAddAllRespectsConcurrency(t *testing.T) {
	q := queue.New(queue.Options{Concurrency: 2})
	var running, peak atomic.Int32

	tasks := make([]queue.Task[int], 8)
	for i := range tasks {
		tasks[i] = tracked(&running, &peak, i)
	}
	if _, err := queue.AddAll(context.Background(), q, tasks); err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d, want at most 2", p)
	}
	if n := q.Pending(); n != 0 {
		t.Fatalf("%d tasks still pending", n)
	}
}

func TestAddAllBoundSharedAcrossCallers(t *testing.T) {
	q := queue.New(queue.Options{Concurrency: 2})
	var running, peak atomic.Int32

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks := make([]queue.Task[int], 4)
			for i := range tasks {
				tasks[i] = tracked(&running, &peak, i)
			}
			if _, err := queue.AddAll(context.Background(), q, tasks); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d across callers, want at most 2", p)
	}
}

func TestAddAllFirstErrorCancels(t *testing.T) {
	errBoom := errors.New("boom")
	q := queue.New(queue.Options{})

	start := time.Now()
	values, err := queue.AddAll(context.Background(), q, []queue.Task[int]{
		func(context.Context) (int, error) { return 0, errBoom },
		func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Second):
				return 1, nil
			}
		},
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got err=%v, want %v", err, errBoom)
	}
	if values != nil {
		t.Fatalf("got %v, want nil", values)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("AddAll took %v; remaining task was not canceled", elapsed)
	}
}

func TestStreamYieldsInOrder(t *testing.T) {
	q := queue.New(queue.Options{})
	var values []int
	for v, err := range queue.Stream(context.Background(), q, reversed(4)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		values = append(values, v)
	}
	if want := []int{1, 2, 3, 4}; !equalInts(values, want) {
		t.Fatalf("got %v, want %v", values, want)
	}
}

func TestStreamRespectsConcurrency(t *testing.T) {
	q := queue.New(queue.Options{Concurrency: 2})
	var running, peak atomic.Int32

	tasks := make([]queue.Task[int], 8)
	for i := range tasks {
		tasks[i] = tracked(&running, &peak, i)
	}
	var n int
	for v, err := range queue.Stream(context.Background(), q, tasks) {
		if err != nil {
			t.Fatal(err)
		}
		if v != n {
			t.Fatalf("got %d at position %d", v, n)
		}
		n++
	}
	if n != len(tasks) {
		t.Fatalf("got %d results, want %d", n, len(tasks))
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d, want at most 2", p)
	}
}

func TestStreamYieldsBeforeAllComplete(t *testing.T) {
	q := queue.New(queue.Options{})
	release := make(chan struct{})
	defer close(release)

	next := queue.Stream(context.Background(), q, []queue.Task[int]{
		constant(1),
		func(context.Context) (int, error) {
			<-release
			return 2, nil
		},
	})

	for v, err := range next {
		if err != nil {
			t.Fatal(err)
		}
		if v != 1 {
			t.Fatalf("got %d, want 1", v)
		}
		// The second task is still blocked; stop here.
		break
	}
}

func TestStreamErrorInPosition(t *testing.T) {
	errBoom := errors.New("boom")
	q := queue.New(queue.Options{Concurrency: 1})

	var got []error
	for _, err := range queue.Stream(context.Background(), q, []queue.Task[int]{
		constant(1),
		func(context.Context) (int, error) { return 0, errBoom },
		constant(3),
	}) {
		got = append(got, err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0] != nil || !errors.Is(got[1], errBoom) || got[2] != nil {
		t.Fatalf("got errors %v, want [nil boom nil]", got)
	}
}

func TestStreamBreakCancelsRemaining(t *testing.T) {
	q := queue.New(queue.Options{})
	secondStarted := make(chan struct{})
	canceled := make(chan struct{})

	for range queue.Stream(context.Background(), q, []queue.Task[int]{
		func(context.Context) (int, error) {
			<-secondStarted
			return 1, nil
		},
		func(ctx context.Context) (int, error) {
			close(secondStarted)
			<-ctx.Done()
			close(canceled)
			return 0, ctx.Err()
		},
	}) {
		break
	}

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("remaining task was not canceled")
	}
}

func TestStreamEmpty(t *testing.T) {
	q := queue.New(queue.Options{})
	for range queue.Stream[int](context.Background(), q, nil) {
		t.Fatal("empty stream yielded a value")
	}
}

func TestConcurrency(t *testing.T) {
	if c := queue.New(queue.Options{Concurrency: 3}).Concurrency(); c != 3 {
		t.Fatalf("got %d, want 3", c)
	}
	if c := queue.New(queue.Options{Concurrency: -1}).Concurrency(); c != 0 {
		t.Fatalf("got %d, want 0", c)
	}
}

func TestTaskCompletedSignals(t *testing.T) {
	errBoom := errors.New("task-completed-signals")
	var mu sync.Mutex
	indexes := map[int]string{}
	obs := capitan.Observe(func(_ context.Context, e *capitan.Event) {
		i, ok := queue.KeyIndex.From(e)
		if !ok {
			return
		}
		msg, _ := queue.KeyError.From(e)
		if _, ok := queue.KeyDuration.From(e); !ok {
			t.Errorf("task %d completed without a duration", i)
		}
		mu.Lock()
		defer mu.Unlock()
		indexes[i] = msg
	}, queue.TaskCompleted)
	defer obs.Close()

	q := queue.New(queue.Options{Concurrency: 1})
	for range queue.Stream(context.Background(), q, []queue.Task[int]{
		constant(0),
		func(context.Context) (int, error) { return 0, errBoom },
		constant(2),
	}) {
	}

	mu.Lock()
	defer mu.Unlock()
	if len(indexes) != 3 {
		t.Fatalf("got signals for tasks %v, want 0, 1 and 2", indexes)
	}
	if indexes[0] != "" || indexes[1] != errBoom.Error() || indexes[2] != "" {
		t.Fatalf("got error fields %v, want only task 1 to fail", indexes)
	}
}
