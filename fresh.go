package fresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"golang.org/x/sync/singleflight"
)

// ErrNilSource is returned by New when the source, or the FetchFunc of a
// SourceFuncs, is nil.
var ErrNilSource = errors.New("fresh: nil source")

// flightKey is the only key used in the singleflight group; one Value
// manages exactly one value.
const flightKey = "refresh"

// Value holds one lazily fetched, freshness-checked value.
// Create it with New; the zero Value is not usable.
type Value[T any] struct {
	source Source[T]
	group  singleflight.Group

	mu       sync.RWMutex
	value    T
	hasValue bool

	name     string
	observer Observer
	logger   *slog.Logger
}

// New returns a Value backed by source. Nothing is fetched until the first Get.
func New[T any](source Source[T], opts ...Option) (*Value[T], error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if sf, ok := source.(SourceFuncs[T]); ok && sf.FetchFunc == nil {
		return nil, ErrNilSource
	}

	cfg := &config{name: DefaultName}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Value[T]{
		source:   source,
		name:     cfg.name,
		observer: cfg.observer,
		logger:   cfg.logger.With("value", cfg.name),
	}, nil
}

// MustNew is like New but panics on error. It simplifies wiring of
// package-level values.
func MustNew[T any](source Source[T], opts ...Option) *Value[T] {
	v, err := New(source, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the name given with WithName.
func (v *Value[T]) Name() string {
	return v.name
}

// Peek returns the installed value without checking freshness or fetching.
// ok is false if nothing has been installed yet.
func (v *Value[T]) Peek() (value T, ok bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.hasValue
}

// Get returns the managed value, refreshing it first if necessary.
//
// If a refresh cycle is already underway, Get joins it and returns its
// result without checking freshness itself. Otherwise Get starts a cycle:
// the installed value, if any, is checked with Source.IsFresh and returned
// when fresh; when it is missing or stale, Source.Fetch is called and its
// result installed. Every caller of one cycle receives the same value or
// the same error.
//
// If ctx ends first, Get returns ctx.Err(). The cycle itself keeps running
// with the values of ctx but without its cancellation.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	// leader is written inside the flight before its result is sent on
	// the channel, so reading it after the receive is safe.
	var leader bool
	ch := v.group.DoChan(flightKey, func() (any, error) {
		leader = true
		return v.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if !leader {
			v.emit(EventShared, nil)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		val, _ := res.Val.(T)
		return val, nil
	}
}

// refresh runs one cycle. It is only ever called from inside the flight,
// so it is the single writer of v.value.
func (v *Value[T]) refresh(ctx context.Context) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
			v.fail(ctx, err)
		}
	}()

	current, ok := v.Peek()
	if ok {
		usable, err := v.source.IsFresh(ctx, current)
		if err != nil {
			v.fail(ctx, err)
			return result, err
		}
		if usable {
			v.emit(EventHit, nil)
			capitan.Emit(ctx, ValueHit, KeyName.Field(v.name))
			return current, nil
		}
	}

	v.emit(EventMiss, nil)
	capitan.Emit(ctx, RefreshStarted, KeyName.Field(v.name))

	start := time.Now()
	next, err := v.source.Fetch(ctx)
	if err != nil {
		v.fail(ctx, err)
		return result, err
	}
	elapsed := time.Since(start)

	// Install before the flight ends; the group forgets the key only after
	// this function returns.
	v.mu.Lock()
	v.value = next
	v.hasValue = true
	v.mu.Unlock()

	v.emit(EventFetched, nil)
	capitan.Emit(ctx, RefreshSucceeded,
		KeyName.Field(v.name),
		KeyDuration.Field(elapsed),
	)
	v.logger.Debug("value refreshed", "duration", elapsed)

	return next, nil
}

func (v *Value[T]) fail(ctx context.Context, err error) {
	v.emit(EventError, err)
	capitan.Emit(ctx, RefreshFailed,
		KeyName.Field(v.name),
		KeyError.Field(err.Error()),
	)
	v.logger.Warn("refresh failed", "error", err)
}

func (v *Value[T]) emit(event Event, err error) {
	if v.observer == nil {
		return
	}
	v.observer.On(EventData{
		Event: event,
		Name:  v.name,
		Err:   err,
	})
}

// PanicError is returned to every caller of a refresh cycle in which the
// Source panicked.
type PanicError struct {
	// Value is the value passed to panic.
	Value any
	// Stack is the stack trace of the panicking goroutine.
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("fresh: source panicked: %v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value if it is an error.
func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}
