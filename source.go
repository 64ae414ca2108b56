package fresh

import "context"

// Source supplies a Value with new instances and decides when the installed
// instance is stale. Both methods may block.
type Source[T any] interface {
	// IsFresh reports whether current may still be returned without a refresh.
	// It must not modify current.
	IsFresh(ctx context.Context, current T) (bool, error)
	// Fetch produces a new instance.
	Fetch(ctx context.Context) (T, error)
}

// SourceFuncs adapts a pair of functions to a Source.
// A nil IsFreshFunc treats every installed value as fresh, so the value is
// fetched once and kept.
type SourceFuncs[T any] struct {
	IsFreshFunc func(ctx context.Context, current T) (bool, error)
	FetchFunc   func(ctx context.Context) (T, error)
}

// IsFresh calls IsFreshFunc, or returns true if it is nil.
func (s SourceFuncs[T]) IsFresh(ctx context.Context, current T) (bool, error) {
	if s.IsFreshFunc == nil {
		return true, nil
	}
	return s.IsFreshFunc(ctx, current)
}

// Fetch calls FetchFunc.
func (s SourceFuncs[T]) Fetch(ctx context.Context) (T, error) {
	return s.FetchFunc(ctx)
}

var _ Source[int] = SourceFuncs[int]{}
