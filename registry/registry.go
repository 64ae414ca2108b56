// Package registry is an explicit name-to-instance table for Values and
// Queues.
//
// A Registry is created at wiring time and passed to whatever needs to look
// things up; there is no package-level state. Names are unique per kind:
//
//	reg := registry.New()
//	ratesKey := registry.NewKey[Rates]("rates")
//	if err := registry.Register(reg, ratesKey, rates); err != nil {
//		return err
//	}
//	...
//	rates, err := registry.Lookup(reg, ratesKey)
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	fresh "github.com/probablyarth/fresh-go"
	"github.com/probablyarth/fresh-go/queue"
)

var (
	// ErrDuplicate is returned when a name is registered twice for one kind.
	ErrDuplicate = errors.New("duplicate declaration")
	// ErrNotDefined is returned when looking up a name that was never registered.
	ErrNotDefined = errors.New("not defined")
	// ErrTypeMismatch is returned when a Value is looked up with a Key of a
	// different type than the one it was registered with.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNil is returned when registering a nil Value or Queue.
	ErrNil = errors.New("nil instance")
)

// Kind is the kind of a registered instance.
type Kind string

const (
	// KindNeed is the kind of registered Values.
	KindNeed Kind = "need"
	// KindQueue is the kind of registered Queues.
	KindQueue Kind = "queue"
)

type entry struct {
	typeName string
	instance any
}

// Registry holds named Values and Queues.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]entry
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report lookups of unknown names.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: map[Kind]map[string]entry{
			KindNeed:  {},
			KindQueue: {},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

func (r *Registry) add(kind Kind, name string, e entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[kind][name]; ok {
		return fmt.Errorf("%w for %s named %s", ErrDuplicate, kind, name)
	}
	r.entries[kind][name] = e
	return nil
}

func (r *Registry) get(kind Kind, name string) (entry, error) {
	r.mu.RLock()
	e, ok := r.entries[kind][name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error(fmt.Sprintf("The requested %q %s is not defined", name, kind), "name", name, "kind", kind)
		return entry{}, fmt.Errorf("%s named %s: %w", kind, name, ErrNotDefined)
	}
	return e, nil
}

// Register adds v under key. It fails with ErrDuplicate if the name is
// already taken by another Value.
func Register[T any](r *Registry, key Key[T], v *fresh.Value[T]) error {
	if v == nil {
		return fmt.Errorf("%s named %s: %w", KindNeed, key.name, ErrNil)
	}
	return r.add(KindNeed, key.name, entry{typeName: key.typeName, instance: v})
}

// Lookup returns the Value registered under key.
func Lookup[T any](r *Registry, key Key[T]) (*fresh.Value[T], error) {
	e, err := r.get(KindNeed, key.name)
	if err != nil {
		return nil, err
	}
	v, ok := e.instance.(*fresh.Value[T])
	if !ok {
		return nil, fmt.Errorf("%s named %s is %s, not %s: %w",
			KindNeed, key.name, e.typeName, key.typeName, ErrTypeMismatch)
	}
	return v, nil
}

// RegisterQueue adds q under name. It fails with ErrDuplicate if the name is
// already taken by another Queue.
func RegisterQueue(r *Registry, name string, q *queue.Queue) error {
	if q == nil {
		return fmt.Errorf("%s named %s: %w", KindQueue, name, ErrNil)
	}
	return r.add(KindQueue, name, entry{instance: q})
}

// LookupQueue returns the Queue registered under name.
func LookupQueue(r *Registry, name string) (*queue.Queue, error) {
	e, err := r.get(KindQueue, name)
	if err != nil {
		return nil, err
	}
	return e.instance.(*queue.Queue), nil
}

// Names returns the registered names of kind, sorted.
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries[kind]))
}
