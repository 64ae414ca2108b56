package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

// ErrWatching is returned by File.Watch when a watch is already running.
var ErrWatching = errors.New("source: file already watched")

var validate = validator.New()

// File is a Source that reads and decodes a file.
//
// Without a watch, a value is stale once the file's modification time or
// size differs from what the last Fetch saw. After Watch, staleness comes
// from filesystem events instead: any write, create, rename or remove of
// the file marks the current value stale.
type File[T any] struct {
	path     string
	codec    Codec
	validate bool

	mu       sync.Mutex
	watching bool
	stale    bool
	modTime  time.Time
	size     int64
}

// NewFile returns a File source for path.
func NewFile[T any](path string, opts ...Option) *File[T] {
	cfg := newConfig(opts)
	return &File[T]{
		path:     filepath.Clean(path),
		codec:    cfg.codec,
		validate: cfg.validate,
	}
}

// Path returns the watched file path.
func (f *File[T]) Path() string {
	return f.path
}

// IsFresh reports whether the file has not changed since the last Fetch.
func (f *File[T]) IsFresh(_ context.Context, _ T) (bool, error) {
	f.mu.Lock()
	if f.watching {
		defer f.mu.Unlock()
		return !f.stale, nil
	}
	modTime, size := f.modTime, f.size
	f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		// Let the next Fetch report what is wrong with the file.
		return false, nil
	}
	return info.ModTime().Equal(modTime) && info.Size() == size, nil
}

// Fetch reads, decodes and optionally validates the file.
func (f *File[T]) Fetch(_ context.Context) (T, error) {
	var zero T

	info, err := os.Stat(f.path)
	if err != nil {
		return zero, err
	}

	// Cleared before reading so that a change landing during the read
	// marks the result stale again.
	f.mu.Lock()
	f.stale = false
	f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		f.markStale()
		return zero, err
	}

	f.mu.Lock()
	f.modTime = info.ModTime()
	f.size = info.Size()
	f.mu.Unlock()
	return v, nil
}

func (f *File[T]) read() (T, error) {
	var v T
	data, err := os.ReadFile(f.path)
	if err != nil {
		return v, err
	}
	if err := f.codec.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s as %s: %w", f.path, f.codec.ContentType(), err)
	}
	if f.validate {
		if err := validate.Struct(v); err != nil {
			return v, fmt.Errorf("validate %s: %w", f.path, err)
		}
	}
	return v, nil
}

func (f *File[T]) markStale() {
	f.mu.Lock()
	f.stale = true
	f.mu.Unlock()
}

// Watch starts watching the file's directory for events on the file and
// returns once the watch is in place. It stops when ctx ends, after which
// staleness falls back to comparing modification time and size.
//
// The current value, if any, is treated as stale when the watch starts.
func (f *File[T]) Watch(ctx context.Context) error {
	f.mu.Lock()
	if f.watching {
		f.mu.Unlock()
		return ErrWatching
	}
	f.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Watch the directory; editors often replace files by renaming over them,
	// which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}

	f.mu.Lock()
	if f.watching {
		f.mu.Unlock()
		watcher.Close()
		return ErrWatching
	}
	f.watching = true
	f.stale = true
	f.mu.Unlock()

	go f.loop(ctx, watcher)
	return nil
}

const staleOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

func (f *File[T]) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		watcher.Close()
		f.mu.Lock()
		f.watching = false
		f.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path || event.Op&staleOps == 0 {
				continue
			}
			f.markStale()

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Events may have been dropped.
			f.markStale()
		}
	}
}
