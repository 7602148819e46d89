package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Factory creates the expensive value a Loader caches
type Factory[T any] func(ctx context.Context) (T, error)

// Loader lazily acquires and caches one expensive value, such as a rendering
// engine or a browser. Concurrent Acquire calls made while initialization is
// pending share it. A failed initialization is not cached: the next call retries.
type Loader[T any] struct {
	name    string
	factory Factory[T]
	logger  *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	value T
	ready bool
	loads atomic.Int64
}

// NewLoader returns a Loader that initializes with factory on first use
func NewLoader[T any](name string, factory Factory[T], logger *slog.Logger) *Loader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader[T]{name: name, factory: factory, logger: logger}
}

// Acquire returns the cached value, initializing it if needed. Initialization
// errors wrap ErrLoad. Cancelling ctx abandons the wait without cancelling the
// shared initialization other callers may be waiting on.
func (l *Loader[T]) Acquire(ctx context.Context) (T, error) {
	if v, ok := l.cached(); ok {
		return v, nil
	}
	ch := l.group.DoChan(l.name, func() (any, error) {
		if v, ok := l.cached(); ok {
			return v, nil
		}
		return l.load(context.WithoutCancel(ctx))
	})
	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s returned %T", ErrLoad, l.name, res.Val)
		}
		return v, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: waiting for %s: %v", ErrLoad, l.name, ctx.Err())
	}
}

func (l *Loader[T]) load(ctx context.Context) (v T, err error) {
	n := l.loads.Add(1)
	start := time.Now()
	l.logger.Info("Initializing", "component", l.name, "attempt", n)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s initialization panicked: %v", ErrLoad, l.name, r)
		}
		if err != nil {
			l.logger.Warn("Initialization failed, next acquire will retry", "component", l.name, "error", err)
		}
	}()

	v, err = l.factory(ctx)
	if err != nil {
		if !errors.Is(err, ErrLoad) {
			err = fmt.Errorf("%w: %s: %v", ErrLoad, l.name, err)
		}
		return v, err
	}
	if any(v) == nil {
		return v, fmt.Errorf("%w: %s initialization returned nothing", ErrLoad, l.name)
	}

	l.mu.Lock()
	l.value, l.ready = v, true
	l.mu.Unlock()
	l.logger.Info("Initialized", "component", l.name, "elapsed", time.Since(start))
	return v, nil
}

func (l *Loader[T]) cached() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.ready
}

// Ready reports whether a value is cached
func (l *Loader[T]) Ready() bool {
	_, ok := l.cached()
	return ok
}

// Loads counts initialization attempts, successful or not
func (l *Loader[T]) Loads() int64 { return l.loads.Load() }

// Close releases the cached value if it implements io.Closer-like Close.
// Only meant for process shutdown.
func (l *Loader[T]) Close() error {
	l.mu.Lock()
	v, ok := l.value, l.ready
	var zero T
	l.value, l.ready = zero, false
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if c, isCloser := any(v).(interface{ Close() error }); isCloser {
		return c.Close()
	}
	return nil
}
