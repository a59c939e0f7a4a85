// Package livesync keeps in-memory snapshots of collections current. Each
// List re-fetches when the bus reports a change to its key and on a fixed
// poll interval, so edits made elsewhere (the admin server, another process,
// the remote backend) show up without a restart.
package livesync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"go-engsite/internal/bus"
)

const (
	MinInterval     = 2 * time.Second
	MaxInterval     = 30 * time.Second
	DefaultInterval = 10 * time.Second
)

// ErrStarted is returned by Start on a List that is already running.
var ErrStarted = errors.New("livesync: list already started")

// ClampInterval maps d into [MinInterval, MaxInterval]; zero selects DefaultInterval.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultInterval
	case d < MinInterval:
		return MinInterval
	case d > MaxInterval:
		return MaxInterval
	}
	return d
}

// Fetcher loads the current contents of a collection.
type Fetcher[T any] func(ctx context.Context) []T

// Options configure a List.
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// List is a live view of one collection key.
type List[T any] struct {
	key      string
	fetch    Fetcher[T]
	bus      *bus.Bus
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	items   []T
	version uint64
	changed chan struct{}

	startOnce sync.Once
	started   bool
	done      chan struct{}
}

// New creates a stopped List. b may be nil, leaving polling as the only trigger.
func New[T any](key string, fetch Fetcher[T], b *bus.Bus, opts Options) *List[T] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &List[T]{
		key:      key,
		fetch:    fetch,
		bus:      b,
		interval: ClampInterval(opts.Interval),
		logger:   logger.With("live", key),
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Key returns the collection key the list follows.
func (l *List[T]) Key() string { return l.key }

// Start loads the list once and then follows changes until ctx is done.
func (l *List[T]) Start(ctx context.Context) error {
	err := ErrStarted
	l.startOnce.Do(func() {
		err = nil
		l.mu.Lock()
		l.started = true
		l.mu.Unlock()

		var events <-chan bus.Event
		unsubscribe := func() {}
		if l.bus != nil {
			events, unsubscribe = l.bus.Subscribe(l.key)
		}
		l.Refresh(ctx)
		go l.run(ctx, events, unsubscribe)
	})
	return err
}

func (l *List[T]) run(ctx context.Context, events <-chan bus.Event, unsubscribe func()) {
	ticker := time.NewTicker(l.interval)
	defer func() {
		ticker.Stop()
		unsubscribe()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Refresh(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.logger.Debug("Change notified", "op", ev.Op, "id", ev.ID)
			l.Refresh(ctx)
		}
	}
}

// Refresh fetches now and reports whether the contents changed.
func (l *List[T]) Refresh(ctx context.Context) bool {
	items := l.fetch(ctx)
	if ctx.Err() != nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.version > 0 && reflect.DeepEqual(l.items, items) {
		return false
	}
	l.items = items
	l.version++
	close(l.changed)
	l.changed = make(chan struct{})
	return true
}

// Snapshot returns a copy of the current contents.
func (l *List[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Version counts content changes; it is 0 before the first load.
func (l *List[T]) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Changed returns a channel closed at the next content change.
func (l *List[T]) Changed() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changed
}

// Wait blocks until the goroutine started by Start has exited. It returns
// immediately for a list that was never started.
func (l *List[T]) Wait() {
	l.mu.RLock()
	started := l.started
	l.mu.RUnlock()
	if started {
		<-l.done
	}
}

// Runner is the type-independent part of a List.
type Runner interface {
	Key() string
	Start(ctx context.Context) error
	Wait()
}

// StartAll starts every runner, each with its initial fetch done.
func StartAll(ctx context.Context, runners ...Runner) error {
	for _, r := range runners {
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("starting live list %s: %w", r.Key(), err)
		}
	}
	return nil
}

// WaitAll blocks until every started runner has exited.
func WaitAll(runners ...Runner) {
	for _, r := range runners {
		r.Wait()
	}
}

// Run starts every runner and blocks until ctx is done and all have exited.
func Run(ctx context.Context, runners ...Runner) error {
	if err := StartAll(ctx, runners...); err != nil {
		return err
	}
	<-ctx.Done()
	WaitAll(runners...)
	return nil
}
