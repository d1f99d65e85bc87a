/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/chainguard-dev/queue-registry/pkg/queue"
	"github.com/chainguard-dev/queue-registry/pkg/queuename"
)

// Scanner returns every key matching a glob pattern.
type Scanner interface {
	Keys(ctx context.Context, pattern string) (sets.Set[string], error)
}

// Factory builds a handle for a queue name.
type Factory interface {
	Create(name string) queue.Handle
}

// Board is the presentation layer the registry is mirrored onto. Calls are
// made while the refresh lock is held, so implementations should not block.
type Board interface {
	ReplaceAll(handles []queue.Handle)
	Add(handle queue.Handle)
	Remove(handle queue.Handle)
}

// Diff is the delta a Reconcile applied.
type Diff struct {
	Added   []string
	Removed []string
}

// Empty reports whether the reconcile changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Status is a point-in-time summary of the engine.
type Status struct {
	Queues      int       `json:"queues"`
	LastRefresh time.Time `json:"lastRefresh,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	Refreshing  bool      `json:"refreshing"`
}

// Engine owns the registry and the refresh lock.
type Engine struct {
	scanner   Scanner
	factory   Factory
	board     Board
	prefix    string
	extractor *queuename.Extractor
	backoff   Backoff
	timeout   time.Duration
	clock     clockwork.Clock

	// refresh is only ever taken with TryLock, so a second caller is turned
	// away instead of waiting.
	refresh sync.Mutex
	running atomic.Bool

	// mu guards the fields below.
	mu          sync.RWMutex
	handles     []queue.Handle
	index       map[string]queue.Handle
	lastRefresh time.Time
	lastError   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrefix sets the key prefix queues are discovered under.
func WithPrefix(prefix string) Option {
	return func(e *Engine) {
		e.prefix = prefix
	}
}

// WithBackoff sets the bootstrap retry policy.
func WithBackoff(b Backoff) Option {
	return func(e *Engine) {
		e.backoff = b
	}
}

// WithReconcileTimeout bounds how long a single Reconcile may run.
// Zero means no bound.
func WithReconcileTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithClock sets the clock used for retry delays and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine with an empty registry.
func New(scanner Scanner, factory Factory, board Board, opts ...Option) *Engine {
	e := &Engine{
		scanner: scanner,
		factory: factory,
		board:   board,
		prefix:  "bull",
		backoff: DefaultBackoff(),
		clock:   clockwork.NewRealClock(),
		index:   make(map[string]queue.Handle),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.extractor = queuename.NewExtractor(e.prefix)
	return e
}

// Bootstrap populates the registry from scratch. An empty scan counts as a
// failure and is retried according to the backoff policy. On success the
// registry is replaced wholesale and the board receives ReplaceAll.
//
// If every attempt fails, the registry is left as it was and the returned
// error wraps ErrAttemptsExhausted along with the last failure.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if !e.refresh.TryLock() {
		recordRefresh(kindBootstrap, resultDropped)
		return ErrRefreshInProgress
	}
	defer e.refresh.Unlock()
	e.running.Store(true)
	defer e.running.Store(false)

	log := clog.FromContext(ctx).With("refresh", kindBootstrap)
	ctx = clog.WithLogger(ctx, log)

	policy := e.backoff.policy()
	for attempt := 1; ; attempt++ {
		mBootstrapAttempts.WithLabelValues(env.KnativeServiceName, env.KnativeRevisionName).Inc()

		handles, err := e.load(ctx)
		if err == nil {
			e.replace(handles)
			e.board.ReplaceAll(slices.Clone(handles))
			e.finish(kindBootstrap, nil)
			log.Infof("Bootstrapped %d queues after %d attempts", len(handles), attempt)
			return nil
		}

		if attempt >= e.backoff.MaxAttempts {
			err = fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
			e.finish(kindBootstrap, err)
			return err
		}

		delay := policy.NextBackOff()
		if errors.Is(err, ErrEmptyDiscovery) {
			log.Warnf("No queue! Retry n°%d in %v", attempt, delay)
		} else {
			log.Warnf("Bootstrap attempt %d failed, retrying in %v: %v", attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			err = fmt.Errorf("bootstrap interrupted after %d attempts: %w", attempt, ctx.Err())
			e.finish(kindBootstrap, err)
			return err
		case <-e.clock.After(delay):
		}
	}
}

// load performs one bootstrap attempt.
func (e *Engine) load(ctx context.Context) ([]queue.Handle, error) {
	names, err := e.discover(ctx)
	if err != nil {
		return nil, err
	}
	if names.Len() == 0 {
		return nil, ErrEmptyDiscovery
	}
	sorted := sets.List(names)
	handles := make([]queue.Handle, 0, len(sorted))
	for _, name := range sorted {
		handles = append(handles, e.factory.Create(name))
	}
	return handles, nil
}

// Reconcile rescans the keyspace and applies the difference to the registry.
// Queues present in both the registry and the scan are not touched. A scan
// that finds nothing drains the registry.
//
// Adds and removes that completed before an error are kept.
func (e *Engine) Reconcile(ctx context.Context) (Diff, error) {
	if !e.refresh.TryLock() {
		recordRefresh(kindReconcile, resultDropped)
		return Diff{}, ErrRefreshInProgress
	}
	defer e.refresh.Unlock()
	e.running.Store(true)
	defer e.running.Store(false)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	log := clog.FromContext(ctx).With("refresh", kindReconcile)
	ctx = clog.WithLogger(ctx, log)

	current, err := e.discover(ctx)
	if err != nil {
		err = fmt.Errorf("reconcile: %w", err)
		e.finish(kindReconcile, err)
		return Diff{}, err
	}

	existing := sets.New(e.Names()...)
	diff := Diff{
		Added:   sets.List(current.Difference(existing)),
		Removed: sets.List(existing.Difference(current)),
	}

	for _, name := range diff.Added {
		h := e.factory.Create(name)
		e.insert(h)
		e.board.Add(h)
	}
	for _, name := range diff.Removed {
		if h, ok := e.delete(name); ok {
			e.board.Remove(h)
		}
	}

	mAdded.WithLabelValues(env.KnativeServiceName, env.KnativeRevisionName).Add(float64(len(diff.Added)))
	mRemoved.WithLabelValues(env.KnativeServiceName, env.KnativeRevisionName).Add(float64(len(diff.Removed)))
	e.finish(kindReconcile, nil)
	log.Infof("Reconciled queues: %d added, %d removed", len(diff.Added), len(diff.Removed))
	return diff, nil
}

func (e *Engine) discover(ctx context.Context) (sets.Set[string], error) {
	keys, err := e.scanner.Keys(ctx, queuename.Pattern(e.prefix))
	if err != nil {
		return nil, err
	}
	return e.extractor.Names(keys), nil
}

func (e *Engine) replace(handles []queue.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles = slices.Clone(handles)
	e.index = make(map[string]queue.Handle, len(handles))
	for _, h := range handles {
		e.index[h.Name()] = h
	}
}

func (e *Engine) insert(h queue.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles = append(e.handles, h)
	e.index[h.Name()] = h
}

func (e *Engine) delete(name string) (queue.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.index[name]
	if !ok {
		return nil, false
	}
	delete(e.index, name)
	e.handles = slices.DeleteFunc(e.handles, func(x queue.Handle) bool {
		return x.Name() == name
	})
	return h, true
}

func (e *Engine) finish(kind string, err error) {
	e.mu.Lock()
	e.lastRefresh = e.clock.Now()
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
	}
	n := len(e.handles)
	e.mu.Unlock()

	mQueues.WithLabelValues(env.KnativeServiceName, env.KnativeRevisionName).Set(float64(n))
	if err != nil {
		recordRefresh(kind, resultError)
	} else {
		recordRefresh(kind, resultOK)
	}
}

// Names returns the registered queue names in registry order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.handles))
	for _, h := range e.handles {
		names = append(names, h.Name())
	}
	return names
}

// Handles returns a copy of the registry in order.
func (e *Engine) Handles() []queue.Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.handles)
}

// Get looks up a queue by name.
func (e *Engine) Get(name string) (queue.Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.index[name]
	return h, ok
}

// Status summarizes the registry and the outcome of the last refresh.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		Queues:      len(e.handles),
		LastRefresh: e.lastRefresh,
		LastError:   e.lastError,
		Refreshing:  e.running.Load(),
	}
}
