package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"beacon/internal/platform/metrics"
	dErrors "beacon/pkg/domain-errors"
)

// DefaultTTL applies when a caller passes a non-positive ttl.
const DefaultTTL = time.Hour

// ComputeFunc produces the value for a cold or stale key. It must be
// idempotent: the shared store gives no cross-process exclusivity, so two
// instances can still race and both compute.
type ComputeFunc func(ctx context.Context) (any, error)

// Orchestrator wraps compute functions with get-or-compute-and-store
// semantics. Within one process, concurrent callers of the same cold key are
// collapsed into a single in-flight computation.
type Orchestrator struct {
	store      Store
	defaultTTL time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	flight     singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDefaultTTL overrides the fallback TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.defaultTTL = ttl }
}

// WithMetrics wires hit/miss/error counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock injects the freshness clock for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(store Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		defaultTTL: DefaultTTL,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetOrCompute returns the cached value for key if a fresh entry exists,
// otherwise invokes fn, stores the result with expiry now+ttl, and returns
// it. A failing fn is never cached, so a transient upstream failure does not
// poison the key. An unreachable backing store degrades to computing
// directly (fail-open): memoization is sacrificed, availability is not.
func (o *Orchestrator) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (json.RawMessage, error) {
	if ttl <= 0 {
		ttl = o.defaultTTL
	}

	if value, ok := o.lookup(ctx, key); ok {
		if o.metrics != nil {
			o.metrics.CacheHits.Inc()
		}
		return value, nil
	}

	value, err, _ := o.flight.Do(key, func() (any, error) {
		// A concurrent flight may have filled the key between our lookup
		// and joining the group.
		if value, ok := o.lookup(ctx, key); ok {
			if o.metrics != nil {
				o.metrics.CacheHits.Inc()
			}
			return value, nil
		}

		if o.metrics != nil {
			o.metrics.CacheMisses.Inc()
		}

		result, err := fn(ctx)
		if err != nil {
			if o.metrics != nil {
				o.metrics.CacheComputeErrors.Inc()
			}
			return nil, err
		}

		raw, err := json.Marshal(result)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode computed value")
		}

		if err := o.store.Put(ctx, key, raw, o.now().Add(ttl)); err != nil {
			o.storeDegraded(ctx, "cache write failed", key, err)
		}
		return json.RawMessage(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return value.(json.RawMessage), nil
}

// lookup returns the cached value and true when a fresh entry exists. Store
// errors other than ErrNotFound are treated as a miss.
func (o *Orchestrator) lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, err := o.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			o.storeDegraded(ctx, "cache read failed", key, err)
		}
		return nil, false
	}
	if !entry.Fresh(o.now()) {
		return nil, false
	}
	return entry.Value, true
}

func (o *Orchestrator) storeDegraded(ctx context.Context, msg, key string, err error) {
	if o.metrics != nil {
		o.metrics.CacheStoreErrors.Inc()
	}
	o.logger.WarnContext(ctx, msg, "key", key, "error", err)
}
