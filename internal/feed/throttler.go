// Package feed serves the simulated social-media feed for a disaster and
// owns the emission throttler: the state machine that turns the first read
// of a resource into one staggered burst of feed events and suppresses
// re-triggering for a cooldown window.
package feed

import (
	"log/slog"
	"sync"
	"time"

	"beacon/internal/platform/metrics"
	"beacon/internal/stream"
)

// Publisher is the slice of the broadcast hub the throttler needs.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Phase is the per-resource emission state. Idle resources have no window
// entry at all; the table only tracks active ones.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEmitting
	PhaseCoolingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseEmitting:
		return "emitting"
	case PhaseCoolingDown:
		return "cooling_down"
	default:
		return "idle"
	}
}

// window tracks one active burst. Its timers are owned here so shutdown can
// cancel them as a unit instead of leaking callbacks past their state.
type window struct {
	phase  Phase
	timers []*time.Timer
}

// Throttler guarantees at most one emission burst per resource id per
// cooldown period, no matter how many callers hit the resource concurrently.
type Throttler struct {
	pub      Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	stagger  time.Duration
	cooldown time.Duration

	mu      sync.Mutex
	windows map[string]*window
	closed  bool
}

// ThrottlerOption configures a Throttler.
type ThrottlerOption func(*Throttler)

// WithThrottlerMetrics wires burst counters.
func WithThrottlerMetrics(m *metrics.Metrics) ThrottlerOption {
	return func(t *Throttler) { t.metrics = m }
}

// NewThrottler builds a throttler emitting one post every stagger interval,
// with retriggering suppressed until cooldown has elapsed since the first
// access. Cooldown must exceed the full burst duration or a new burst can
// start while the old one is still draining.
func NewThrottler(pub Publisher, logger *slog.Logger, stagger, cooldown time.Duration, opts ...ThrottlerOption) *Throttler {
	t := &Throttler{
		pub:      pub,
		logger:   logger,
		stagger:  stagger,
		cooldown: cooldown,
		windows:  make(map[string]*window),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trigger schedules a staggered burst of posts for the resource if it is
// Idle and reports whether a burst was started. Accesses while Emitting or
// CoolingDown are no-ops; the window is neither extended nor rescheduled.
func (t *Throttler) Trigger(resourceID string, posts []Post) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || len(posts) == 0 {
		return false
	}
	if _, active := t.windows[resourceID]; active {
		return false
	}

	w := &window{phase: PhaseEmitting}
	t.windows[resourceID] = w

	for i, post := range posts {
		post := post
		last := i == len(posts)-1
		w.timers = append(w.timers, time.AfterFunc(time.Duration(i)*t.stagger, func() {
			t.emit(resourceID, post, last)
		}))
	}
	// Cooldown counts from the first access, not from the last item.
	w.timers = append(w.timers, time.AfterFunc(t.cooldown, func() {
		t.release(resourceID)
	}))

	if t.metrics != nil {
		t.metrics.FeedBursts.Inc()
	}
	t.logger.Debug("feed burst scheduled",
		"resource_id", resourceID,
		"items", len(posts),
	)
	return true
}

// Phase reports the resource's current state. Mostly for tests and
// debugging endpoints.
func (t *Throttler) Phase(resourceID string) Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[resourceID]; ok {
		return w.phase
	}
	return PhaseIdle
}

// Close cancels every pending timer across all windows. Bursts in flight
// stop where they are; nothing fires after Close returns.
func (t *Throttler) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for id, w := range t.windows {
		for _, timer := range w.timers {
			timer.Stop()
		}
		delete(t.windows, id)
	}
}

func (t *Throttler) emit(resourceID string, post Post, last bool) {
	// Publish outside the lock: the hub can briefly block and the state
	// table must stay hot.
	if err := t.pub.Publish(stream.TopicSocialMedia, post); err != nil {
		t.logger.Warn("feed item publish failed", "resource_id", resourceID, "error", err)
	}

	if !last {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[resourceID]; ok && w.phase == PhaseEmitting {
		w.phase = PhaseCoolingDown
	}
}

func (t *Throttler) release(resourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, resourceID)
}
