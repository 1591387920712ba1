// Package stream fans out entity-mutation and feed events to live
// subscribers. Delivery is best-effort: no acknowledgment, no retry, no
// backlog for late joiners. Events published on one topic reach a given
// subscriber in publish order.
package stream

import (
	"context"
	"log/slog"

	"beacon/internal/platform/metrics"
	dErrors "beacon/pkg/domain-errors"
)

// Topics used by the core.
const (
	TopicDisasterUpdated = "disaster_updated"
	TopicNewReport       = "new_report"
	TopicSocialMedia     = "social_media_updated"
)

// Event is one broadcast message. The JSON field names are the wire
// contract consumed by viewer clients.
type Event struct {
	Topic   string `json:"event"`
	Payload any    `json:"data"`
}

// Subscriber is a non-owning delivery target. The transport owns the
// connection; the hub only holds the outgoing channel and drops the
// subscriber as soon as the transport unsubscribes it.
type Subscriber struct {
	outgoing chan Event
	topics   map[string]struct{}
}

// Events is the ordered stream of deliveries for this subscriber. The hub
// closes it on unsubscribe or shutdown.
func (s *Subscriber) Events() <-chan Event {
	return s.outgoing
}

// wants reports whether the subscriber asked for this topic. An empty topic
// set means everything.
func (s *Subscriber) wants(topic string) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

type opKind int

const (
	opSubscribe opKind = iota
	opUnsubscribe
	opPublish
)

type operation struct {
	kind opKind
	sub  *Subscriber
	evt  Event
}

// Hub owns the subscriber set. All structural changes and deliveries funnel
// through a single goroutine (Run), so publishes never observe a half-updated
// set and per-subscriber ordering is free.
type Hub struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	bufferSize int

	ops    chan operation
	closed chan struct{}
	subs   map[*Subscriber]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBufferSize sets the per-subscriber outgoing buffer. A subscriber that
// falls this far behind loses events instead of stalling everyone else.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) { h.bufferSize = n }
}

// WithMetrics wires publish/drop/subscriber-count instrumentation.
func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		logger:     logger,
		bufferSize: 256,
		ops:        make(chan operation),
		closed:     make(chan struct{}),
		subs:       make(map[*Subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes hub operations until ctx is cancelled, then closes every
// subscriber channel. Call it once, from its own goroutine.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.closed)
		for sub := range h.subs {
			close(sub.outgoing)
			delete(h.subs, sub)
		}
		h.setSubscriberGauge()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-h.ops:
			switch op.kind {
			case opSubscribe:
				h.subs[op.sub] = struct{}{}
			case opUnsubscribe:
				if _, ok := h.subs[op.sub]; ok {
					delete(h.subs, op.sub)
					close(op.sub.outgoing)
				}
			case opPublish:
				h.deliver(op.evt)
			}
			h.setSubscriberGauge()
		}
	}
}

func (h *Hub) deliver(evt Event) {
	if h.metrics != nil {
		h.metrics.EventsPublished.WithLabelValues(evt.Topic).Inc()
	}
	for sub := range h.subs {
		if !sub.wants(evt.Topic) {
			continue
		}
		select {
		case sub.outgoing <- evt:
		default:
			if h.metrics != nil {
				h.metrics.EventsDropped.Inc()
			}
			h.logger.Warn("subscriber overflow, dropping event", "topic", evt.Topic)
		}
	}
}

func (h *Hub) setSubscriberGauge() {
	if h.metrics != nil {
		h.metrics.Subscribers.Set(float64(len(h.subs)))
	}
}

// Subscribe registers a delivery target for the given topics; no topics
// means all. It fails only after shutdown.
func (h *Hub) Subscribe(topics ...string) (*Subscriber, error) {
	sub := &Subscriber{outgoing: make(chan Event, h.bufferSize)}
	if len(topics) > 0 {
		sub.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}

	select {
	case h.ops <- operation{kind: opSubscribe, sub: sub}:
		return sub, nil
	case <-h.closed:
		return nil, dErrors.New(dErrors.CodeUnavailable, "broadcast hub shut down")
	}
}

// Unsubscribe removes the subscriber and closes its event channel. Safe to
// call after shutdown.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.ops <- operation{kind: opUnsubscribe, sub: sub}:
	case <-h.closed:
	}
}

// Publish delivers the payload to every currently-registered subscriber of
// the topic. A subscriber registered after Publish returns receives nothing.
func (h *Hub) Publish(topic string, payload any) error {
	select {
	case h.ops <- operation{kind: opPublish, evt: Event{Topic: topic, Payload: payload}}:
		return nil
	case <-h.closed:
		return dErrors.New(dErrors.CodeUnavailable, "broadcast hub shut down")
	}
}
