// Package auditlog captures operational audit events emitted by domain
// logic. This is the service-level activity log; the per-entity audit trail
// lives on the entity itself. Events are transport-agnostic so stores and
// sinks can fan out.
package auditlog

import (
	"context"
	"log/slog"
	"time"

	"beacon/pkg/requestcontext"
)

// Actions recorded by the core.
const (
	ActionDisasterCreated = "disaster_created"
	ActionDisasterUpdated = "disaster_updated"
	ActionDisasterDeleted = "disaster_deleted"
	ActionReportCreated   = "report_created"
	ActionReportVerified  = "report_verified"
)

// Event is one recorded action.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	RequestID string    `json:"request_id,omitempty"`
}

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Sink receives audit events for export (e.g. Kafka). Sinks are best-effort;
// the store is the system of record.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher accepts events from domain logic and hands them to the worker
// without blocking the request path. A full inbox drops the event with a
// warning rather than stalling a mutation.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Emit enriches the event from context and queues it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// Inbox exposes the queue for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
