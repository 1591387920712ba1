// Package service implements disaster mutations. Every successful mutation
// follows the same sequence: persist with the audit-trail append, record the
// operational audit event, then broadcast the mutation so live viewers see a
// state whose trail already includes it.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"beacon/internal/auditlog"
	"beacon/internal/disaster/models"
	"beacon/internal/disaster/store"
	"beacon/internal/platform/metrics"
	"beacon/internal/stream"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/requestcontext"
)

// Broadcaster fans a mutation out to live subscribers.
type Broadcaster interface {
	Publish(topic string, payload any) error
}

// Auditor records operational audit events.
type Auditor interface {
	Emit(ctx context.Context, event auditlog.Event)
}

// Mutation is the broadcast payload for disaster changes. Op is one of
// create, update, delete; Data is the post-mutation state (final state for
// deletes).
type Mutation struct {
	Op   string           `json:"op"`
	Data *models.Disaster `json:"data"`
}

type Service struct {
	store   store.Store
	hub     Broadcaster
	audit   Auditor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, hub Broadcaster, audit Auditor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, hub: hub, audit: audit, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the fields of a new disaster. OwnerID defaults to the
// authenticated principal.
type CreateParams struct {
	Title        string
	LocationName string
	Description  string
	Tags         []string
	OwnerID      string
	Lat          float64
	Lon          float64
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Disaster, error) {
	owner := params.OwnerID
	if owner == "" {
		owner = requestcontext.Principal(ctx).Name
	}

	disaster, err := models.NewDisaster(
		params.Title, params.LocationName, params.Description,
		params.Tags, owner, params.Lat, params.Lon,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, disaster); err != nil {
		return nil, err
	}

	s.finishMutation(ctx, "create", auditlog.ActionDisasterCreated, owner, disaster)
	return disaster, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params models.UpdateParams) (*models.Disaster, error) {
	user, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, id, nil, func(disaster *models.Disaster) {
		params.Apply(disaster)
		disaster.AppendAudit(models.AuditActionUpdate, user, now)
	})
	if err != nil {
		return nil, err
	}

	s.finishMutation(ctx, "update", auditlog.ActionDisasterUpdated, user, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.Disaster, error) {
	user, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}

	deleted, err := s.store.Delete(ctx, id, models.AuditEvent{
		Action:    models.AuditActionDelete,
		UserID:    user,
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, err
	}

	s.finishMutation(ctx, "delete", auditlog.ActionDisasterDeleted, user, deleted)
	return deleted, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Disaster, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, tag string) ([]*models.Disaster, error) {
	return s.store.List(ctx, tag)
}

// finishMutation runs the post-persist half of a mutation: operational audit,
// broadcast, metrics. The mutation has already committed, so failures here
// are logged, not returned.
func (s *Service) finishMutation(ctx context.Context, op, action, user string, disaster *models.Disaster) {
	s.audit.Emit(ctx, auditlog.Event{
		UserID:  user,
		Subject: disaster.ID.String(),
		Action:  action,
	})
	if err := s.hub.Publish(stream.TopicDisasterUpdated, Mutation{Op: op, Data: disaster}); err != nil {
		s.logger.WarnContext(ctx, "mutation broadcast failed", "op", op, "disaster_id", disaster.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.DisasterMutations.WithLabelValues(op).Inc()
	}
	s.logger.InfoContext(ctx, "disaster "+op+"d", "disaster_id", disaster.ID, "user", user)
}

func actingUser(ctx context.Context) (string, error) {
	user := requestcontext.Principal(ctx)
	if user.Name == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "authenticated user required")
	}
	return user.Name, nil
}
