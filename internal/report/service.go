package report

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"beacon/internal/auditlog"
	"beacon/internal/platform/metrics"
	"beacon/internal/stream"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/requestcontext"
)

// Broadcaster fans report events out to live subscribers.
type Broadcaster interface {
	Publish(topic string, payload any) error
}

// Auditor records operational audit events.
type Auditor interface {
	Emit(ctx context.Context, event auditlog.Event)
}

// Service implements report submission and moderation.
type Service struct {
	store   Store
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

func NewService(store Store, hub Broadcaster, audit Auditor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, hub: hub, audit: audit, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries a new report submission. UserID defaults to the
// authenticated principal.
type CreateParams struct {
	DisasterID uuid.UUID
	Content    string
	ImageURL   string
	UserID     string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Report, error) {
	userID := params.UserID
	if userID == "" {
		userID = requestcontext.Principal(ctx).Name
	}

	report, err := NewReport(params.DisasterID, userID, params.Content, params.ImageURL, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, report); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, auditlog.Event{
		UserID:  userID,
		Subject: report.ID.String(),
		Action:  auditlog.ActionReportCreated,
	})
	if err := s.hub.Publish(stream.TopicNewReport, report); err != nil {
		s.logger.WarnContext(ctx, "report broadcast failed", "report_id", report.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.ReportsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "report created", "report_id", report.ID, "disaster_id", report.DisasterID)
	return report, nil
}

// Verify moves a report to the given moderation state and broadcasts the
// updated report.
func (s *Service) Verify(ctx context.Context, id uuid.UUID, status VerificationStatus) (*Report, error) {
	user := requestcontext.Principal(ctx)
	if user.Name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "authenticated user required")
	}

	report, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, auditlog.Event{
		UserID:  user.Name,
		Subject: report.ID.String(),
		Action:  auditlog.ActionReportVerified,
	})
	if err := s.hub.Publish(stream.TopicNewReport, report); err != nil {
		s.logger.WarnContext(ctx, "report broadcast failed", "report_id", report.ID, "error", err)
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]*Report, error) {
	return s.store.ListByDisaster(ctx, disasterID)
}
