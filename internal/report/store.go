package report

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	dErrors "beacon/pkg/domain-errors"
)

// ErrNotFound is returned when no report exists for the given id.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "report not found")

// Store persists reports.
type Store interface {
	Create(ctx context.Context, report *Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*Report, error)
	// ListByDisaster returns reports for a disaster, newest first.
	ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]*Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, status VerificationStatus) (*Report, error)
}

// InMemoryStore is a mutex-guarded map store for tests and single-instance
// deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*Report
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[uuid.UUID]*Report)}
}

func (s *InMemoryStore) Create(_ context.Context, report *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *report
	s.reports[report.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (s *InMemoryStore) ListByDisaster(_ context.Context, disasterID uuid.UUID) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*Report, 0)
	for _, r := range s.reports {
		if r.DisasterID != disasterID {
			continue
		}
		clone := *r
		reports = append(reports, &clone)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, id uuid.UUID, status VerificationStatus) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.VerificationStatus = status
	clone := *report
	return &clone, nil
}
