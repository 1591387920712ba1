package store

import (
	"context"

	"github.com/google/uuid"

	"beacon/internal/disaster/models"
	dErrors "beacon/pkg/domain-errors"
)

// ErrNotFound is returned when no disaster exists for the given id.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "disaster not found")

// Store persists disasters and their audit trails.
//
// Execute is the single write path for updates: the store locates the
// disaster, runs validate against its current state, applies mutate, and
// persists the result as one atomic step. Concurrent mutations of the same
// disaster must serialize, so the audit trail grows by exactly one entry
// per successful call and no appended entry is lost.
type Store interface {
	Create(ctx context.Context, disaster *models.Disaster) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Disaster, error)
	// List returns disasters newest first, optionally filtered by tag.
	List(ctx context.Context, tag string) ([]*models.Disaster, error)
	Execute(ctx context.Context, id uuid.UUID, validate func(*models.Disaster) error, mutate func(*models.Disaster)) (*models.Disaster, error)
	// Delete appends the closing audit entry, removes the disaster, and
	// returns its final state including that entry.
	Delete(ctx context.Context, id uuid.UUID, audit models.AuditEvent) (*models.Disaster, error)
}

// ResourceStore locates aid resources around a point.
type ResourceStore interface {
	AddResource(ctx context.Context, resource models.Resource) error
	// NearbyResources returns resources within radiusKm of (lat, lon) that
	// belong to the disaster or are shared across incidents.
	NearbyResources(ctx context.Context, disasterID uuid.UUID, lat, lon, radiusKm float64) ([]models.Resource, error)
}
