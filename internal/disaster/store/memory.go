package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"beacon/internal/disaster/models"
)

// InMemoryStore is a mutex-guarded map store. It backs tests and
// single-instance deployments without external infrastructure.
type InMemoryStore struct {
	mu        sync.RWMutex
	disasters map[uuid.UUID]*models.Disaster
	resources []models.Resource
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{disasters: make(map[uuid.UUID]*models.Disaster)}
}

func (s *InMemoryStore) Create(_ context.Context, disaster *models.Disaster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.disasters[disaster.ID]; exists {
		return fmt.Errorf("disaster %s already exists", disaster.ID)
	}
	s.disasters[disaster.ID] = disaster.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Disaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	disaster, ok := s.disasters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return disaster.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, tag string) ([]*models.Disaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	disasters := make([]*models.Disaster, 0, len(s.disasters))
	for _, d := range s.disasters {
		if tag != "" && !d.HasTag(tag) {
			continue
		}
		disasters = append(disasters, d.Clone())
	}
	sort.Slice(disasters, func(i, j int) bool {
		return disasters[i].CreatedAt.After(disasters[j].CreatedAt)
	})
	return disasters, nil
}

// Execute runs validate and mutate under the write lock, so the check and
// the mutation observe the same state.
func (s *InMemoryStore) Execute(_ context.Context, id uuid.UUID, validate func(*models.Disaster) error, mutate func(*models.Disaster)) (*models.Disaster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	disaster, ok := s.disasters[id]
	if !ok {
		return nil, ErrNotFound
	}
	if validate != nil {
		if err := validate(disaster); err != nil {
			return nil, err
		}
	}
	mutate(disaster)
	return disaster.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID, audit models.AuditEvent) (*models.Disaster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	disaster, ok := s.disasters[id]
	if !ok {
		return nil, ErrNotFound
	}
	disaster.AuditTrail = append(disaster.AuditTrail, audit)
	delete(s.disasters, id)
	return disaster, nil
}

func (s *InMemoryStore) AddResource(_ context.Context, resource models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, resource)
	return nil
}

func (s *InMemoryStore) NearbyResources(_ context.Context, disasterID uuid.UUID, lat, lon, radiusKm float64) ([]models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nearby := make([]models.Resource, 0)
	for _, r := range s.resources {
		if r.DisasterID != nil && *r.DisasterID != disasterID {
			continue
		}
		if haversineKm(lat, lon, r.Lat, r.Lon) <= radiusKm {
			nearby = append(nearby, r)
		}
	}
	return nearby, nil
}

const earthRadiusKm = 6371

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
