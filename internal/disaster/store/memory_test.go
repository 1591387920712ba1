package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/disaster/models"
)

func newDisaster(t *testing.T, title string, tags ...string) *models.Disaster {
	t.Helper()
	d, err := models.NewDisaster(title, "Manhattan, NYC", "Heavy flooding", tags, "netrunnerX", 40.7128, -74.006, time.Now().UTC())
	require.NoError(t, err)
	return d
}

func TestInMemoryStoreCreateAndFind(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood", "flood")

	require.NoError(t, s.Create(ctx, d))

	found, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Title, found.Title)
	require.Len(t, found.AuditTrail, 1)
	assert.Equal(t, models.AuditActionCreate, found.AuditTrail[0].Action)
}

func TestInMemoryStoreFindMissing(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreListFiltersByTag(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	flood := newDisaster(t, "NYC Flood", "flood", "urgent")
	fire := newDisaster(t, "LA Fire", "fire")
	require.NoError(t, s.Create(ctx, flood))
	require.NoError(t, s.Create(ctx, fire))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	floods, err := s.List(ctx, "flood")
	require.NoError(t, err)
	require.Len(t, floods, 1)
	assert.Equal(t, "NYC Flood", floods[0].Title)
}

func TestInMemoryStoreExecuteMutatesAtomically(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood", "flood")
	require.NoError(t, s.Create(ctx, d))

	updated, err := s.Execute(ctx, d.ID, nil, func(current *models.Disaster) {
		current.Title = "NYC Flood Update"
		current.AppendAudit(models.AuditActionUpdate, "reliefAdmin", time.Now().UTC())
	})
	require.NoError(t, err)
	assert.Equal(t, "NYC Flood Update", updated.Title)
	assert.Len(t, updated.AuditTrail, 2)
}

func TestInMemoryStoreExecuteValidationRejects(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood")
	require.NoError(t, s.Create(ctx, d))

	wantErr := assert.AnError
	_, err := s.Execute(ctx, d.ID, func(*models.Disaster) error { return wantErr }, func(current *models.Disaster) {
		current.Title = "should not apply"
	})
	assert.ErrorIs(t, err, wantErr)

	found, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "NYC Flood", found.Title)
}

func TestInMemoryStoreConcurrentExecuteLosesNoAuditEntries(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood")
	require.NoError(t, s.Create(ctx, d))

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Execute(ctx, d.ID, nil, func(current *models.Disaster) {
				current.AppendAudit(models.AuditActionUpdate, "reliefAdmin", time.Now().UTC())
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	found, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, found.AuditTrail, writers+1)
}

func TestInMemoryStoreDeleteReturnsFinalState(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood")
	require.NoError(t, s.Create(ctx, d))

	deleted, err := s.Delete(ctx, d.ID, models.AuditEvent{
		Action:    models.AuditActionDelete,
		UserID:    "netrunnerX",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Len(t, deleted.AuditTrail, 2)
	assert.Equal(t, models.AuditActionDelete, deleted.AuditTrail[1].Action)

	_, err = s.FindByID(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreNearbyResources(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood")
	require.NoError(t, s.Create(ctx, d))

	other := uuid.New()
	near := models.Resource{ID: uuid.New(), DisasterID: &d.ID, Name: "Red Cross Shelter", Type: "shelter", Lat: 40.72, Lon: -74.0}
	shared := models.Resource{ID: uuid.New(), Name: "Harbor Supply Depot", Type: "supplies", Lat: 40.70, Lon: -74.01}
	far := models.Resource{ID: uuid.New(), DisasterID: &d.ID, Name: "LA Warehouse", Type: "supplies", Lat: 34.05, Lon: -118.24}
	foreign := models.Resource{ID: uuid.New(), DisasterID: &other, Name: "Other Shelter", Type: "shelter", Lat: 40.71, Lon: -74.0}
	for _, r := range []models.Resource{near, shared, far, foreign} {
		require.NoError(t, s.AddResource(ctx, r))
	}

	found, err := s.NearbyResources(ctx, d.ID, 40.7128, -74.006, 10)
	require.NoError(t, err)
	names := make([]string, 0, len(found))
	for _, r := range found {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"Red Cross Shelter", "Harbor Supply Depot"}, names)
}

func TestInMemoryStoreCloneIsolation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	d := newDisaster(t, "NYC Flood", "flood")
	require.NoError(t, s.Create(ctx, d))

	found, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	found.Tags[0] = "mutated"
	found.AuditTrail[0].UserID = "mutated"

	again, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "flood", again.Tags[0])
	assert.Equal(t, "netrunnerX", again.AuditTrail[0].UserID)
}
