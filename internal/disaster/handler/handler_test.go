package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/auditlog"
	"beacon/internal/cache"
	"beacon/internal/disaster/handler"
	"beacon/internal/disaster/models"
	"beacon/internal/disaster/service"
	"beacon/internal/disaster/store"
	"beacon/internal/enrich"
	"beacon/internal/feed"
	"beacon/internal/platform/config"
	"beacon/internal/platform/logger"
	"beacon/internal/platform/middleware"
)

type nopHub struct {
	mu     sync.Mutex
	topics []string
}

func (h *nopHub) Publish(topic string, _ any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.topics = append(h.topics, topic)
	return nil
}

type nopAuditor struct{}

func (nopAuditor) Emit(context.Context, auditlog.Event) {}

type env struct {
	router chi.Router
	store  *store.InMemoryStore
	svc    *service.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.NewNop()
	hub := &nopHub{}
	memStore := store.NewInMemoryStore()
	svc := service.New(memStore, hub, nopAuditor{}, log)

	orchestrator := cache.NewOrchestrator(cache.NewInMemoryStore(), log)
	throttler := feed.NewThrottler(hub, log, time.Millisecond, 50*time.Millisecond)
	t.Cleanup(throttler.Close)
	feedSvc := feed.NewService(orchestrator, throttler, config.FeedConfig{BurstSize: 3, Stagger: time.Millisecond, Cooldown: 50 * time.Millisecond})

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"AUTHENTIC: consistent"}]}}]}`)
	}))
	t.Cleanup(model.Close)
	extractor := enrich.NewExtractor(model.URL, "k")
	enrichSvc := enrich.NewService(orchestrator, extractor, nil, nil, enrich.NewImageVerifier(extractor),
		&disasterSource{svc: svc}, memStore, log)

	h := handler.New(svc, feedSvc, enrichSvc, middleware.DefaultUsers(), log)
	router := chi.NewRouter()
	h.Register(router)
	return &env{router: router, store: memStore, svc: svc}
}

type disasterSource struct {
	svc *service.Service
}

func (d *disasterSource) Get(ctx context.Context, id uuid.UUID) (*models.Disaster, error) {
	return d.svc.Get(ctx, id)
}

func (e *env) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) createDisaster(t *testing.T) uuid.UUID {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/disasters", "netrunnerX", map[string]any{
		"title":         "NYC Flood",
		"location_name": "Manhattan, NYC",
		"description":   "Heavy flooding",
		"tags":          []string{"flood"},
		"lat":           40.7128,
		"lon":           -74.006,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Disaster
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created.ID
}

func TestCreateRequiresKnownUser(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/disasters", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/disasters", "intruder", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)
	id := e.createDisaster(t)

	rec := e.do(t, http.MethodGet, "/disasters/"+id.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Disaster
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "NYC Flood", got.Title)
	assert.Len(t, got.AuditTrail, 1)
}

func TestGetUnknownID(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/disasters/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/disasters/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFiltersByTag(t *testing.T) {
	e := newEnv(t)
	e.createDisaster(t)

	rec := e.do(t, http.MethodGet, "/disasters?tag=flood", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var disasters []models.Disaster
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disasters))
	assert.Len(t, disasters, 1)

	rec = e.do(t, http.MethodGet, "/disasters?tag=fire", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disasters))
	assert.Empty(t, disasters)
}

func TestUpdateAppendsTrailEntry(t *testing.T) {
	e := newEnv(t)
	id := e.createDisaster(t)

	rec := e.do(t, http.MethodPut, "/disasters/"+id.String(), "reliefAdmin", map[string]any{
		"title": "NYC Flood Update",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Disaster
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "NYC Flood Update", updated.Title)
	require.Len(t, updated.AuditTrail, 2)
	assert.Equal(t, "reliefAdmin", updated.AuditTrail[1].UserID)
}

func TestDeleteReturnsFinalState(t *testing.T) {
	e := newEnv(t)
	id := e.createDisaster(t)

	rec := e.do(t, http.MethodDelete, "/disasters/"+id.String(), "netrunnerX", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var deleted models.Disaster
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	require.Len(t, deleted.AuditTrail, 2)
	assert.Equal(t, models.AuditActionDelete, deleted.AuditTrail[1].Action)

	rec = e.do(t, http.MethodGet, "/disasters/"+id.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSocialMediaReturnsFeed(t *testing.T) {
	e := newEnv(t)
	id := e.createDisaster(t)

	rec := e.do(t, http.MethodGet, "/disasters/"+id.String()+"/social-media", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []feed.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 3)

	rec = e.do(t, http.MethodGet, "/disasters/"+uuid.NewString()+"/social-media", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNearbyResources(t *testing.T) {
	e := newEnv(t)
	id := e.createDisaster(t)

	require.NoError(t, e.store.AddResource(context.Background(), models.Resource{
		ID: uuid.New(), DisasterID: &id, Name: "Red Cross Shelter", Type: "shelter", Lat: 40.72, Lon: -74.0,
	}))

	rec := e.do(t, http.MethodGet, "/disasters/"+id.String()+"/resources", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resources []models.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resources))
	require.Len(t, resources, 1)
	assert.Equal(t, "Red Cross Shelter", resources[0].Name)
}

func TestVerifyImage(t *testing.T) {
	e := newEnv(t)
	id := e.createDisaster(t)

	rec := e.do(t, http.MethodPost, "/disasters/"+id.String()+"/verify-image", "reliefAdmin", map[string]any{
		"image_url": "http://example.com/flood.jpg",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result enrich.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Verified)
}
