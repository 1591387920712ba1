package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/cache"
	"beacon/internal/disaster/models"
	"beacon/internal/platform/logger"
	dErrors "beacon/pkg/domain-errors"
)

func modelServer(t *testing.T, answer string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, answer)
	}))
	t.Cleanup(server.Close)
	return server
}

func geocodeServer(t *testing.T, body string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

type fakeDisasters struct {
	disasters map[uuid.UUID]*models.Disaster
}

func (f *fakeDisasters) Get(_ context.Context, id uuid.UUID) (*models.Disaster, error) {
	d, ok := f.disasters[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "disaster not found")
	}
	return d, nil
}

type fakeResources struct {
	calls     atomic.Int64
	resources []models.Resource
}

func (f *fakeResources) NearbyResources(context.Context, uuid.UUID, float64, float64, float64) ([]models.Resource, error) {
	f.calls.Add(1)
	return f.resources, nil
}

func newDisaster(t *testing.T) *models.Disaster {
	t.Helper()
	d, err := models.NewDisaster("NYC Flood", "Manhattan, NYC", "Heavy flooding", []string{"flood"}, "netrunnerX", 40.7128, -74.006, time.Now().UTC())
	require.NoError(t, err)
	return d
}

func newTestService(t *testing.T, extractor *Extractor, geocoder *Geocoder, scraper *UpdatesScraper, disasters DisasterSource, resources ResourceSource) *Service {
	t.Helper()
	orchestrator := cache.NewOrchestrator(cache.NewInMemoryStore(), logger.NewNop())
	var verifier *ImageVerifier
	if extractor != nil {
		verifier = NewImageVerifier(extractor)
	}
	return NewService(orchestrator, extractor, geocoder, scraper, verifier, disasters, resources, logger.NewNop())
}

func TestExtractLocation(t *testing.T) {
	server := modelServer(t, "Manhattan, NYC", nil)
	extractor := NewExtractor(server.URL, "test-key")

	location, err := extractor.ExtractLocation(context.Background(), "Heavy flooding in Manhattan")
	require.NoError(t, err)
	assert.Equal(t, "Manhattan, NYC", location)
}

func TestExtractLocationNone(t *testing.T) {
	server := modelServer(t, "NONE", nil)
	extractor := NewExtractor(server.URL, "test-key")

	_, err := extractor.ExtractLocation(context.Background(), "something happened somewhere")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestGeocoderParsesFirstResult(t *testing.T) {
	server := geocodeServer(t, `[{"lat":"40.7128","lon":"-74.0060"}]`, nil)
	geocoder := NewGeocoder(server.URL)

	coords, err := geocoder.Geocode(context.Background(), "Manhattan, NYC")
	require.NoError(t, err)
	assert.InDelta(t, 40.7128, coords.Lat, 1e-9)
	assert.InDelta(t, -74.006, coords.Lon, 1e-9)
}

func TestGeocoderUnknownPlace(t *testing.T) {
	server := geocodeServer(t, `[]`, nil)
	geocoder := NewGeocoder(server.URL)

	_, err := geocoder.Geocode(context.Background(), "Nowhereville")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

const teaserPage = `
<html><body>
<div class="dynamic-page-teaser">
  <div class="dynamic-page-teaser-items row">
    <div class="col-md-6"><a href="/updates/1"><span class="title">Flood relief update</span><span class="date">1 Jun 2025</span></a></div>
    <div class="col-md-6"><a href="/updates/2"><span class="title">Wildfire containment</span><span class="date">2 Jun 2025</span></a></div>
  </div>
</div>
</body></html>`

func TestScraperParsesTeasers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, teaserPage)
	}))
	t.Cleanup(server.Close)
	scraper := NewUpdatesScraper(server.URL)

	updates, err := scraper.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "Flood relief update", updates[0].Title)
	assert.Equal(t, "1 Jun 2025", updates[0].Date)
	assert.Equal(t, "/updates/1", updates[0].URL)
}

func TestFilterByKeywords(t *testing.T) {
	updates := []OfficialUpdate{
		{Title: "Flood relief update"},
		{Title: "Wildfire containment"},
	}

	filtered := FilterByKeywords(updates, []string{"flood"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "Flood relief update", filtered[0].Title)

	assert.Len(t, FilterByKeywords(updates, nil), 2)
}

func TestGeocodeCachesByLowercasedName(t *testing.T) {
	var geocoderCalls atomic.Int64
	geoServer := geocodeServer(t, `[{"lat":"40.7128","lon":"-74.0060"}]`, &geocoderCalls)
	svc := newTestService(t, nil, NewGeocoder(geoServer.URL), nil, nil, nil)
	ctx := context.Background()

	first, err := svc.Geocode(ctx, "", "Manhattan, NYC")
	require.NoError(t, err)
	assert.Equal(t, "Manhattan, NYC", first.LocationName)

	second, err := svc.Geocode(ctx, "", "MANHATTAN, nyc")
	require.NoError(t, err)
	assert.InDelta(t, first.Lat, second.Lat, 1e-9)

	assert.Equal(t, int64(1), geocoderCalls.Load(), "case variants must share one cache entry")
}

func TestGeocodeExtractsWhenNameMissing(t *testing.T) {
	var modelCalls atomic.Int64
	model := modelServer(t, "Manhattan, NYC", &modelCalls)
	geoServer := geocodeServer(t, `[{"lat":"40.7128","lon":"-74.0060"}]`, nil)
	svc := newTestService(t, NewExtractor(model.URL, "k"), NewGeocoder(geoServer.URL), nil, nil, nil)

	result, err := svc.Geocode(context.Background(), "Heavy flooding in Manhattan", "")
	require.NoError(t, err)
	assert.Equal(t, "Manhattan, NYC", result.LocationName)
	assert.Equal(t, int64(1), modelCalls.Load())
}

func TestGeocodeRequiresInput(t *testing.T) {
	svc := newTestService(t, nil, nil, nil, nil, nil)

	_, err := svc.Geocode(context.Background(), "", "   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestOfficialUpdatesFiltersByDisasterKeywords(t *testing.T) {
	var scrapeCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scrapeCalls.Add(1)
		fmt.Fprint(w, teaserPage)
	}))
	t.Cleanup(server.Close)

	d := newDisaster(t)
	svc := newTestService(t, nil, nil, NewUpdatesScraper(server.URL), &fakeDisasters{disasters: map[uuid.UUID]*models.Disaster{d.ID: d}}, nil)
	ctx := context.Background()

	updates, err := svc.OfficialUpdates(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "Flood relief update", updates[0].Title)

	_, err = svc.OfficialUpdates(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scrapeCalls.Load(), "second lookup must come from cache")
}

func TestVerifyImageCachedPerURL(t *testing.T) {
	var modelCalls atomic.Int64
	model := modelServer(t, "AUTHENTIC: matches flood imagery", &modelCalls)
	d := newDisaster(t)
	svc := newTestService(t, NewExtractor(model.URL, "k"), nil, nil, &fakeDisasters{disasters: map[uuid.UUID]*models.Disaster{d.ID: d}}, nil)
	ctx := context.Background()

	result, err := svc.VerifyImage(ctx, d.ID, "http://example.com/flood.jpg")
	require.NoError(t, err)
	assert.True(t, result.Verified)

	_, err = svc.VerifyImage(ctx, d.ID, "http://example.com/flood.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(1), modelCalls.Load())

	_, err = svc.VerifyImage(ctx, d.ID, "http://example.com/other.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(2), modelCalls.Load(), "different image URL is a different key")
}

func TestNearbyResourcesDefaultsToDisasterCoords(t *testing.T) {
	d := newDisaster(t)
	resources := &fakeResources{resources: []models.Resource{{ID: uuid.New(), Name: "Red Cross Shelter"}}}
	svc := newTestService(t, nil, nil, nil, &fakeDisasters{disasters: map[uuid.UUID]*models.Disaster{d.ID: d}}, resources)
	ctx := context.Background()

	found, err := svc.NearbyResources(ctx, d.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = svc.NearbyResources(ctx, d.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resources.calls.Load(), "same coordinates share one cache entry")
}
