package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"beacon/internal/cache"
	"beacon/internal/disaster/models"
	dErrors "beacon/pkg/domain-errors"
)

// DisasterSource supplies disaster state for enrichment lookups.
type DisasterSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Disaster, error)
}

// ResourceSource locates aid resources around a point.
type ResourceSource interface {
	NearbyResources(ctx context.Context, disasterID uuid.UUID, lat, lon, radiusKm float64) ([]models.Resource, error)
}

// DefaultResourceRadiusKm bounds the nearby-resources search.
const DefaultResourceRadiusKm = 10

// Service fronts every enrichment provider with the cache orchestrator.
// Cache keys are deterministic functions of the inputs, so identical
// requests across handlers share entries.
type Service struct {
	cache     *cache.Orchestrator
	extractor *Extractor
	geocoder  *Geocoder
	scraper   *UpdatesScraper
	verifier  *ImageVerifier
	disasters DisasterSource
	resources ResourceSource
	logger    *slog.Logger
}

func NewService(
	orchestrator *cache.Orchestrator,
	extractor *Extractor,
	geocoder *Geocoder,
	scraper *UpdatesScraper,
	verifier *ImageVerifier,
	disasters DisasterSource,
	resources ResourceSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		cache:     orchestrator,
		extractor: extractor,
		geocoder:  geocoder,
		scraper:   scraper,
		verifier:  verifier,
		disasters: disasters,
		resources: resources,
		logger:    logger,
	}
}

// GeocodeResult pairs the resolved name with its coordinates.
type GeocodeResult struct {
	LocationName string  `json:"location_name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

// Geocode resolves coordinates for a location name, extracting the name from
// the description first when none is given. Results are cached by the
// lowercased name, so the extraction step never runs for known places.
func (s *Service) Geocode(ctx context.Context, description, locationName string) (*GeocodeResult, error) {
	if strings.TrimSpace(locationName) == "" {
		if strings.TrimSpace(description) == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "description or location_name is required")
		}
		extracted, err := s.extractor.ExtractLocation(ctx, description)
		if err != nil {
			return nil, err
		}
		locationName = extracted
	}

	key := "geocode:" + strings.ToLower(strings.TrimSpace(locationName))
	raw, err := s.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) (any, error) {
		coords, err := s.geocoder.Geocode(ctx, locationName)
		if err != nil {
			return nil, err
		}
		return GeocodeResult{LocationName: locationName, Lat: coords.Lat, Lon: coords.Lon}, nil
	})
	if err != nil {
		return nil, err
	}

	var result GeocodeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode cached geocode result")
	}
	return &result, nil
}

// OfficialUpdates returns situation updates relevant to the disaster,
// keyed by its keyword set so disasters sharing keywords share the entry.
func (s *Service) OfficialUpdates(ctx context.Context, disasterID uuid.UUID) ([]OfficialUpdate, error) {
	disaster, err := s.disasters.Get(ctx, disasterID)
	if err != nil {
		return nil, err
	}
	keywords := disaster.Keywords()

	key := "official_updates:" + strings.Join(keywords, ",")
	raw, err := s.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) (any, error) {
		updates, err := s.scraper.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return FilterByKeywords(updates, keywords), nil
	})
	if err != nil {
		return nil, err
	}

	var updates []OfficialUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode cached updates")
	}
	return updates, nil
}

// VerifyImage judges a report image against the disaster context. The
// verdict is cached per disaster and image URL.
func (s *Service) VerifyImage(ctx context.Context, disasterID uuid.UUID, imageURL string) (*VerificationResult, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "image_url is required")
	}
	disaster, err := s.disasters.Get(ctx, disasterID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("verify:%s:%s", disasterID, imageURL)
	raw, err := s.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) (any, error) {
		return s.verifier.Verify(ctx, imageURL, disaster.Title+". "+disaster.Description)
	})
	if err != nil {
		return nil, err
	}

	var result VerificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode cached verification")
	}
	return &result, nil
}

// NearbyResources lists aid resources around the disaster. Explicit
// coordinates override the disaster's own location.
func (s *Service) NearbyResources(ctx context.Context, disasterID uuid.UUID, lat, lon float64) ([]models.Resource, error) {
	disaster, err := s.disasters.Get(ctx, disasterID)
	if err != nil {
		return nil, err
	}
	if lat == 0 && lon == 0 {
		lat, lon = disaster.Lat, disaster.Lon
	}

	key := fmt.Sprintf("resources:%s:%g:%g", disasterID, lat, lon)
	raw, err := s.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) (any, error) {
		return s.resources.NearbyResources(ctx, disasterID, lat, lon, DefaultResourceRadiusKm)
	})
	if err != nil {
		return nil, err
	}

	var resources []models.Resource
	if err := json.Unmarshal(raw, &resources); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode cached resources")
	}
	return resources, nil
}
