package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	dErrors "beacon/pkg/domain-errors"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves place names to coordinates against a Nominatim-style
// search endpoint.
type Geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// GeocoderOption configures a Geocoder.
type GeocoderOption func(*Geocoder)

func WithGeocoderHTTPClient(c *http.Client) GeocoderOption {
	return func(g *Geocoder) { g.httpClient = c }
}

func NewGeocoder(baseURL string, opts ...GeocoderOption) *Geocoder {
	g := &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "beacon/1.0",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a location name. A name the provider does not know yields
// a not_found error.
func (g *Geocoder) Geocode(ctx context.Context, locationName string) (Coordinates, error) {
	query := url.Values{}
	query.Set("q", locationName)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "geocoder unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("geocoder returned %d", resp.StatusCode))
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode geocoder response")
	}
	if len(results) == 0 {
		return Coordinates{}, dErrors.New(dErrors.CodeNotFound, "location not found: "+locationName)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse geocoder lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse geocoder lon: %w", err)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}
