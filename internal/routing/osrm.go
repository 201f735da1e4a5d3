// Package routing fetches road geometry between two coordinates from an
// OSRM-compatible routing service.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"
	"golang.org/x/time/rate"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

// ErrRouteProvider wraps every failure to obtain a usable path.
var ErrRouteProvider = errors.New("route provider failure")

// Geometry encodings understood by OSRM.
const (
	GeometryGeoJSON  = "geojson"
	GeometryPolyline = "polyline"
)

// Provider returns the road path between two coordinates as (lat, lon) points.
type Provider interface {
	Route(ctx context.Context, from, to models.Coordinate) ([]models.Coordinate, error)
}

// OSRMConfig configures an OSRMClient.
type OSRMConfig struct {
	BaseURL    string
	Profile    string        // "driving" by default
	Geometries string        // "geojson" or "polyline"
	Timeout    time.Duration // per request
	RatePerSec float64       // 0 disables throttling
}

// OSRMClient calls the /route/v1 service.
type OSRMClient struct {
	baseURL    string
	profile    string
	geometries string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOSRMClient builds a client. The public OSRM demo server allows one request per second,
// so callers pointing at it should keep RatePerSec at 1.
func NewOSRMClient(cfg OSRMConfig) (*OSRMClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("osrm: base URL is required")
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	switch cfg.Geometries {
	case "":
		cfg.Geometries = GeometryGeoJSON
	case GeometryGeoJSON, GeometryPolyline:
	default:
		return nil, fmt.Errorf("osrm: unsupported geometries %q", cfg.Geometries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &OSRMClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		profile:    cfg.Profile,
		geometries: cfg.Geometries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}, nil
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

type geoJSONLine struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// Route fetches the full-overview path from one coordinate to another.
// OSRM takes lon,lat pairs; the result is converted back to lat/lon.
func (c *OSRMClient) Route(ctx context.Context, from, to models.Coordinate) ([]models.Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteProvider, err)
	}

	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=%s",
		c.baseURL, c.profile, from.Lon, from.Lat, to.Lon, to.Lat, c.geometries)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteProvider, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: osrm status %d", ErrRouteProvider, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteProvider, err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRouteProvider, err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: osrm code %q: %s", ErrRouteProvider, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: no route", ErrRouteProvider)
	}

	points, err := c.decodeGeometry(parsed.Routes[0].Geometry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteProvider, err)
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: route has %d points", ErrRouteProvider, len(points))
	}
	return points, nil
}

func (c *OSRMClient) decodeGeometry(raw json.RawMessage) ([]models.Coordinate, error) {
	if c.geometries == GeometryPolyline {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("decode polyline geometry: %w", err)
		}
		return DecodePolyline(encoded)
	}

	var line geoJSONLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, fmt.Errorf("decode geojson geometry: %w", err)
	}
	points := make([]models.Coordinate, 0, len(line.Coordinates))
	for _, pair := range line.Coordinates {
		if len(pair) < 2 {
			continue
		}
		points = append(points, models.Coordinate{Lat: pair[1], Lon: pair[0]})
	}
	return points, nil
}

// DecodePolyline decodes a precision-5 Google polyline into lat/lon points.
func DecodePolyline(encoded string) ([]models.Coordinate, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}
	points := make([]models.Coordinate, 0, len(coords))
	for _, c := range coords {
		points = append(points, models.Coordinate{Lat: c[0], Lon: c[1]})
	}
	return points, nil
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(points []models.Coordinate) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
