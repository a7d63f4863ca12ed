// Package maps finds nearby demand zones through the Google Places API.
// Requests are rate limited client-side; Places bills per call and a burst of
// drivers asking "where should I go" must not fan out unbounded.
package maps

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api"
	searchRadiusM  = 5000
)

// Config configures the Places client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RatePerSec caps outbound Places calls. Zero means 5/s.
	RatePerSec float64
}

// Client queries the Places nearby search endpoint.
type Client struct {
	http    *resty.Client
	apiKey  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Places client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("maps: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond),
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec)+1),
		logger:  logger,
	}, nil
}

type nearbyResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name     string `json:"name"`
		Rating   float64 `json:"rating"`
		Types    []string `json:"types"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NearbyZones returns demand-zone candidates around (lat, lng), one Places
// call per zone type. The nearby search is purely coordinate-based; city is
// carried for logging only. A type whose call fails is skipped; the method
// only errs when every call failed.
func (c *Client) NearbyZones(ctx context.Context, city string, lat, lng float64, zoneTypes []string) ([]domain.Zone, error) {
	var zones []domain.Zone
	var lastErr error
	for _, zt := range zoneTypes {
		if err := c.limiter.Wait(ctx); err != nil {
			return zones, fmt.Errorf("maps: rate limit wait: %w", err)
		}
		found, err := c.search(ctx, lat, lng, zt)
		if err != nil {
			c.logger.Warn("places search failed", "city", city, "zone_type", zt, "error", err)
			lastErr = err
			continue
		}
		zones = append(zones, found...)
	}
	if len(zones) == 0 && lastErr != nil {
		return nil, fmt.Errorf("maps: nearby zones: %w", lastErr)
	}
	return zones, nil
}

func (c *Client) search(ctx context.Context, lat, lng float64, zoneType string) ([]domain.Zone, error) {
	var out nearbyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"location": fmt.Sprintf("%f,%f", lat, lng),
			"radius":   fmt.Sprintf("%d", searchRadiusM),
			"type":     zoneType,
			"key":      c.apiKey,
		}).
		SetResult(&out).
		Get("/place/nearbysearch/json")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("places returned %s", resp.Status())
	}
	if out.Status != "OK" && out.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places status %s", out.Status)
	}

	zones := make([]domain.Zone, 0, len(out.Results))
	for _, r := range out.Results {
		zones = append(zones, domain.Zone{
			Name:       r.Name,
			Type:       zoneType,
			Lat:        r.Geometry.Location.Lat,
			Lng:        r.Geometry.Location.Lng,
			DistanceKm: haversineKm(lat, lng, r.Geometry.Location.Lat, r.Geometry.Location.Lng),
			Rating:     r.Rating,
		})
	}
	return zones, nil
}

const earthRadiusKm = 6371

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
