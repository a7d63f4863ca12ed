package maps

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL, RatePerSec: 1000}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected an error without an api key")
	}
}

func TestNearbyZonesParsesResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "transit_station" {
			t.Errorf("type = %q", got)
		}
		if got := r.URL.Query().Get("radius"); got != "5000" {
			t.Errorf("radius = %q", got)
		}
		fmt.Fprint(w, `{
			"status": "OK",
			"results": [
				{"name": "Majestic Station", "rating": 4.5,
				 "geometry": {"location": {"lat": 12.9767, "lng": 77.5713}}},
				{"name": "KR Market", "rating": 4.1,
				 "geometry": {"location": {"lat": 12.9591, "lng": 77.5740}}}
			]
		}`)
	})

	zones, err := c.NearbyZones(context.Background(), "Bangalore", 12.9716, 77.5946, []string{"transit_station"})
	if err != nil {
		t.Fatalf("NearbyZones: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}
	z := zones[0]
	if z.Name != "Majestic Station" || z.Type != "transit_station" || z.Rating != 4.5 {
		t.Errorf("zone = %+v", z)
	}
	// Majestic is roughly 2.6km from the city-centre origin.
	if z.DistanceKm < 2 || z.DistanceKm > 3.5 {
		t.Errorf("distance = %.2f km, want ~2.6", z.DistanceKm)
	}
}

func TestNearbyZonesSkipsFailingType(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == "restaurant" {
			fmt.Fprint(w, `{"status": "OVER_QUERY_LIMIT"}`)
			return
		}
		fmt.Fprint(w, `{"status": "OK", "results": [
			{"name": "Orion Mall", "rating": 4.4,
			 "geometry": {"location": {"lat": 13.0112, "lng": 77.5550}}}
		]}`)
	})

	zones, err := c.NearbyZones(context.Background(), "Bangalore", 12.9716, 77.5946, []string{"restaurant", "shopping_mall"})
	if err != nil {
		t.Fatalf("one failing type must not fail the call: %v", err)
	}
	if len(zones) != 1 || zones[0].Name != "Orion Mall" {
		t.Errorf("zones = %+v", zones)
	}
}

func TestNearbyZonesAllFailed(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "REQUEST_DENIED"}`)
	})
	if _, err := c.NearbyZones(context.Background(), "Bangalore", 12.9716, 77.5946, []string{"restaurant", "shopping_mall"}); err == nil {
		t.Error("expected an error when every type fails")
	}
}

func TestNearbyZonesZeroResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS"}`)
	})
	zones, err := c.NearbyZones(context.Background(), "Bangalore", 12.9716, 77.5946, []string{"restaurant"})
	if err != nil {
		t.Fatalf("ZERO_RESULTS is not an error: %v", err)
	}
	if len(zones) != 0 {
		t.Errorf("zones = %+v", zones)
	}
}

func TestHaversineKm(t *testing.T) {
	if d := haversineKm(12.9716, 77.5946, 12.9716, 77.5946); d != 0 {
		t.Errorf("same point = %g, want 0", d)
	}
	// Bengaluru to Chennai is about 290km great-circle.
	d := haversineKm(12.9716, 77.5946, 13.0827, 80.2707)
	if math.Abs(d-290) > 10 {
		t.Errorf("blr-maa = %.1f km, want ~290", d)
	}
}
