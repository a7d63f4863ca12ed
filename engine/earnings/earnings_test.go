package earnings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/store"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		hour int
		want TimeBucket
	}{
		{5, BucketMorning}, {11, BucketMorning},
		{12, BucketAfternoon}, {16, BucketAfternoon},
		{17, BucketEvening}, {20, BucketEvening},
		{21, BucketNight}, {23, BucketNight}, {0, BucketNight}, {4, BucketNight},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.hour); got != tt.want {
			t.Errorf("BucketFor(%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestRankZones(t *testing.T) {
	zones := []domain.Zone{
		{Name: "Far good", Type: "restaurant", Rating: 4.5, DistanceKm: 8},
		{Name: "Near good", Type: "restaurant", Rating: 4.5, DistanceKm: 2},
		{Name: "Best", Type: "bar", Rating: 4.9, DistanceKm: 5},
		{Name: "Meh", Type: "restaurant", Rating: 3.0, DistanceKm: 1},
		{Name: "Overflow", Type: "restaurant", Rating: 2.0, DistanceKm: 1},
	}
	picks := rankZones(zones, BucketEvening)

	if len(picks) != 3 {
		t.Fatalf("len(picks) = %d, want 3", len(picks))
	}
	if picks[0].Name != "Best" {
		t.Errorf("picks[0] = %s, want Best (highest confidence)", picks[0].Name)
	}
	if picks[1].Name != "Near good" {
		t.Errorf("picks[1] = %s, want Near good (distance breaks the tie)", picks[1].Name)
	}
	if picks[2].Name != "Far good" {
		t.Errorf("picks[2] = %s, want Far good", picks[2].Name)
	}
	if picks[0].Confidence != 98 {
		t.Errorf("Confidence = %v, want rating*20 = 98", picks[0].Confidence)
	}
	// Evening multiplier is 1.5 over the base 150.
	if picks[0].ExpectedEarnings != 225 {
		t.Errorf("ExpectedEarnings = %v, want 225", picks[0].ExpectedEarnings)
	}
	if picks[0].Reason == "" {
		t.Error("expected a reason for a known bucket/type pair")
	}
}

func TestRankZonesConfidenceClamp(t *testing.T) {
	picks := rankZones([]domain.Zone{{Name: "Top", Rating: 5.5}}, BucketMorning)
	if picks[0].Confidence != 100 {
		t.Errorf("Confidence = %v, want clamp at 100", picks[0].Confidence)
	}
}

func TestLocationFrom(t *testing.T) {
	trips := []domain.TripRecord{
		{EndLat: 12.93, EndLng: 77.61},
		{EndLat: 12.90, EndLng: 77.50},
	}
	lat, lng := locationFrom(trips)
	if lat != 12.93 || lng != 77.61 {
		t.Errorf("locationFrom = (%v, %v), want most recent trip end", lat, lng)
	}

	lat, lng = locationFrom(nil)
	if lat != fallbackLat || lng != fallbackLng {
		t.Errorf("locationFrom(nil) = (%v, %v), want city-center fallback", lat, lng)
	}

	// Trips without coordinates are skipped.
	lat, lng = locationFrom([]domain.TripRecord{{}, {EndLat: 13, EndLng: 77}})
	if lat != 13 || lng != 77 {
		t.Errorf("locationFrom skipping empty coords = (%v, %v)", lat, lng)
	}
}

type stubOracle struct {
	zones []domain.Zone
	err   error
	city  string
	types []string
}

func (s *stubOracle) NearbyZones(_ context.Context, city string, _, _ float64, zoneTypes []string) ([]domain.Zone, error) {
	s.city = city
	s.types = zoneTypes
	return s.zones, s.err
}

func adviseAt(t *testing.T, mem *store.Memory, oracle ZoneOracle, hour int) Advice {
	t.Helper()
	a := NewAdvisor(mem, oracle, nil)
	a.now = func() time.Time { return time.Date(2026, 6, 1, hour, 0, 0, 0, time.UTC) }
	adv, err := a.Advise(context.Background(), Request{UserID: 1}).Unwrap()
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	return adv
}

func TestAdviseHeadline(t *testing.T) {
	oracle := &stubOracle{zones: []domain.Zone{
		{Name: "Majestic Station", Type: "transit_station", Rating: 4.2, DistanceKm: 3},
	}}
	adv := adviseAt(t, store.NewMemory(), oracle, 9)

	if adv.Bucket != BucketMorning {
		t.Errorf("Bucket = %v, want morning", adv.Bucket)
	}
	if adv.Headline != "Head to Majestic Station. Expected earnings: ₹180" {
		t.Errorf("Headline = %q", adv.Headline)
	}
	// Morning zone types should have been requested, for the default city.
	if len(oracle.types) == 0 || oracle.types[0] != "transit_station" {
		t.Errorf("oracle queried with %v, want morning types", oracle.types)
	}
	if oracle.city != fallbackCity {
		t.Errorf("oracle queried for city %q, want default %q", oracle.city, fallbackCity)
	}
}

func TestAdviseEmitsZoneRecommendations(t *testing.T) {
	oracle := &stubOracle{zones: []domain.Zone{
		{Name: "Majestic Station", Type: "transit_station", Rating: 4.5, DistanceKm: 2},
		{Name: "City Hospital", Type: "hospital", Rating: 4.0, DistanceKm: 3},
		{Name: "National School", Type: "school", Rating: 3.5, DistanceKm: 4},
	}}
	adv := adviseAt(t, store.NewMemory(), oracle, 9)

	if len(adv.Zones) != 3 {
		t.Fatalf("len(Zones) = %d, want 3", len(adv.Zones))
	}
	var zoneRecs []domain.RecommendationItem
	for _, r := range adv.Recommendations {
		if r.Type == "high_demand_zone" {
			zoneRecs = append(zoneRecs, r)
		}
	}
	if len(zoneRecs) != 3 {
		t.Fatalf("got %d zone recommendations, want the ranked zones surfaced: %+v", len(zoneRecs), adv.Recommendations)
	}
	if zoneRecs[0].Title != "Head to Majestic Station" {
		t.Errorf("zoneRecs[0].Title = %q", zoneRecs[0].Title)
	}
	if zoneRecs[0].Description != "Expected earnings: ₹180" {
		t.Errorf("zoneRecs[0].Description = %q", zoneRecs[0].Description)
	}
}

func TestAdvisePassesProfileCity(t *testing.T) {
	oracle := &stubOracle{}
	a := NewAdvisor(store.NewMemory(), oracle, nil)
	a.now = func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) }
	if _, err := a.Advise(context.Background(), Request{UserID: 1, City: "Mysuru"}).Unwrap(); err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if oracle.city != "Mysuru" {
		t.Errorf("oracle queried for city %q, want Mysuru", oracle.city)
	}
}

func TestAdviseUsesMonthWindow(t *testing.T) {
	mem := store.NewMemory()
	// Three weeks old: outside a weekly window, inside the monthly one.
	if _, err := mem.CreateTrip(context.Background(), domain.TripRecord{
		UserID: 1, Earnings: 500, CreatedAt: time.Now().AddDate(0, 0, -21),
	}); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	adv := adviseAt(t, mem, nil, 9)
	if adv.Stats.TotalTrips != 1 {
		t.Errorf("TotalTrips = %d, want the three-week-old trip counted", adv.Stats.TotalTrips)
	}
}

func TestAdviseDegradedOracle(t *testing.T) {
	adv := adviseAt(t, store.NewMemory(), &stubOracle{err: errors.New("places down")}, 9)
	if !adv.Degraded {
		t.Error("expected degraded flag")
	}
	if adv.Headline != "" {
		t.Errorf("Headline = %q, want none when the oracle is down", adv.Headline)
	}
}

func TestAdviseNoOracle(t *testing.T) {
	adv := adviseAt(t, store.NewMemory(), nil, 9)
	if !adv.Degraded {
		t.Error("expected degraded flag with no oracle configured")
	}
}

func TestHistoryRecommendations(t *testing.T) {
	tests := []struct {
		name  string
		stats domain.TripStatistics
		want  []string
	}{
		{"no trips", domain.TripStatistics{}, nil},
		{
			"low per-trip earnings",
			domain.TripStatistics{TotalTrips: 10, TotalEarnings: 800, AvgEarnings: 80, NetEarnings: 700},
			[]string{"Increase Trip Distance"},
		},
		{
			"high costs",
			domain.TripStatistics{TotalTrips: 10, TotalEarnings: 2000, AvgEarnings: 200, NetEarnings: 1000},
			[]string{"Reduce Operating Costs"},
		},
		{
			"both",
			domain.TripStatistics{TotalTrips: 10, TotalEarnings: 900, AvgEarnings: 90, NetEarnings: 400},
			[]string{"Increase Trip Distance", "Reduce Operating Costs"},
		},
		{
			"healthy",
			domain.TripStatistics{TotalTrips: 10, TotalEarnings: 3000, AvgEarnings: 300, NetEarnings: 2500},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := historyRecommendations(tt.stats)
			if len(recs) != len(tt.want) {
				t.Fatalf("got %d recommendations, want %d", len(recs), len(tt.want))
			}
			for i, w := range tt.want {
				if recs[i].Title != w {
					t.Errorf("recs[%d] = %s, want %s", i, recs[i].Title, w)
				}
			}
		})
	}
}

func TestPeakHourRecommendation(t *testing.T) {
	if got := peakHourRecommendation(6); got == nil || got.Title != "Morning Peak Hour" {
		t.Errorf("hour 6: got %+v, want morning peak recommendation", got)
	}
	if got := peakHourRecommendation(18); got == nil || got.Title != "Evening Peak Hour" {
		t.Errorf("hour 18: got %+v, want evening peak recommendation", got)
	}
	if got := peakHourRecommendation(13); got != nil {
		t.Errorf("hour 13: got %+v, want none", got)
	}
}

func TestAdviseIncludesPeakHourRecommendation(t *testing.T) {
	adv := adviseAt(t, store.NewMemory(), nil, 18)
	found := false
	for _, r := range adv.Recommendations {
		if r.Title == "Evening Peak Hour" {
			found = true
		}
	}
	if !found {
		t.Errorf("recommendations %+v missing the peak-hour item", adv.Recommendations)
	}
}
