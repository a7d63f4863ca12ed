// Package earnings recommends where to drive next. It combines the trailing
// month of trips with live zone candidates from the zone oracle, scores them
// by rating and distance, and falls back to history-only recommendations when
// the oracle is unavailable.
package earnings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/store"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

// ZoneOracle returns demand-zone candidates near a point in the given city,
// filtered to the given place types.
type ZoneOracle interface {
	NearbyZones(ctx context.Context, city string, lat, lng float64, zoneTypes []string) ([]domain.Zone, error)
}

// Fallback location when the driver has no trips with coordinates.
// Bangalore city center.
const (
	fallbackLat  = 12.9716
	fallbackLng  = 77.5946
	fallbackCity = "Bangalore"
)

const baseZoneEarnings = 150

// TimeBucket partitions the day for demand modelling.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"
	BucketAfternoon TimeBucket = "afternoon"
	BucketEvening   TimeBucket = "evening"
	BucketNight     TimeBucket = "night"
)

// BucketFor maps an hour of day onto a demand bucket.
func BucketFor(hour int) TimeBucket {
	switch {
	case hour >= 5 && hour <= 11:
		return BucketMorning
	case hour >= 12 && hour <= 16:
		return BucketAfternoon
	case hour >= 17 && hour <= 20:
		return BucketEvening
	default:
		return BucketNight
	}
}

var earningsMultiplier = map[TimeBucket]float64{
	BucketMorning:   1.2,
	BucketAfternoon: 1.0,
	BucketEvening:   1.5,
	BucketNight:     1.3,
}

var zoneTypesByBucket = map[TimeBucket][]string{
	BucketMorning:   {"transit_station", "subway_station", "school", "hospital"},
	BucketAfternoon: {"shopping_mall", "restaurant", "cafe"},
	BucketEvening:   {"restaurant", "bar", "movie_theater", "shopping_mall"},
	BucketNight:     {"airport", "hospital", "night_club"},
}

var zoneReasons = map[TimeBucket]map[string]string{
	BucketMorning: {
		"transit_station": "Commuters heading to work need last-mile rides",
		"subway_station":  "Metro crowds spill out looking for onward rides",
		"school":          "School drop-off traffic peaks now",
		"hospital":        "Morning OPD visits bring steady demand",
	},
	BucketAfternoon: {
		"shopping_mall": "Afternoon shoppers need rides home with bags",
		"restaurant":    "Lunch crowd winding down, rides back to offices",
		"cafe":          "Meetings ending, short hops across the city",
	},
	BucketEvening: {
		"restaurant":    "Dinner rush brings group rides",
		"bar":           "Evening outings mean longer, better-paying trips",
		"movie_theater": "Shows letting out create ride surges",
		"shopping_mall": "Evening shoppers heading home",
	},
	BucketNight: {
		"airport":    "Red-eye flights arrive all night",
		"hospital":   "Emergency visits need rides at any hour",
		"night_club": "Late-night crowds pay premium fares",
	},
}

// ZonePick is a scored zone candidate.
type ZonePick struct {
	domain.Zone
	Confidence       float64 `json:"confidence"`
	ExpectedEarnings float64 `json:"expected_earnings"`
	Reason           string  `json:"reason,omitempty"`
}

// Advice is the earnings advisor output.
type Advice struct {
	Bucket          TimeBucket                  `json:"time_bucket"`
	Zones           []ZonePick                  `json:"zones"`
	Headline        string                      `json:"headline,omitempty"`
	Stats           domain.TripStatistics       `json:"stats"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	Degraded        bool                        `json:"degraded,omitempty"`
}

// Advisor produces zone and earnings guidance.
type Advisor struct {
	store  store.Accessor
	oracle ZoneOracle
	logger *slog.Logger
	now    func() time.Time
}

// NewAdvisor creates an earnings advisor. oracle may be nil; history-based
// insights are still produced then.
func NewAdvisor(st store.Accessor, oracle ZoneOracle, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{store: st, oracle: oracle, logger: logger, now: time.Now}
}

// Request identifies the driver asking for guidance.
type Request struct {
	UserID int64
	City   string
}

// Advise is the advisor as a pipeline stage.
func (a *Advisor) Advise(ctx context.Context, req Request) fn.Result[Advice] {
	reads := fn.FanOutResult(
		func() fn.Result[any] { return anyResult(fn.FromPair(a.store.TripHistory(ctx, req.UserID, 30))) },
		func() fn.Result[any] { return anyResult(fn.FromPair(a.store.TripStats(ctx, req.UserID, 30))) },
	)
	vals, err := reads.Unwrap()
	if err != nil {
		return fn.Errf[Advice]("earnings: advise reads: %w", err)
	}
	trips, _ := vals[0].([]domain.TripRecord)
	stats := vals[1].(domain.TripStatistics)

	now := a.now()
	bucket := BucketFor(now.Hour())
	adv := Advice{Bucket: bucket, Stats: stats}

	city := req.City
	if city == "" {
		city = fallbackCity
	}
	lat, lng := locationFrom(trips)
	if a.oracle != nil {
		zones, err := a.oracle.NearbyZones(ctx, city, lat, lng, zoneTypesByBucket[bucket])
		if err != nil {
			a.logger.Warn("zone oracle unavailable, serving history-only recommendations",
				"user_id", req.UserID, "city", city, "error", err)
			adv.Degraded = true
		} else {
			adv.Zones = rankZones(zones, bucket)
			if len(adv.Zones) > 0 {
				best := adv.Zones[0]
				adv.Headline = fmt.Sprintf("Head to %s. Expected earnings: ₹%.0f", best.Name, best.ExpectedEarnings)
			}
		}
	} else {
		adv.Degraded = true
	}

	adv.Recommendations = zoneRecommendations(adv.Zones)
	adv.Recommendations = append(adv.Recommendations, historyRecommendations(stats)...)
	if peak := peakHourRecommendation(now.Hour()); peak != nil {
		adv.Recommendations = append(adv.Recommendations, *peak)
	}
	return fn.Ok(adv)
}

// zoneRecommendations turns the ranked picks into recommendation items so the
// top zones surface in action items alongside the history rules.
func zoneRecommendations(picks []ZonePick) []domain.RecommendationItem {
	return fn.Map(picks, func(p ZonePick) domain.RecommendationItem {
		return domain.RecommendationItem{
			Type:        "high_demand_zone",
			Title:       fmt.Sprintf("Head to %s", p.Name),
			Description: fmt.Sprintf("Expected earnings: ₹%.0f", p.ExpectedEarnings),
			Detail:      map[string]any{"zone": p},
		}
	})
}

func locationFrom(trips []domain.TripRecord) (float64, float64) {
	for _, t := range trips {
		if t.EndLat != 0 || t.EndLng != 0 {
			return t.EndLat, t.EndLng
		}
	}
	return fallbackLat, fallbackLng
}

func rankZones(zones []domain.Zone, bucket TimeBucket) []ZonePick {
	mult := earningsMultiplier[bucket]
	picks := fn.Map(zones, func(z domain.Zone) ZonePick {
		conf := z.Rating * 20
		if conf > 100 {
			conf = 100
		}
		return ZonePick{
			Zone:             z,
			Confidence:       conf,
			ExpectedEarnings: baseZoneEarnings * mult,
			Reason:           zoneReasons[bucket][z.Type],
		}
	})
	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].Confidence != picks[j].Confidence {
			return picks[i].Confidence > picks[j].Confidence
		}
		return picks[i].DistanceKm < picks[j].DistanceKm
	})
	return fn.Take(picks, 3)
}

func historyRecommendations(stats domain.TripStatistics) []domain.RecommendationItem {
	var recs []domain.RecommendationItem
	if stats.TotalTrips == 0 {
		return recs
	}
	if stats.AvgEarnings < 100 {
		recs = append(recs, domain.RecommendationItem{
			Type:        "earnings",
			Title:       "Increase Trip Distance",
			Description: fmt.Sprintf("Your average earning per trip is ₹%.0f. Longer airport or outstation trips pay better per hour.", stats.AvgEarnings),
		})
	}
	if stats.TotalEarnings > 0 && stats.NetEarnings < 0.6*stats.TotalEarnings {
		recs = append(recs, domain.RecommendationItem{
			Type:        "costs",
			Title:       "Reduce Operating Costs",
			Description: "Fuel and tolls are eating into your earnings. Plan routes to avoid tolls and refuel at cheaper pumps.",
		})
	}
	return recs
}

func peakHourRecommendation(hour int) *domain.RecommendationItem {
	switch {
	case hour >= 5 && hour <= 8:
		return &domain.RecommendationItem{
			Type:        "peak_hour",
			Title:       "Morning Peak Hour",
			Description: "High demand for office commuters. Focus on transit stations and business districts.",
		}
	case hour >= 17 && hour <= 20:
		return &domain.RecommendationItem{
			Type:        "peak_hour",
			Title:       "Evening Peak Hour",
			Description: "High demand for return commutes. Target residential areas and entertainment zones.",
		}
	}
	return nil
}

func anyResult[T any](r fn.Result[T]) fn.Result[any] {
	v, err := r.Unwrap()
	if err != nil {
		return fn.Err[any](err)
	}
	return fn.Ok[any](v)
}
