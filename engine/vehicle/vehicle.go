// Package vehicle assesses the driver's active vehicle: compliance expiries,
// service schedule, and the latest diagnostic check. Rules run in a fixed
// order so alert priority is stable across runs.
package vehicle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/store"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

// Report is the advisor output for one assessment run.
type Report struct {
	HasVehicle      bool                        `json:"has_vehicle"`
	Vehicle         *domain.VehicleProfile      `json:"vehicle,omitempty"`
	LatestCheck     *domain.VehicleHealthCheck  `json:"latest_check,omitempty"`
	Alerts          []domain.Alert              `json:"alerts"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	Summary         string                      `json:"summary"`
}

// Advisor runs the diagnostic rules over stored vehicle state.
type Advisor struct {
	store  store.Accessor
	logger *slog.Logger
	now    func() time.Time
}

// NewAdvisor creates a vehicle advisor.
func NewAdvisor(st store.Accessor, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{store: st, logger: logger, now: time.Now}
}

// Request identifies the driver being assessed.
type Request struct {
	UserID int64
}

// Assess is the advisor as a pipeline stage.
func (a *Advisor) Assess(ctx context.Context, req Request) fn.Result[Report] {
	reads := fn.FanOutResult(
		func() fn.Result[any] { return anyResult(fn.FromPair(a.store.VehicleInfo(ctx, req.UserID))) },
		func() fn.Result[any] { return anyResult(fn.FromPair(a.store.LatestVehicleCheck(ctx, req.UserID))) },
		func() fn.Result[any] { return anyResult(fn.FromPair(a.store.TripHistory(ctx, req.UserID, 7))) },
	)
	vals, err := reads.Unwrap()
	if err != nil {
		return fn.Errf[Report]("vehicle: assess reads: %w", err)
	}
	vehicle, _ := vals[0].(*domain.VehicleProfile)
	check, _ := vals[1].(*domain.VehicleHealthCheck)
	trips, _ := vals[2].([]domain.TripRecord)

	if vehicle == nil {
		return fn.Ok(Report{
			Summary: "I don't have your vehicle details yet. Please add your vehicle so I can track insurance, service schedules, and health checks for you.",
		})
	}
	return fn.Ok(a.report(vehicle, check, trips))
}

func (a *Advisor) report(v *domain.VehicleProfile, check *domain.VehicleHealthCheck, trips []domain.TripRecord) Report {
	r := Report{HasVehicle: true, Vehicle: v, LatestCheck: check}
	now := a.now()

	// Compliance expiries first: they carry legal risk.
	if !v.InsuranceExpiry.IsZero() {
		days := int(v.InsuranceExpiry.Sub(now).Hours() / 24)
		switch {
		case days < 0:
			r.Alerts = append(r.Alerts, domain.Alert{
				Type: "insurance", Priority: domain.PriorityCritical,
				Message: "Your vehicle insurance has expired. Renew it before your next trip.",
			})
		case days < 30:
			r.Alerts = append(r.Alerts, domain.Alert{
				Type: "insurance", Priority: domain.PriorityHigh,
				Message: fmt.Sprintf("Your vehicle insurance is expiring in %d days.", days),
			})
		}
	}

	// Service schedule.
	if v.NextServiceDueKm > 0 {
		gap := v.NextServiceDueKm - v.CurrentOdometerKm
		switch {
		case gap <= 0:
			r.Alerts = append(r.Alerts, domain.Alert{
				Type: "maintenance", Priority: domain.PriorityHigh,
				Message: "Vehicle service is overdue. Book a service slot soon.",
			})
		case gap < 500:
			r.Alerts = append(r.Alerts, domain.Alert{
				Type: "maintenance", Priority: domain.PriorityMedium,
				Message: fmt.Sprintf("Vehicle service due in %.0f km.", gap),
			})
		}
	}

	if check != nil {
		a.applyCheckRules(&r, check)
	} else {
		r.Recommendations = append(r.Recommendations, domain.RecommendationItem{
			Type:        "diagnostic",
			Title:       "Upload Vehicle Photos",
			Description: "Share photos of your vehicle for an initial diagnostic and a baseline health score.",
		})
	}

	// Usage intensity over the trailing week.
	if len(trips) > 0 {
		avgDaily := float64(len(trips)) / 7
		if avgDaily > 20 {
			r.Recommendations = append(r.Recommendations, domain.RecommendationItem{
				Type:  "health",
				Title: "High Work Intensity Detected",
				Description: fmt.Sprintf("You are averaging %.1f trips per day. Take regular breaks to avoid burnout.",
					avgDaily),
			})
		}
	}

	r.Summary = summarize(r)
	return r
}

func (a *Advisor) applyCheckRules(r *Report, check *domain.VehicleHealthCheck) {
	switch {
	case check.SeverityScore > 70:
		r.Alerts = append(r.Alerts, domain.Alert{
			Type: "diagnostic", Priority: domain.PriorityCritical,
			Message: fmt.Sprintf("Latest health check shows critical issues (severity %.0f/100).", check.SeverityScore),
		})
	case check.SeverityScore > 40:
		r.Alerts = append(r.Alerts, domain.Alert{
			Type: "diagnostic", Priority: domain.PriorityHigh,
			Message: fmt.Sprintf("Latest health check flagged issues needing attention (severity %.0f/100).", check.SeverityScore),
		})
	}

	if check.ImmediateActionRequired {
		desc := check.IssueDescription
		if desc == "" {
			desc = "The latest diagnostic flagged an issue that needs a mechanic before further trips."
		}
		r.Recommendations = append(r.Recommendations, domain.RecommendationItem{
			Type:        "urgent",
			Title:       "Immediate Attention Required",
			Description: desc,
		})
	}
	if check.TireCondition.NeedsAttention() {
		r.Recommendations = append(r.Recommendations, domain.RecommendationItem{
			Type:        "maintenance",
			Title:       "Tire Replacement Needed",
			Description: "Tire condition is below safe levels. Worn tires raise braking distance and puncture risk.",
		})
	}
	if check.EngineOilLevel.NeedsAttention() {
		r.Recommendations = append(r.Recommendations, domain.RecommendationItem{
			Type:        "maintenance",
			Title:       "Engine Oil Top-up",
			Description: "Engine oil is low or degraded. Top up or replace to avoid engine wear.",
		})
	}
	if check.BrakeCondition.NeedsAttention() {
		r.Recommendations = append(r.Recommendations, domain.RecommendationItem{
			Type:        "maintenance",
			Title:       "Brake Service Required",
			Description: "Brake condition needs attention. Get pads and fluid inspected this week.",
		})
	}
}

func summarize(r Report) string {
	critical := fn.Filter(r.Alerts, func(a domain.Alert) bool { return a.Priority == domain.PriorityCritical })
	switch {
	case len(critical) > 0:
		return fmt.Sprintf("Your vehicle needs urgent attention: %s", critical[0].Message)
	case len(r.Alerts) > 0:
		return fmt.Sprintf("Your vehicle is mostly fine, with %d item(s) to watch: %s", len(r.Alerts), r.Alerts[0].Message)
	default:
		return "Your vehicle looks in good shape. No compliance or health issues found."
	}
}

func anyResult[T any](r fn.Result[T]) fn.Result[any] {
	v, err := r.Unwrap()
	if err != nil {
		return fn.Err[any](err)
	}
	return fn.Ok[any](v)
}
