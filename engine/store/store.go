// Package store provides the data accessor the advisors read from and the
// action dispatcher writes through. A SQLite implementation backs the binary;
// an in-memory implementation backs tests.
package store

import (
	"context"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
)

// Accessor is the persistence contract consumed by the engine. Reads for a
// missing optional entity (vehicle, health check) return (nil, nil); lookups
// by id return domain.ErrNotFound. Mutations are atomic per call.
type Accessor interface {
	// TripHistory returns trips in the trailing window, most recent first.
	TripHistory(ctx context.Context, userID int64, days int) ([]domain.TripRecord, error)
	// TripStats aggregates the same window.
	TripStats(ctx context.Context, userID int64, days int) (domain.TripStatistics, error)
	VehicleInfo(ctx context.Context, userID int64) (*domain.VehicleProfile, error)
	LatestVehicleCheck(ctx context.Context, userID int64) (*domain.VehicleHealthCheck, error)
	// Goals returns in-progress and completed goals.
	Goals(ctx context.Context, userID int64) ([]domain.Goal, error)
	GoalByID(ctx context.Context, userID, goalID int64) (domain.Goal, error)
	// Investments returns active investments only.
	Investments(ctx context.Context, userID int64) ([]domain.Investment, error)
	ActiveAlerts(ctx context.Context, userID int64) ([]domain.Alert, error)

	CreateTrip(ctx context.Context, trip domain.TripRecord) (domain.TripRecord, error)
	// CreateVehicleCheck records a check against the user's active vehicle;
	// domain.ErrNoActiveVehicle when there is none.
	CreateVehicleCheck(ctx context.Context, userID int64, check domain.VehicleHealthCheck) (domain.VehicleHealthCheck, error)
	CreateGoal(ctx context.Context, goal domain.Goal) (domain.Goal, error)
	// ApplyGoalProgress persists an updated goal and its ledger entry in one
	// transaction. The caller (goal engine) owns the arithmetic.
	ApplyGoalProgress(ctx context.Context, goal domain.Goal, entry domain.GoalProgressEntry) (domain.Goal, domain.GoalProgressEntry, error)
}
