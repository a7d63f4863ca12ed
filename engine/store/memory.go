package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
)

// Memory is an in-memory Accessor used by tests and local development.
// Behaviour mirrors SQLite: same windows, orderings, and error shapes.
type Memory struct {
	mu sync.Mutex

	nextID   int64
	Trips    []domain.TripRecord
	Vehicles []domain.VehicleProfile
	Checks   []domain.VehicleHealthCheck
	GoalList []domain.Goal
	Progress []domain.GoalProgressEntry
	Holdings []domain.Investment
	Alerts   map[int64][]domain.Alert
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, Alerts: map[int64][]domain.Alert{}}
}

func (m *Memory) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *Memory) TripHistory(_ context.Context, userID int64, days int) ([]domain.TripRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	var out []domain.TripRecord
	for _, t := range m.Trips {
		if t.UserID == userID && !t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) TripStats(ctx context.Context, userID int64, days int) (domain.TripStatistics, error) {
	trips, err := m.TripHistory(ctx, userID, days)
	if err != nil {
		return domain.TripStatistics{}, err
	}
	var st domain.TripStatistics
	st.TotalTrips = len(trips)
	for _, t := range trips {
		st.TotalEarnings += t.Earnings
		st.TotalExpenses += t.FuelCost + t.TollCost + t.OtherExpenses
	}
	if st.TotalTrips > 0 {
		st.AvgEarnings = st.TotalEarnings / float64(st.TotalTrips)
	}
	st.NetEarnings = st.TotalEarnings - st.TotalExpenses
	return st, nil
}

func (m *Memory) vehicleOf(userID int64) *domain.VehicleProfile {
	for i := range m.Vehicles {
		if m.Vehicles[i].UserID == userID {
			v := m.Vehicles[i]
			return &v
		}
	}
	return nil
}

func (m *Memory) VehicleInfo(_ context.Context, userID int64) (*domain.VehicleProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vehicleOf(userID), nil
}

func (m *Memory) LatestVehicleCheck(_ context.Context, userID int64) (*domain.VehicleHealthCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vehicle := m.vehicleOf(userID)
	if vehicle == nil {
		return nil, nil
	}
	var latest *domain.VehicleHealthCheck
	for i := range m.Checks {
		c := m.Checks[i]
		if c.VehicleID != vehicle.ID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			cp := c
			latest = &cp
		}
	}
	return latest, nil
}

func (m *Memory) Goals(_ context.Context, userID int64) ([]domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Goal
	for _, g := range m.GoalList {
		if g.UserID == userID && (g.Status == domain.GoalInProgress || g.Status == domain.GoalCompleted) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GoalByID(_ context.Context, userID, goalID int64) (domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.GoalList {
		if g.ID == goalID && g.UserID == userID {
			return g, nil
		}
	}
	return domain.Goal{}, domain.ErrNotFound
}

func (m *Memory) Investments(_ context.Context, userID int64) ([]domain.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Investment
	for _, inv := range m.Holdings {
		if inv.UserID == userID && inv.Status == "active" {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *Memory) ActiveAlerts(_ context.Context, userID int64) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alerts := m.Alerts[userID]
	if len(alerts) > 10 {
		alerts = alerts[:10]
	}
	return alerts, nil
}

func (m *Memory) CreateTrip(_ context.Context, trip domain.TripRecord) (domain.TripRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip.RecomputeNet()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now()
	}
	if trip.StartTime.IsZero() {
		trip.StartTime = trip.CreatedAt
	}
	trip.ID = m.id()
	m.Trips = append(m.Trips, trip)
	return trip, nil
}

func (m *Memory) CreateVehicleCheck(_ context.Context, userID int64, check domain.VehicleHealthCheck) (domain.VehicleHealthCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vehicle := m.vehicleOf(userID)
	if vehicle == nil {
		return check, domain.ErrNoActiveVehicle
	}
	check.VehicleID = vehicle.ID
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now()
	}
	check.ID = m.id()
	m.Checks = append(m.Checks, check)
	return check, nil
}

func (m *Memory) CreateGoal(_ context.Context, goal domain.Goal) (domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now()
	}
	goal.ID = m.id()
	m.GoalList = append(m.GoalList, goal)
	return goal, nil
}

func (m *Memory) ApplyGoalProgress(_ context.Context, goal domain.Goal, entry domain.GoalProgressEntry) (domain.Goal, domain.GoalProgressEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.GoalList {
		if m.GoalList[i].ID == goal.ID && m.GoalList[i].UserID == goal.UserID {
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = time.Now()
			}
			entry.ID = m.id()
			m.GoalList[i] = goal
			m.Progress = append(m.Progress, entry)
			return goal, entry, nil
		}
	}
	return goal, entry, domain.ErrNotFound
}

// AddVehicle seeds a vehicle, assigning an id.
func (m *Memory) AddVehicle(v domain.VehicleProfile) domain.VehicleProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.id()
	m.Vehicles = append(m.Vehicles, v)
	return v
}

// AddInvestment seeds a holding, assigning an id.
func (m *Memory) AddInvestment(inv domain.Investment) domain.Investment {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.id()
	m.Holdings = append(m.Holdings, inv)
	return inv
}
