package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	_ "modernc.org/sqlite"
)

// SQLite implements Accessor on a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. Pass ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// modernc sqlite is single-writer; serialise access through one conn.
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	start_location TEXT NOT NULL,
	end_location TEXT NOT NULL,
	start_lat REAL, start_lng REAL, end_lat REAL, end_lng REAL,
	start_time TEXT NOT NULL,
	end_time TEXT,
	duration_minutes REAL,
	distance_km REAL,
	earnings REAL NOT NULL,
	fuel_cost REAL NOT NULL DEFAULT 0,
	toll_cost REAL NOT NULL DEFAULT 0,
	other_expenses REAL NOT NULL DEFAULT 0,
	net_earnings REAL NOT NULL,
	platform TEXT,
	zone_rating REAL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trips_user_created ON trips(user_id, created_at);

CREATE TABLE IF NOT EXISTS vehicles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	vehicle_number TEXT NOT NULL,
	vehicle_type TEXT NOT NULL,
	make TEXT, model TEXT,
	current_odometer_km REAL NOT NULL DEFAULT 0,
	insurance_expiry TEXT, permit_expiry TEXT, fitness_expiry TEXT, puc_expiry TEXT,
	last_service_date TEXT,
	last_service_odometer REAL,
	next_service_due_km REAL,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS vehicle_checks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vehicle_id INTEGER NOT NULL REFERENCES vehicles(id),
	check_type TEXT NOT NULL,
	severity_score REAL NOT NULL DEFAULT 0,
	tire_condition TEXT, engine_oil_level TEXT, brake_condition TEXT,
	battery_health TEXT, body_damage TEXT,
	immediate_action_required INTEGER NOT NULL DEFAULT 0,
	issue_description TEXT,
	recommendations TEXT,
	odometer_reading REAL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	goal_name TEXT NOT NULL,
	target_amount REAL NOT NULL,
	current_amount REAL NOT NULL DEFAULT 0,
	monthly_contribution REAL NOT NULL DEFAULT 0,
	target_date TEXT,
	status TEXT NOT NULL DEFAULT 'in_progress',
	created_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS goal_progress (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	goal_id INTEGER NOT NULL REFERENCES goals(id),
	amount_added REAL NOT NULL,
	previous_total REAL NOT NULL,
	new_total REAL NOT NULL,
	note TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS investments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	investment_name TEXT NOT NULL,
	investment_type TEXT NOT NULL,
	principal_amount REAL NOT NULL,
	current_value REAL NOT NULL,
	invested_amount REAL NOT NULL,
	risk_level TEXT NOT NULL DEFAULT 'low',
	is_recurring INTEGER NOT NULL DEFAULT 0,
	recurring_amount REAL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	alert_type TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'medium',
	message TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL
);
`

func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Fixed-width UTC layout so string comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func fmtTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func windowStart(days int) string {
	return time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
}

func (s *SQLite) TripHistory(ctx context.Context, userID int64, days int) ([]domain.TripRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, start_location, end_location,
		       COALESCE(start_lat,0), COALESCE(start_lng,0), COALESCE(end_lat,0), COALESCE(end_lng,0),
		       start_time, end_time, COALESCE(duration_minutes,0), COALESCE(distance_km,0),
		       earnings, fuel_cost, toll_cost, other_expenses, net_earnings,
		       COALESCE(platform,''), COALESCE(zone_rating,0), created_at
		FROM trips WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC`, userID, windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("store: trip history: %w", err)
	}
	defer rows.Close()

	var trips []domain.TripRecord
	for rows.Next() {
		var t domain.TripRecord
		var startTime, createdAt string
		var endTime sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.StartLocation, &t.EndLocation,
			&t.StartLat, &t.StartLng, &t.EndLat, &t.EndLng,
			&startTime, &endTime, &t.DurationMin, &t.DistanceKm,
			&t.Earnings, &t.FuelCost, &t.TollCost, &t.OtherExpenses, &t.NetEarnings,
			&t.Platform, &t.ZoneRating, &createdAt); err != nil {
			return nil, fmt.Errorf("store: trip history scan: %w", err)
		}
		t.StartTime = parseTime(sql.NullString{String: startTime, Valid: true})
		t.EndTime = parseTime(endTime)
		t.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (s *SQLite) TripStats(ctx context.Context, userID int64, days int) (domain.TripStatistics, error) {
	var st domain.TripStatistics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(id),
		       COALESCE(SUM(earnings),0),
		       COALESCE(SUM(fuel_cost + toll_cost + other_expenses),0),
		       COALESCE(AVG(earnings),0)
		FROM trips WHERE user_id = ? AND created_at >= ?`,
		userID, windowStart(days)).
		Scan(&st.TotalTrips, &st.TotalEarnings, &st.TotalExpenses, &st.AvgEarnings)
	if err != nil {
		return st, fmt.Errorf("store: trip stats: %w", err)
	}
	st.NetEarnings = st.TotalEarnings - st.TotalExpenses
	return st, nil
}

func (s *SQLite) VehicleInfo(ctx context.Context, userID int64) (*domain.VehicleProfile, error) {
	var v domain.VehicleProfile
	var ins, permit, fitness, puc, lastSvc sql.NullString
	var lastOdo, nextDue sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, vehicle_number, vehicle_type, COALESCE(make,''), COALESCE(model,''),
		       current_odometer_km, insurance_expiry, permit_expiry, fitness_expiry, puc_expiry,
		       last_service_date, last_service_odometer, next_service_due_km
		FROM vehicles WHERE user_id = ? AND is_active = 1 LIMIT 1`, userID).
		Scan(&v.ID, &v.UserID, &v.VehicleNumber, &v.VehicleType, &v.Make, &v.Model,
			&v.CurrentOdometerKm, &ins, &permit, &fitness, &puc, &lastSvc, &lastOdo, &nextDue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: vehicle info: %w", err)
	}
	v.InsuranceExpiry = parseTime(ins)
	v.PermitExpiry = parseTime(permit)
	v.FitnessExpiry = parseTime(fitness)
	v.PUCExpiry = parseTime(puc)
	v.LastServiceDate = parseTime(lastSvc)
	v.LastServiceOdoKm = lastOdo.Float64
	v.NextServiceDueKm = nextDue.Float64
	return &v, nil
}

func (s *SQLite) LatestVehicleCheck(ctx context.Context, userID int64) (*domain.VehicleHealthCheck, error) {
	var c domain.VehicleHealthCheck
	var tire, oil, brake, battery, body, issue, recs sql.NullString
	var odo sql.NullFloat64
	var immediate int
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.vehicle_id, c.check_type, c.severity_score,
		       c.tire_condition, c.engine_oil_level, c.brake_condition,
		       c.battery_health, c.body_damage, c.immediate_action_required,
		       c.issue_description, c.recommendations, c.odometer_reading, c.created_at
		FROM vehicle_checks c JOIN vehicles v ON v.id = c.vehicle_id
		WHERE v.user_id = ?
		ORDER BY c.created_at DESC LIMIT 1`, userID).
		Scan(&c.ID, &c.VehicleID, &c.CheckType, &c.SeverityScore,
			&tire, &oil, &brake, &battery, &body, &immediate,
			&issue, &recs, &odo, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest vehicle check: %w", err)
	}
	c.TireCondition = domain.Condition(tire.String)
	c.EngineOilLevel = domain.Condition(oil.String)
	c.BrakeCondition = domain.Condition(brake.String)
	c.BatteryHealth = domain.Condition(battery.String)
	c.BodyDamage = domain.Condition(body.String)
	c.ImmediateActionRequired = immediate != 0
	c.IssueDescription = issue.String
	if recs.Valid && recs.String != "" {
		c.Recommendations = strings.Split(recs.String, "\n")
	}
	c.OdometerReadingKm = odo.Float64
	c.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
	return &c, nil
}

func (s *SQLite) Goals(ctx context.Context, userID int64) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, goal_name, target_amount, current_amount,
		       monthly_contribution, target_date, status, created_at, completed_at
		FROM goals WHERE user_id = ? AND status IN ('in_progress','completed')
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: goals: %w", err)
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanGoal(r rowScanner) (domain.Goal, error) {
	var g domain.Goal
	var target, completed sql.NullString
	var status, createdAt string
	if err := r.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&g.MonthlyContribution, &target, &status, &createdAt, &completed); err != nil {
		return g, fmt.Errorf("store: goal scan: %w", err)
	}
	g.TargetDate = parseTime(target)
	g.Status = domain.GoalStatus(status)
	g.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
	g.CompletedAt = parseTime(completed)
	return g, nil
}

func (s *SQLite) GoalByID(ctx context.Context, userID, goalID int64) (domain.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, goal_name, target_amount, current_amount,
		       monthly_contribution, target_date, status, created_at, completed_at
		FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Goal{}, domain.ErrNotFound
	}
	return g, err
}

func (s *SQLite) Investments(ctx context.Context, userID int64) ([]domain.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, investment_name, investment_type, principal_amount,
		       current_value, invested_amount, risk_level, is_recurring,
		       COALESCE(recurring_amount,0), status, created_at
		FROM investments WHERE user_id = ? AND status = 'active'`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: investments: %w", err)
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		var risk, createdAt string
		var recurring int
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.Type, &inv.PrincipalAmount,
			&inv.CurrentValue, &inv.InvestedAmount, &risk, &recurring,
			&inv.RecurringAmount, &inv.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("store: investment scan: %w", err)
		}
		inv.RiskLevel = domain.RiskLevel(risk)
		inv.IsRecurring = recurring != 0
		inv.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *SQLite) ActiveAlerts(ctx context.Context, userID int64) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_type, priority, message
		FROM alerts WHERE user_id = ? AND status = 'active'
		ORDER BY created_at DESC LIMIT 10`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: active alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var priority string
		if err := rows.Scan(&a.Type, &priority, &a.Message); err != nil {
			return nil, fmt.Errorf("store: alert scan: %w", err)
		}
		a.Priority = domain.AlertPriority(priority)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateTrip(ctx context.Context, trip domain.TripRecord) (domain.TripRecord, error) {
	trip.RecomputeNet()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now().UTC()
	}
	if trip.StartTime.IsZero() {
		trip.StartTime = trip.CreatedAt
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trips (user_id, start_location, end_location,
			start_lat, start_lng, end_lat, end_lng, start_time, end_time,
			duration_minutes, distance_km, earnings, fuel_cost, toll_cost,
			other_expenses, net_earnings, platform, zone_rating, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		trip.UserID, trip.StartLocation, trip.EndLocation,
		trip.StartLat, trip.StartLng, trip.EndLat, trip.EndLng,
		fmtTime(trip.StartTime), fmtTime(trip.EndTime),
		trip.DurationMin, trip.DistanceKm, trip.Earnings, trip.FuelCost, trip.TollCost,
		trip.OtherExpenses, trip.NetEarnings, trip.Platform, trip.ZoneRating,
		fmtTime(trip.CreatedAt))
	if err != nil {
		return trip, fmt.Errorf("store: create trip: %w", err)
	}
	trip.ID, _ = res.LastInsertId()
	return trip, nil
}

func (s *SQLite) CreateVehicleCheck(ctx context.Context, userID int64, check domain.VehicleHealthCheck) (domain.VehicleHealthCheck, error) {
	vehicle, err := s.VehicleInfo(ctx, userID)
	if err != nil {
		return check, err
	}
	if vehicle == nil {
		return check, domain.ErrNoActiveVehicle
	}
	check.VehicleID = vehicle.ID
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vehicle_checks (vehicle_id, check_type, severity_score,
			tire_condition, engine_oil_level, brake_condition, battery_health,
			body_damage, immediate_action_required, issue_description,
			recommendations, odometer_reading, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		check.VehicleID, check.CheckType, check.SeverityScore,
		string(check.TireCondition), string(check.EngineOilLevel), string(check.BrakeCondition),
		string(check.BatteryHealth), string(check.BodyDamage),
		boolToInt(check.ImmediateActionRequired), check.IssueDescription,
		strings.Join(check.Recommendations, "\n"), check.OdometerReadingKm,
		fmtTime(check.CreatedAt))
	if err != nil {
		return check, fmt.Errorf("store: create vehicle check: %w", err)
	}
	check.ID, _ = res.LastInsertId()
	return check, nil
}

func (s *SQLite) CreateGoal(ctx context.Context, goal domain.Goal) (domain.Goal, error) {
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, goal_name, target_amount, current_amount,
			monthly_contribution, target_date, status, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		goal.UserID, goal.Name, goal.TargetAmount, goal.CurrentAmount,
		goal.MonthlyContribution, fmtTime(goal.TargetDate), string(goal.Status),
		fmtTime(goal.CreatedAt))
	if err != nil {
		return goal, fmt.Errorf("store: create goal: %w", err)
	}
	goal.ID, _ = res.LastInsertId()
	return goal, nil
}

func (s *SQLite) ApplyGoalProgress(ctx context.Context, goal domain.Goal, entry domain.GoalProgressEntry) (domain.Goal, domain.GoalProgressEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goal, entry, fmt.Errorf("store: apply goal progress: %w", err)
	}
	defer tx.Rollback()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO goal_progress (goal_id, amount_added, previous_total, new_total, note, created_at)
		VALUES (?,?,?,?,?,?)`,
		entry.GoalID, entry.AmountAdded, entry.PreviousTotal, entry.NewTotal,
		entry.Note, fmtTime(entry.CreatedAt))
	if err != nil {
		return goal, entry, fmt.Errorf("store: goal progress insert: %w", err)
	}
	entry.ID, _ = res.LastInsertId()

	if _, err := tx.ExecContext(ctx, `
		UPDATE goals SET current_amount = ?, status = ?, completed_at = ?
		WHERE id = ? AND user_id = ?`,
		goal.CurrentAmount, string(goal.Status), fmtTime(goal.CompletedAt),
		goal.ID, goal.UserID); err != nil {
		return goal, entry, fmt.Errorf("store: goal update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return goal, entry, fmt.Errorf("store: apply goal progress commit: %w", err)
	}
	return goal, entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
