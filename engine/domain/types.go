// Package domain defines core domain types, constants, and validation for the
// Sarathi engine pipeline. Advisors and collaborators exchange these types;
// the package itself stays dependency-free.
package domain

import "time"

// Intent is the coarse category a free-text query is classified into.
type Intent string

const (
	IntentAction    Intent = "action"
	IntentEarnings  Intent = "earnings"
	IntentVehicle   Intent = "vehicle"
	IntentFinancial Intent = "financial"
	IntentGeneral   Intent = "general"
)

// ValidIntents is the closed set of recognised intents. Anything outside it
// is forced to IntentGeneral at the classification boundary.
var ValidIntents = map[Intent]bool{
	IntentAction: true, IntentEarnings: true, IntentVehicle: true,
	IntentFinancial: true, IntentGeneral: true,
}

// UserProfile carries the caller-supplied profile for a request.
type UserProfile struct {
	City                  string  `json:"city"`
	VehicleType           string  `json:"vehicle_type"`
	MonthlyIncomeTarget   float64 `json:"monthly_income_target"`
	MonthlyExpenseAverage float64 `json:"monthly_expense_average"`
	PreferredLanguage     string  `json:"preferred_language"`
}

// TripRecord is a single logged trip.
type TripRecord struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	StartLocation string    `json:"start_location"`
	EndLocation   string    `json:"end_location"`
	StartLat      float64   `json:"start_lat,omitempty"`
	StartLng      float64   `json:"start_lng,omitempty"`
	EndLat        float64   `json:"end_lat,omitempty"`
	EndLng        float64   `json:"end_lng,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time,omitzero"`
	DurationMin   float64   `json:"duration_minutes,omitempty"`
	DistanceKm    float64   `json:"distance_km,omitempty"`
	Earnings      float64   `json:"earnings"`
	FuelCost      float64   `json:"fuel_cost"`
	TollCost      float64   `json:"toll_cost"`
	OtherExpenses float64   `json:"other_expenses"`
	NetEarnings   float64   `json:"net_earnings"`
	Platform      string    `json:"platform,omitempty"`
	ZoneRating    float64   `json:"zone_rating,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecomputeNet derives net earnings from the cost fields. Stored net values
// are never trusted: call this whenever any cost field changes.
func (t *TripRecord) RecomputeNet() {
	t.NetEarnings = t.Earnings - (t.FuelCost + t.TollCost + t.OtherExpenses)
}

// TripStatistics aggregates trips over a trailing window.
type TripStatistics struct {
	TotalTrips    int     `json:"total_trips"`
	TotalEarnings float64 `json:"total_earnings"`
	TotalExpenses float64 `json:"total_expenses"`
	AvgEarnings   float64 `json:"avg_earnings"`
	NetEarnings   float64 `json:"net_earnings"`
}

// VehicleProfile describes the driver's active vehicle.
type VehicleProfile struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	VehicleNumber    string    `json:"vehicle_number"`
	VehicleType      string    `json:"vehicle_type"`
	Make             string    `json:"make,omitempty"`
	Model            string    `json:"model,omitempty"`
	CurrentOdometerKm float64  `json:"current_odometer_km"`
	InsuranceExpiry  time.Time `json:"insurance_expiry,omitzero"`
	PermitExpiry     time.Time `json:"permit_expiry,omitzero"`
	FitnessExpiry    time.Time `json:"fitness_expiry,omitzero"`
	PUCExpiry        time.Time `json:"puc_expiry,omitzero"`
	LastServiceDate  time.Time `json:"last_service_date,omitzero"`
	LastServiceOdoKm float64   `json:"last_service_odometer,omitempty"`
	NextServiceDueKm float64   `json:"next_service_due_km,omitempty"`
}

// Condition grades a vehicle component.
type Condition string

const (
	ConditionGood     Condition = "good"
	ConditionFair     Condition = "fair"
	ConditionPoor     Condition = "poor"
	ConditionCritical Condition = "critical"
)

// NeedsAttention reports whether the condition warrants a recommendation.
func (c Condition) NeedsAttention() bool {
	return c == ConditionPoor || c == ConditionCritical
}

// VehicleHealthCheck is one diagnostic record for a vehicle.
type VehicleHealthCheck struct {
	ID                      int64     `json:"id"`
	VehicleID               int64     `json:"vehicle_id"`
	CheckType               string    `json:"check_type"`
	SeverityScore           float64   `json:"severity_score"` // 0-100, higher is worse
	TireCondition           Condition `json:"tire_condition,omitempty"`
	EngineOilLevel          Condition `json:"engine_oil_level,omitempty"`
	BrakeCondition          Condition `json:"brake_condition,omitempty"`
	BatteryHealth           Condition `json:"battery_health,omitempty"`
	BodyDamage              Condition `json:"body_damage,omitempty"`
	ImmediateActionRequired bool      `json:"immediate_action_required"`
	IssueDescription        string    `json:"issue_description,omitempty"`
	Recommendations         []string  `json:"recommendations,omitempty"`
	OdometerReadingKm       float64   `json:"odometer_reading,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

const (
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalPaused     GoalStatus = "paused"
	GoalCancelled  GoalStatus = "cancelled"
)

// Goal is a savings target with a progress ledger.
type Goal struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	Name                string     `json:"goal_name"`
	TargetAmount        float64    `json:"target_amount"`
	CurrentAmount       float64    `json:"current_amount"`
	MonthlyContribution float64    `json:"monthly_contribution"`
	TargetDate          time.Time  `json:"target_date,omitzero"`
	Status              GoalStatus `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         time.Time  `json:"completed_at,omitzero"`
}

// PercentComplete is current/target, clamped to 100.
func (g Goal) PercentComplete() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	pct := g.CurrentAmount / g.TargetAmount * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// GoalProgressEntry is an append-only ledger row; never mutated once written.
type GoalProgressEntry struct {
	ID            int64     `json:"id"`
	GoalID        int64     `json:"goal_id"`
	AmountAdded   float64   `json:"amount_added"`
	PreviousTotal float64   `json:"previous_total"`
	NewTotal      float64   `json:"new_total"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RiskLevel classifies an investment's risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Investment is one holding in the driver's portfolio.
type Investment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Name            string    `json:"investment_name"`
	Type            string    `json:"investment_type"`
	PrincipalAmount float64   `json:"principal_amount"`
	CurrentValue    float64   `json:"current_value"`
	InvestedAmount  float64   `json:"invested_amount"`
	RiskLevel       RiskLevel `json:"risk_level"`
	IsRecurring     bool      `json:"is_recurring"`
	RecurringAmount float64   `json:"recurring_amount,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// TotalReturns is current value minus total invested.
func (i Investment) TotalReturns() float64 {
	return i.CurrentValue - i.InvestedAmount
}

// ReturnsPercentage is total returns over invested amount, 0 when nothing
// has been invested.
func (i Investment) ReturnsPercentage() float64 {
	if i.InvestedAmount <= 0 {
		return 0
	}
	return i.TotalReturns() / i.InvestedAmount * 100
}

// RecommendationItem is the unit the Narrator consumes. Order within a list
// is significant: most important first.
type RecommendationItem struct {
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Detail      map[string]any `json:"detail,omitempty"`
}

// AlertPriority orders alerts for delivery.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// Alert is a transient advisory produced fresh each request.
type Alert struct {
	Type     string        `json:"type"`
	Priority AlertPriority `json:"priority"`
	Message  string        `json:"message"`
}

// Zone is a geographic demand candidate returned by the Zone Oracle.
type Zone struct {
	Name       string  `json:"zone_name"`
	Type       string  `json:"zone_type,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distance_km"`
	Rating     float64 `json:"rating"`
}

// InstrumentRate is a rate quote from the Market Data Provider.
type InstrumentRate struct {
	InstrumentType string  `json:"instrument_type"`
	AnnualRate     float64 `json:"annual_rate"`
	TenureMonths   int     `json:"tenure_months"`
	ProviderName   string  `json:"provider_name"`
}
