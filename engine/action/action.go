// Package action executes write operations extracted from free-text queries:
// logging trips, recording vehicle issues, and managing goals. The dispatcher
// is a hard error boundary: callers always get a usable response, never an
// error escaping to the user.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/goal"
	"github.com/SarathiAI/sarathi-engine/engine/store"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

// Type discriminates the operations the extractor can produce.
type Type string

const (
	TypeLogTrip      Type = "log_trip"
	TypeVehicleCheck Type = "vehicle_check"
	TypeCreateGoal   Type = "create_goal"
	TypeUpdateGoal   Type = "update_goal"
	TypeQuery        Type = "query"
)

// TripDraft is the extracted shape of a trip to log.
type TripDraft struct {
	StartLocation string  `json:"start_location"`
	EndLocation   string  `json:"end_location"`
	Earnings      float64 `json:"earnings"`
	FuelCost      float64 `json:"fuel_cost"`
	TollCost      float64 `json:"toll_cost"`
	OtherExpenses float64 `json:"other_expenses"`
	DistanceKm    float64 `json:"distance_km"`
	Platform      string  `json:"platform"`
}

// IssueDraft is a reported vehicle problem.
type IssueDraft struct {
	Description string `json:"description"`
	Severity    string `json:"severity"` // low, medium, high
}

// GoalDraft is the extracted shape of a goal to create.
type GoalDraft struct {
	Name                string  `json:"goal_name"`
	TargetAmount        float64 `json:"target_amount"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	TargetDate          string  `json:"target_date,omitempty"` // YYYY-MM-DD
}

// ProgressDraft is an extracted goal progress update.
type ProgressDraft struct {
	GoalID int64   `json:"goal_id"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

// Request is the structured form of an action query. Exactly one draft field
// matching Type is set; TypeQuery carries none.
type Request struct {
	Type     Type           `json:"action"`
	Trip     *TripDraft     `json:"trip,omitempty"`
	Issue    *IssueDraft    `json:"issue,omitempty"`
	Goal     *GoalDraft     `json:"goal,omitempty"`
	Progress *ProgressDraft `json:"progress,omitempty"`
}

// Extractor turns a free-text query into a structured action request.
// Unparseable input must come back as TypeQuery, not an error.
type Extractor interface {
	Extract(ctx context.Context, query string) fn.Result[Request]
}

// Publisher emits domain events after successful writes. Best effort: a
// publish failure never fails the action.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Event subjects emitted after successful writes.
const (
	SubjectTripLogged     = "sarathi.trip.logged"
	SubjectVehicleChecked = "sarathi.vehicle.checked"
	SubjectGoalCreated    = "sarathi.goal.created"
	SubjectGoalUpdated    = "sarathi.goal.updated"
)

// Outcome is what the dispatcher hands to the narrator.
type Outcome struct {
	Performed       Type                        `json:"performed"`
	ResponseText    string                      `json:"response_text"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	ActionItems     []string                    `json:"action_items"`
}

// Dispatcher extracts and executes actions.
type Dispatcher struct {
	store     store.Accessor
	goals     *goal.Engine
	extractor Extractor
	events    Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher. events may be nil.
func NewDispatcher(st store.Accessor, goals *goal.Engine, ex Extractor, events Publisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: st, goals: goals, extractor: ex, events: events, logger: logger, now: time.Now}
}

// Dispatch runs the extract-then-execute sequence for one query. Errors are
// absorbed here into an apologetic outcome with empty lists.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, query string) fn.Result[Outcome] {
	req := Request{Type: TypeQuery}
	if d.extractor != nil {
		req = d.extractor.Extract(ctx, query).UnwrapOr(req)
	}
	out, err := d.execute(ctx, userID, req)
	if err != nil {
		d.logger.Error("action failed", "user_id", userID, "action", req.Type, "error", err)
		return fn.Ok(Outcome{
			Performed:       req.Type,
			ResponseText:    "Sorry, I couldn't complete that action right now. Please try again.",
			Recommendations: []domain.RecommendationItem{},
			ActionItems:     []string{},
		})
	}
	return fn.Ok(out)
}

func (d *Dispatcher) execute(ctx context.Context, userID int64, req Request) (Outcome, error) {
	switch req.Type {
	case TypeLogTrip:
		return d.logTrip(ctx, userID, req.Trip)
	case TypeVehicleCheck:
		return d.vehicleCheck(ctx, userID, req.Issue)
	case TypeCreateGoal:
		return d.createGoal(ctx, userID, req.Goal)
	case TypeUpdateGoal:
		return d.updateGoal(ctx, userID, req.Progress)
	default:
		return Outcome{
			Performed:    TypeQuery,
			ResponseText: "I can log trips, record vehicle issues, and manage your savings goals. Tell me what you'd like to do.",
		}, nil
	}
}

func (d *Dispatcher) logTrip(ctx context.Context, userID int64, draft *TripDraft) (Outcome, error) {
	if draft == nil || draft.Earnings < 0 {
		return Outcome{}, domain.NewValidationError("trip", "", domain.ErrInvalidTrip)
	}
	trip := domain.TripRecord{
		UserID:        userID,
		StartLocation: draft.StartLocation,
		EndLocation:   draft.EndLocation,
		StartTime:     d.now(),
		DistanceKm:    draft.DistanceKm,
		Earnings:      draft.Earnings,
		FuelCost:      draft.FuelCost,
		TollCost:      draft.TollCost,
		OtherExpenses: draft.OtherExpenses,
		Platform:      draft.Platform,
	}
	trip.RecomputeNet()
	created, err := d.store.CreateTrip(ctx, trip)
	if err != nil {
		return Outcome{}, fmt.Errorf("action: log trip: %w", err)
	}
	d.publish(ctx, SubjectTripLogged, created)
	return Outcome{
		Performed: TypeLogTrip,
		ResponseText: fmt.Sprintf("Trip logged: ₹%.0f earned, ₹%.0f net after costs.",
			created.Earnings, created.NetEarnings),
	}, nil
}

var severityScores = map[string]float64{"low": 3, "medium": 5, "high": 8}

func (d *Dispatcher) vehicleCheck(ctx context.Context, userID int64, draft *IssueDraft) (Outcome, error) {
	if draft == nil {
		return Outcome{}, domain.NewValidationError("issue", "", domain.ErrExtractionFailed)
	}
	severity := strings.ToLower(draft.Severity)
	score, ok := severityScores[severity]
	if !ok {
		severity, score = "medium", severityScores["medium"]
	}
	check := domain.VehicleHealthCheck{
		CheckType:               "ai_diagnosis",
		SeverityScore:           score,
		ImmediateActionRequired: severity == "high",
		IssueDescription:        draft.Description,
		Recommendations:         issueRecommendations(draft.Description),
	}
	created, err := d.store.CreateVehicleCheck(ctx, userID, check)
	if errors.Is(err, domain.ErrNoActiveVehicle) {
		return Outcome{
			Performed:    TypeVehicleCheck,
			ResponseText: "I noted the issue, but you haven't added a vehicle yet. Add your vehicle details so I can track its health.",
		}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("action: vehicle check: %w", err)
	}
	d.publish(ctx, SubjectVehicleChecked, created)
	return Outcome{
		Performed:    TypeVehicleCheck,
		ResponseText: fmt.Sprintf("Noted the %s severity issue with your vehicle. Here's what I suggest.", severity),
		Recommendations: fn.Map(created.Recommendations, func(r string) domain.RecommendationItem {
			return domain.RecommendationItem{Type: "maintenance", Title: r}
		}),
		ActionItems: created.Recommendations,
	}, nil
}

func issueRecommendations(description string) []string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "brake"):
		return []string{
			"Get brake pads inspected immediately",
			"Check brake fluid level",
			"Avoid heavy loads until the brakes are serviced",
		}
	case strings.Contains(desc, "engine") || strings.Contains(desc, "light"):
		return []string{
			"Get an OBD scan to read the error code",
			"Do not ignore a persistent engine warning light",
		}
	default:
		return []string{
			"Visit a trusted mechanic for an inspection",
			"Monitor the issue and note when it occurs",
		}
	}
}

func (d *Dispatcher) createGoal(ctx context.Context, userID int64, draft *GoalDraft) (Outcome, error) {
	if draft == nil {
		return Outcome{}, domain.NewValidationError("goal", "", domain.ErrInvalidGoal)
	}
	var targetDate time.Time
	if draft.TargetDate != "" {
		if t, err := time.Parse("2006-01-02", draft.TargetDate); err == nil {
			targetDate = t
		}
	}
	created, err := d.goals.Create(ctx, userID, draft.Name, draft.TargetAmount, draft.MonthlyContribution, targetDate)
	if err != nil {
		return Outcome{}, fmt.Errorf("action: create goal: %w", err)
	}
	d.publish(ctx, SubjectGoalCreated, created)
	return Outcome{
		Performed: TypeCreateGoal,
		ResponseText: fmt.Sprintf("Goal %q created with a target of ₹%.0f. I'll track your progress.",
			created.Name, created.TargetAmount),
	}, nil
}

func (d *Dispatcher) updateGoal(ctx context.Context, userID int64, draft *ProgressDraft) (Outcome, error) {
	if draft == nil {
		return Outcome{}, domain.NewValidationError("progress", "", domain.ErrInvalidGoal)
	}
	updated, entry, err := d.goals.AddProgress(ctx, userID, draft.GoalID, draft.Amount, draft.Note)
	if err != nil {
		return Outcome{}, fmt.Errorf("action: update goal: %w", err)
	}
	d.publish(ctx, SubjectGoalUpdated, entry)
	text := fmt.Sprintf("Added ₹%.0f to %q. You're at %.0f%% of your target.",
		entry.AmountAdded, updated.Name, updated.PercentComplete())
	if updated.Status == domain.GoalCompleted {
		text = fmt.Sprintf("Congratulations! %q is complete. ₹%.0f saved in total.",
			updated.Name, updated.CurrentAmount)
	}
	return Outcome{Performed: TypeUpdateGoal, ResponseText: text}, nil
}

func (d *Dispatcher) publish(ctx context.Context, subject string, payload any) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(ctx, subject, payload); err != nil {
		d.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}
