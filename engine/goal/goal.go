// Package goal manages savings goals: creation, progress accrual, and the
// pace projection the narrator turns into advice.
package goal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/store"
)

// Pace classifies progress against the target date.
type Pace string

const (
	PaceAhead   Pace = "ahead"
	PaceOnTrack Pace = "on_track"
	PaceBehind  Pace = "behind"
)

// Insights is the projection computed for a single goal.
type Insights struct {
	Goal                Goal      `json:"goal"`
	RemainingAmount     float64   `json:"remaining_amount"`
	DaysRemaining       int       `json:"days_remaining"`
	RequiredMonthly     float64   `json:"required_monthly"`
	Pace                Pace      `json:"pace"`
	ProjectedCompletion time.Time `json:"projected_completion,omitzero"`
	Recommendations     []string  `json:"recommendations"`
}

// Goal mirrors domain.Goal with the percentage precomputed for callers.
type Goal struct {
	domain.Goal
	PercentComplete float64 `json:"percent_complete"`
}

// Engine owns goal lifecycle and arithmetic. Persistence is delegated to the
// accessor; the engine never writes a ledger entry it did not compute.
type Engine struct {
	store  store.Accessor
	logger *slog.Logger
	now    func() time.Time
}

// New creates a goal engine.
func New(st store.Accessor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger, now: time.Now}
}

// Create validates and persists a new in-progress goal starting at zero.
func (e *Engine) Create(ctx context.Context, userID int64, name string, target, monthlyContribution float64, targetDate time.Time) (domain.Goal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Goal{}, domain.NewValidationError("goal_name", name, domain.ErrInvalidGoal)
	}
	if target <= 0 {
		return domain.Goal{}, domain.NewValidationError("target_amount", fmt.Sprintf("%.2f", target), domain.ErrInvalidGoal)
	}
	g := domain.Goal{
		UserID:              userID,
		Name:                name,
		TargetAmount:        target,
		CurrentAmount:       0,
		MonthlyContribution: monthlyContribution,
		TargetDate:          targetDate,
		Status:              domain.GoalInProgress,
	}
	created, err := e.store.CreateGoal(ctx, g)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("goal: create: %w", err)
	}
	e.logger.Info("goal created", "user_id", userID, "goal_id", created.ID, "target", target)
	return created, nil
}

// AddProgress appends amount to the goal's current total and records the
// ledger entry. Crossing the target flips the goal to completed.
func (e *Engine) AddProgress(ctx context.Context, userID, goalID int64, amount float64, note string) (domain.Goal, domain.GoalProgressEntry, error) {
	if amount <= 0 {
		return domain.Goal{}, domain.GoalProgressEntry{}, domain.NewValidationError("amount", fmt.Sprintf("%.2f", amount), domain.ErrInvalidGoal)
	}
	g, err := e.store.GoalByID(ctx, userID, goalID)
	if err != nil {
		return domain.Goal{}, domain.GoalProgressEntry{}, fmt.Errorf("goal: add progress: %w", err)
	}

	entry := domain.GoalProgressEntry{
		GoalID:        g.ID,
		AmountAdded:   amount,
		PreviousTotal: g.CurrentAmount,
		NewTotal:      g.CurrentAmount + amount,
		Note:          note,
	}
	g.CurrentAmount += amount
	if g.CurrentAmount >= g.TargetAmount && g.Status == domain.GoalInProgress {
		g.Status = domain.GoalCompleted
		g.CompletedAt = e.now()
	}

	g, entry, err = e.store.ApplyGoalProgress(ctx, g, entry)
	if err != nil {
		return domain.Goal{}, domain.GoalProgressEntry{}, fmt.Errorf("goal: add progress: %w", err)
	}
	e.logger.Info("goal progress recorded", "user_id", userID, "goal_id", g.ID,
		"added", amount, "total", g.CurrentAmount, "status", g.Status)
	return g, entry, nil
}

// InsightsFor projects pace and required contribution for one goal.
func (e *Engine) InsightsFor(g domain.Goal) Insights {
	now := e.now()
	remaining := g.TargetAmount - g.CurrentAmount
	if remaining < 0 {
		remaining = 0
	}

	var days int
	var requiredMonthly float64
	if !g.TargetDate.IsZero() {
		days = int(g.TargetDate.Sub(now).Hours() / 24)
		if days > 0 {
			requiredMonthly = remaining / float64(days) * 30
		} else {
			days = 0
			requiredMonthly = remaining
		}
	} else {
		requiredMonthly = g.MonthlyContribution
	}

	pace := PaceOnTrack
	if g.MonthlyContribution > 0 && !g.TargetDate.IsZero() {
		projected := g.CurrentAmount + g.MonthlyContribution*(float64(days)/30)
		switch {
		case projected >= g.TargetAmount:
			pace = PaceAhead
		case projected >= 0.9*g.TargetAmount:
			pace = PaceOnTrack
		default:
			pace = PaceBehind
		}
	}

	var completion time.Time
	if g.MonthlyContribution > 0 && remaining > 0 {
		monthsLeft := remaining / g.MonthlyContribution
		completion = now.AddDate(0, 0, int(monthsLeft*30))
	}

	return Insights{
		Goal:                Goal{Goal: g, PercentComplete: g.PercentComplete()},
		RemainingAmount:     remaining,
		DaysRemaining:       days,
		RequiredMonthly:     requiredMonthly,
		Pace:                pace,
		ProjectedCompletion: completion,
		Recommendations:     recommendationsFor(g, pace),
	}
}

func recommendationsFor(g domain.Goal, pace Pace) []string {
	var recs []string
	switch pace {
	case PaceBehind:
		recs = append(recs,
			"Increase your monthly contribution to stay on schedule",
			"Consider adding surplus earnings from peak hours to this goal")
	case PaceAhead:
		recs = append(recs, "You are ahead of schedule, keep up the momentum")
	}
	pct := g.PercentComplete()
	if pct < 25 {
		recs = append(recs, "Set up a recurring weekly transfer to build the habit early")
	} else if pct > 75 {
		recs = append(recs, "You are in the final stretch, avoid dipping into this goal")
	}
	return recs
}
