// Package finance computes the monthly surplus picture and turns it into
// low-risk investment suggestions. The surplus planner always chains into the
// investment engine; the two stages stay separate so each is testable alone.
package finance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/store"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

const (
	// Fallback expense ratio when the profile carries no expense average.
	estimatedExpenseRatio = 0.6

	savingsShare    = 0.5
	investmentShare = 0.3
	emergencyShare  = 0.2

	emergencyMonths = 6
)

// Analysis is the surplus picture for one driver over the trailing month.
type Analysis struct {
	UserID               int64                       `json:"user_id"`
	MonthlyIncome        float64                     `json:"monthly_income"`
	MonthlyExpenses      float64                     `json:"monthly_expenses"`
	ExpensesEstimated    bool                        `json:"expenses_estimated"`
	Surplus              float64                     `json:"surplus"`
	SurplusPct           float64                     `json:"surplus_percentage"`
	SavingsAllocation    float64                     `json:"savings_allocation"`
	InvestmentAllocation float64                     `json:"investment_allocation"`
	EmergencyAllocation  float64                     `json:"emergency_allocation"`
	EmergencyFundTarget  float64                     `json:"emergency_fund_target"`
	LiquidSavings        float64                     `json:"liquid_savings"`
	EmergencyGap         float64                     `json:"emergency_gap"`
	ActiveGoals          int                         `json:"active_goals"`
	GoalShortfall        float64                     `json:"goal_shortfall"`
	Recommendations      []domain.RecommendationItem `json:"recommendations"`
	Insights             []string                    `json:"insights"`
}

// SurplusPlanner derives the analysis from trip stats, goals, and holdings.
type SurplusPlanner struct {
	store  store.Accessor
	logger *slog.Logger
}

// NewSurplusPlanner creates a planner backed by the given accessor.
func NewSurplusPlanner(st store.Accessor, logger *slog.Logger) *SurplusPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SurplusPlanner{store: st, logger: logger}
}

// Request carries the identifiers and profile a planning run needs.
type Request struct {
	UserID  int64
	Profile domain.UserProfile
}

// Plan is the planner as a pipeline stage.
func (p *SurplusPlanner) Plan(ctx context.Context, req Request) fn.Result[Analysis] {
	reads := fn.FanOutResult(
		func() fn.Result[any] { return toAny(fn.FromPair(p.store.TripStats(ctx, req.UserID, 30))) },
		func() fn.Result[any] { return toAny(fn.FromPair(p.store.Goals(ctx, req.UserID))) },
		func() fn.Result[any] { return toAny(fn.FromPair(p.store.Investments(ctx, req.UserID))) },
	)
	vals, err := reads.Unwrap()
	if err != nil {
		return fn.Errf[Analysis]("finance: surplus reads: %w", err)
	}
	stats := vals[0].(domain.TripStatistics)
	goals, _ := vals[1].([]domain.Goal)
	holdings, _ := vals[2].([]domain.Investment)

	return fn.Ok(p.analyse(req, stats, goals, holdings))
}

func (p *SurplusPlanner) analyse(req Request, stats domain.TripStatistics, goals []domain.Goal, holdings []domain.Investment) Analysis {
	a := Analysis{UserID: req.UserID}

	// Income proxy is the trailing month's net earnings, after trip costs.
	a.MonthlyIncome = stats.NetEarnings
	a.MonthlyExpenses = req.Profile.MonthlyExpenseAverage
	if a.MonthlyExpenses <= 0 {
		a.MonthlyExpenses = a.MonthlyIncome * estimatedExpenseRatio
		a.ExpensesEstimated = true
	}
	a.Surplus = a.MonthlyIncome - a.MonthlyExpenses
	if a.MonthlyIncome > 0 {
		a.SurplusPct = a.Surplus / a.MonthlyIncome * 100
	}

	if a.Surplus > 0 {
		a.SavingsAllocation = a.Surplus * savingsShare
		a.InvestmentAllocation = a.Surplus * investmentShare
		a.EmergencyAllocation = a.Surplus * emergencyShare
	}

	a.EmergencyFundTarget = a.MonthlyExpenses * emergencyMonths
	liquid := fn.Filter(holdings, func(inv domain.Investment) bool { return inv.RiskLevel == domain.RiskLow })
	a.LiquidSavings = fn.Reduce(liquid, 0, func(sum float64, inv domain.Investment) float64 {
		return sum + inv.CurrentValue
	})
	a.EmergencyGap = a.EmergencyFundTarget - a.LiquidSavings
	if a.EmergencyGap < 0 {
		a.EmergencyGap = 0
	}

	active := fn.Filter(goals, func(g domain.Goal) bool { return g.Status == domain.GoalInProgress })
	a.ActiveGoals = len(active)
	for _, g := range active {
		if r := g.TargetAmount - g.CurrentAmount; r > 0 {
			a.GoalShortfall += r
		}
	}

	a.Recommendations = p.recommendations(a)
	a.Insights = insights(a)
	return a
}

func (p *SurplusPlanner) recommendations(a Analysis) []domain.RecommendationItem {
	var recs []domain.RecommendationItem
	if a.ActiveGoals > 0 {
		recs = append(recs, domain.RecommendationItem{
			Type:  "goal_allocation",
			Title: fmt.Sprintf("Allocate for %d Active Goals", a.ActiveGoals),
			Description: fmt.Sprintf("You need ₹%.0f more to complete your active goals. Direct part of your surplus toward them.",
				a.GoalShortfall),
			Detail: map[string]any{"goal_shortfall": a.GoalShortfall},
		})
	} else {
		recs = append(recs, domain.RecommendationItem{
			Type:        "goal_setup",
			Title:       "Set Financial Goals",
			Description: "Define savings goals so your surplus has a destination.",
		})
	}
	if a.LiquidSavings < a.EmergencyFundTarget {
		recs = append(recs, domain.RecommendationItem{
			Type:  "emergency_fund",
			Title: "Build Emergency Fund",
			Description: fmt.Sprintf("Target ₹%.0f (6 months of expenses). You are ₹%.0f short.",
				a.EmergencyFundTarget, a.EmergencyGap),
			Detail: map[string]any{"gap": a.EmergencyGap, "target": a.EmergencyFundTarget},
		})
	}
	if a.SurplusPct < 20 {
		recs = append(recs, domain.RecommendationItem{
			Type:        "savings_rate",
			Title:       "Increase Savings Rate",
			Description: fmt.Sprintf("Your surplus is %.1f%% of income. Trimming running costs would free more to save.", a.SurplusPct),
		})
	}
	return recs
}

func insights(a Analysis) []string {
	var out []string
	switch {
	case a.Surplus <= 0:
		out = append(out, "Your expenses exceed income this month. Focus on reducing costs before investing.")
	case a.Surplus < 2000:
		out = append(out, "Start with recurring deposits to build a savings habit with small amounts.")
	case a.Surplus < 5000:
		out = append(out, "A mix of FD and mutual funds suits your surplus level.")
	default:
		out = append(out, "Diversify across instruments to balance safety and growth.")
	}
	if a.SurplusPct < 10 && a.Surplus > 0 {
		out = append(out, "Try to save at least 20% of your income.")
	}
	if a.SurplusPct > 50 {
		out = append(out, "Great savings rate! You are saving more than half of your income.")
	}
	if a.ExpensesEstimated {
		out = append(out, "Expenses were estimated at 60% of income. Update your profile for sharper numbers.")
	}
	return out
}

// toAny bridges typed results through the homogeneous fan-out.
func toAny[T any](r fn.Result[T]) fn.Result[any] {
	v, err := r.Unwrap()
	if err != nil {
		return fn.Err[any](err)
	}
	return fn.Ok[any](v)
}
