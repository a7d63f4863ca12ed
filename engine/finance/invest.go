package finance

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

// MarketData supplies live rate quotes for an instrument type. Implementations
// may fail; the engine falls back to its built-in rate tables when they do.
type MarketData interface {
	Rate(ctx context.Context, instrumentType string) (domain.InstrumentRate, error)
}

// Suggestion is one proposed instrument allocation.
type Suggestion struct {
	InstrumentType   string  `json:"instrument_type"`
	ProviderName     string  `json:"provider_name"`
	AllocationPct    float64 `json:"allocation_percentage"`
	Amount           float64 `json:"amount"`
	AnnualRate       float64 `json:"annual_rate"`
	TenureMonths     int     `json:"tenure_months"`
	ExpectedMaturity float64 `json:"expected_maturity"`
	ExpectedReturns  float64 `json:"expected_returns"`
	Reason           string  `json:"reason,omitempty"`
	Recurring        bool    `json:"recurring"`
}

// Advice is the combined financial output handed to the narrator.
type Advice struct {
	Analysis        Analysis                    `json:"analysis"`
	Suggestions     []Suggestion                `json:"suggestions"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	Insights        []string                    `json:"insights"`
	Summary         string                      `json:"summary"`
	ActionItems     []string                    `json:"action_items,omitempty"`
}

// InvestmentEngine maps a surplus analysis onto low-risk instrument bands.
type InvestmentEngine struct {
	market MarketData
	logger *slog.Logger
}

// NewInvestmentEngine creates the engine. market may be nil; built-in rates
// are used then.
func NewInvestmentEngine(market MarketData, logger *slog.Logger) *InvestmentEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvestmentEngine{market: market, logger: logger}
}

type band struct {
	instrumentType string
	provider       string
	allocationPct  float64
	annualRate     float64
	tenureMonths   int
	reason         string
	recurring      bool
}

// Bands by monthly surplus. Risk appetite is fixed low for this audience.
var (
	bandsSmall = []band{
		{"recurring_deposit", "Post Office RD", 50, 7.5, 12, "Safe and guaranteed returns for small amounts", true},
		{"ppf", "Public Provident Fund", 50, 7.1, 180, "Long-term tax-free wealth creation", false},
	}
	bandsMedium = []band{
		{"fixed_deposit", "HDFC Bank FD", 30, 7.0, 12, "Guaranteed returns with full liquidity at maturity", false},
		{"mutual_fund", "HDFC Liquid Fund", 50, 5.5, 6, "Better than savings account with easy withdrawal", false},
		{"gold", "Gold Savings Scheme", 20, 8.0, 12, "Hedge against inflation", false},
	}
	bandsLarge = []band{
		{"mutual_fund_sip", "SBI Equity Hybrid Fund", 40, 10.0, 36, "Higher growth potential over a longer horizon", true},
		{"ppf", "Public Provident Fund", 30, 7.1, 180, "Long-term tax-free wealth creation", false},
		{"fixed_deposit", "ICICI Bank FD", 20, 6.8, 12, "Guaranteed returns with full liquidity at maturity", false},
		{"gold", "Digital Gold", 10, 8.0, 24, "Hedge against inflation", false},
	}
)

func bandsFor(surplus float64) []band {
	switch {
	case surplus < 2000:
		return bandsSmall
	case surplus < 5000:
		return bandsMedium
	default:
		return bandsLarge
	}
}

// Suggest is the engine as a pipeline stage, chained after the planner.
func (e *InvestmentEngine) Suggest(ctx context.Context, a Analysis) fn.Result[Advice] {
	if a.Surplus <= 0 {
		return fn.Ok(Advice{
			Analysis:        a,
			Recommendations: a.Recommendations,
			Insights:        a.Insights,
			Summary:         "Your expenses meet or exceed income this month, so there is no surplus to invest yet.",
			ActionItems:     []string{"Reduce expenses", "Increase trip earnings"},
		})
	}

	suggestions := make([]Suggestion, 0, 4)
	for _, b := range bandsFor(a.Surplus) {
		s := e.suggestionFrom(ctx, b, a.Surplus)
		suggestions = append(suggestions, s)
	}

	recs := append([]domain.RecommendationItem(nil), a.Recommendations...)
	if a.Surplus > 1000 {
		for _, s := range fn.Take(suggestions, 2) {
			recs = append(recs, domain.RecommendationItem{
				Type:  "investment",
				Title: fmt.Sprintf("Invest ₹%.0f in %s", s.Amount, s.ProviderName),
				Description: fmt.Sprintf("%s at %.1f%% p.a. for %d months, maturing at ₹%.0f.",
					s.Reason, s.AnnualRate, s.TenureMonths, s.ExpectedMaturity),
				Detail: map[string]any{
					"instrument_type": s.InstrumentType,
					"amount":          s.Amount,
					"annual_rate":     s.AnnualRate,
				},
			})
		}
	}

	return fn.Ok(Advice{
		Analysis:        a,
		Suggestions:     suggestions,
		Recommendations: recs,
		Insights:        a.Insights,
		Summary: fmt.Sprintf("You have a monthly surplus of ₹%.0f (%.1f%% of income). Suggested split: ₹%.0f savings, ₹%.0f investments, ₹%.0f emergency fund.",
			a.Surplus, a.SurplusPct, a.SavingsAllocation, a.InvestmentAllocation, a.EmergencyAllocation),
	})
}

func (e *InvestmentEngine) suggestionFrom(ctx context.Context, b band, surplus float64) Suggestion {
	s := Suggestion{
		InstrumentType: b.instrumentType,
		ProviderName:   b.provider,
		AllocationPct:  b.allocationPct,
		Amount:         surplus * b.allocationPct / 100,
		AnnualRate:     b.annualRate,
		TenureMonths:   b.tenureMonths,
		Reason:         b.reason,
		Recurring:      b.recurring,
	}
	if e.market != nil {
		rate, err := e.market.Rate(ctx, b.instrumentType)
		if err != nil {
			e.logger.Warn("market rate lookup failed, using built-in rate",
				"instrument", b.instrumentType, "error", err)
		} else {
			if rate.AnnualRate > 0 {
				s.AnnualRate = rate.AnnualRate
			}
			if rate.ProviderName != "" {
				s.ProviderName = rate.ProviderName
			}
		}
	}

	if s.Recurring {
		s.ExpectedMaturity = RecurringMaturity(s.Amount, s.AnnualRate, s.TenureMonths)
		s.ExpectedReturns = s.ExpectedMaturity - s.Amount*float64(s.TenureMonths)
	} else {
		s.ExpectedMaturity = LumpSumMaturity(s.Amount, s.AnnualRate, s.TenureMonths)
		s.ExpectedReturns = s.ExpectedMaturity - s.Amount
	}
	return s
}

// LumpSumMaturity compounds a one-time principal annually for the tenure.
func LumpSumMaturity(principal, annualRate float64, tenureMonths int) float64 {
	if tenureMonths <= 0 {
		return principal
	}
	return principal * math.Pow(1+annualRate/100, float64(tenureMonths)/12)
}

// RecurringMaturity values a fixed monthly deposit compounded monthly.
func RecurringMaturity(monthly, annualRate float64, tenureMonths int) float64 {
	if tenureMonths <= 0 {
		return 0
	}
	r := annualRate / 12 / 100
	if r == 0 {
		return monthly * float64(tenureMonths)
	}
	n := float64(tenureMonths)
	return monthly * (1 + r) * ((math.Pow(1+r, n) - 1) / r)
}
