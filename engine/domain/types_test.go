package domain

import (
	"errors"
	"testing"
)

func TestRecomputeNet(t *testing.T) {
	tests := []struct {
		name string
		trip TripRecord
		want float64
	}{
		{"all costs", TripRecord{Earnings: 500, FuelCost: 100, TollCost: 50, OtherExpenses: 25}, 325},
		{"no costs", TripRecord{Earnings: 200}, 200},
		{"costs exceed earnings", TripRecord{Earnings: 100, FuelCost: 150}, -50},
		{"stale net is overwritten", TripRecord{Earnings: 300, FuelCost: 50, NetEarnings: 9999}, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.trip.RecomputeNet()
			if tt.trip.NetEarnings != tt.want {
				t.Errorf("NetEarnings = %v, want %v", tt.trip.NetEarnings, tt.want)
			}
		})
	}
}

func TestGoalPercentComplete(t *testing.T) {
	tests := []struct {
		name string
		goal Goal
		want float64
	}{
		{"halfway", Goal{TargetAmount: 1000, CurrentAmount: 500}, 50},
		{"zero target", Goal{TargetAmount: 0, CurrentAmount: 500}, 0},
		{"negative target", Goal{TargetAmount: -10, CurrentAmount: 500}, 0},
		{"overshoot clamps", Goal{TargetAmount: 1000, CurrentAmount: 1500}, 100},
		{"empty", Goal{TargetAmount: 1000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.goal.PercentComplete(); got != tt.want {
				t.Errorf("PercentComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvestmentReturns(t *testing.T) {
	inv := Investment{CurrentValue: 1200, InvestedAmount: 1000}
	if got := inv.TotalReturns(); got != 200 {
		t.Errorf("TotalReturns() = %v, want 200", got)
	}
	if got := inv.ReturnsPercentage(); got != 20 {
		t.Errorf("ReturnsPercentage() = %v, want 20", got)
	}

	zero := Investment{CurrentValue: 100, InvestedAmount: 0}
	if got := zero.ReturnsPercentage(); got != 0 {
		t.Errorf("ReturnsPercentage() with nothing invested = %v, want 0", got)
	}
}

func TestConditionNeedsAttention(t *testing.T) {
	for _, c := range []Condition{ConditionGood, ConditionFair} {
		if c.NeedsAttention() {
			t.Errorf("%s should not need attention", c)
		}
	}
	for _, c := range []Condition{ConditionPoor, ConditionCritical} {
		if !c.NeedsAttention() {
			t.Errorf("%s should need attention", c)
		}
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("target_amount", "-5", ErrInvalidGoal)
	if !errors.Is(err, ErrInvalidGoal) {
		t.Error("expected errors.Is to match the wrapped sentinel")
	}
	if err.Error() == "" {
		t.Error("expected a message")
	}
}
