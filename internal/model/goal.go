package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalType classifies a savings or spending target.
type GoalType string

const (
	GoalSavings       GoalType = "savings"
	GoalSpendingLimit GoalType = "spending_limit"
	GoalDebtPayoff    GoalType = "debt_payoff"
	GoalInvestment    GoalType = "investment"
)

// Valid reports whether g is a known goal type.
func (g GoalType) Valid() bool {
	switch g {
	case GoalSavings, GoalSpendingLimit, GoalDebtPayoff, GoalInvestment:
		return true
	}
	return false
}

// Goal is a savings or spending target.
type Goal struct {
	ID            int64
	Name          string
	GoalType      GoalType
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	TargetDate    *time.Time
	MonthlyTarget *decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
	LastUpdated   time.Time
}

// Progress returns CurrentAmount/TargetAmount, or zero for a zero target.
func (g Goal) Progress() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount)
}

// Record returns the insert mapping for g.
func (g Goal) Record() Record {
	rec := Record{
		"name":           g.Name,
		"goal_type":      string(g.GoalType),
		"target_amount":  g.TargetAmount,
		"current_amount": g.CurrentAmount,
		"is_active":      boolInt(g.IsActive),
	}
	if g.TargetDate != nil {
		rec["target_date"] = g.TargetDate.Format(DateFormat)
	}
	if g.MonthlyTarget != nil {
		rec["monthly_target"] = *g.MonthlyTarget
	}
	return rec
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
