package analytics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	// TrendBaselineMonths is how many months before the current one form
	// the average.
	TrendBaselineMonths = 3
	// TrendAlertPercent flags spending this far above the average.
	TrendAlertPercent = 20.0
)

// Trend compares the latest month's expenses with the trailing average.
type Trend struct {
	CurrentExpenses     decimal.Decimal `json:"currentExpenses"`
	AvgPreviousExpenses decimal.Decimal `json:"avgPreviousExpenses"`
	ChangePercent       float64         `json:"changePercent"`
	IsAboveAverage      bool            `json:"isAboveAverage"`
}

// SpendingTrend takes the last month present in the log as current and up
// to three preceding months as baseline. The second result is false when
// there is no baseline or the baseline average is zero; callers treat that
// as insufficient data.
func SpendingTrend(txs []core.Transaction) (Trend, bool) {
	monthly := MonthlyTotals(txs)
	if len(monthly) < 2 {
		return Trend{}, false
	}

	current := monthly[len(monthly)-1]
	start := len(monthly) - 1 - TrendBaselineMonths
	if start < 0 {
		start = 0
	}
	baseline := monthly[start : len(monthly)-1]

	sum := decimal.Zero
	for _, m := range baseline {
		sum = sum.Add(m.Expenses)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(baseline))))
	if avg.IsZero() {
		return Trend{}, false
	}

	change := current.Expenses.Sub(avg).Div(avg).Mul(hundred).InexactFloat64()
	return Trend{
		CurrentExpenses:     current.Expenses,
		AvgPreviousExpenses: avg,
		ChangePercent:       change,
		IsAboveAverage:      change > TrendAlertPercent,
	}, true
}
