package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// NetCashFlow is total income minus total expenses over the whole log.
func NetCashFlow(txs []core.Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range txs {
		if tx.IsIncome() {
			net = net.Add(tx.Amount)
		} else {
			net = net.Sub(tx.Amount)
		}
	}
	return net
}

// GoalProgress is the net cash flow of the entire log as a percentage of the
// goal target, clamped to [0, 100]. It deliberately ignores the goal's
// category and dates: every goal measures the same overall savings.
func GoalProgress(goal core.Goal, txs []core.Transaction) float64 {
	if !goal.TargetAmount.IsPositive() {
		return 0
	}
	p := percentOf(NetCashFlow(txs), goal.TargetAmount)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// GoalStatus pairs a goal with its derived progress.
type GoalStatus struct {
	Goal     core.Goal `json:"goal"`
	Progress float64   `json:"progress"`
}

// GoalsProgress evaluates the first limit goals in their stored order; a
// non-positive limit evaluates all of them.
func GoalsProgress(goals []core.Goal, txs []core.Transaction, limit int) []GoalStatus {
	if limit > 0 && len(goals) > limit {
		goals = goals[:limit]
	}
	out := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalStatus{Goal: g, Progress: GoalProgress(g, txs)})
	}
	return out
}

// Usage is the spend of one category in the current month against its
// budget. Percent is not capped: values above 100 mean overspend.
type Usage struct {
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   float64         `json:"percent"`
	Overspent bool            `json:"overspent"`
}

// BudgetUsage sums the category's expenses in the calendar month of asOf.
// A non-positive limit reports 0 percent.
func BudgetUsage(category string, limit decimal.Decimal, txs []core.Transaction, asOf time.Time) Usage {
	w := CurrentMonth(asOf)
	spent := decimal.Zero
	for _, tx := range txs {
		if tx.IsExpense() && tx.Category == category && w.Contains(tx.Date) {
			spent = spent.Add(tx.Amount)
		}
	}

	var pct float64
	if limit.IsPositive() {
		pct = percentOf(spent, limit)
	}
	return Usage{
		Category:  category,
		Limit:     limit,
		Spent:     spent,
		Remaining: limit.Sub(spent),
		Percent:   pct,
		Overspent: pct > 100,
	}
}

// BudgetOverview evaluates every budget, sorted by category name.
func BudgetOverview(budgets core.Budgets, txs []core.Transaction, asOf time.Time) []Usage {
	categories := make([]string, 0, len(budgets))
	for c := range budgets {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]Usage, 0, len(categories))
	for _, c := range categories {
		out = append(out, BudgetUsage(c, budgets[c], txs, asOf))
	}
	return out
}
