// Package analytics derives read-only views from the transaction log:
// monthly and category aggregates, the spending trend, goal progress and
// budget usage. Every function is pure and takes the log as an argument.
//
// Amounts are summed as stored, without currency conversion.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var hundred = decimal.NewFromInt(100)

// MonthTotal is the income/expense bucket for one calendar month.
type MonthTotal struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthlyTotals buckets the log by calendar month, ascending by "YYYY-MM".
// The series is sparse: months without transactions are absent, so
// consumers must not assume consecutive entries are consecutive months.
func MonthlyTotals(txs []core.Transaction) []MonthTotal {
	buckets := make(map[string]*MonthTotal)
	for _, tx := range txs {
		key := core.MonthKey(tx.Date)
		b, ok := buckets[key]
		if !ok {
			b = &MonthTotal{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			buckets[key] = b
		}
		if tx.IsIncome() {
			b.Income = b.Income.Add(tx.Amount)
		} else {
			b.Expenses = b.Expenses.Add(tx.Amount)
		}
	}

	out := make([]MonthTotal, 0, len(buckets))
	for _, b := range buckets {
		b.Net = b.Income.Sub(b.Expenses)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Window restricts aggregation to an inclusive time range. The zero Window
// matches everything.
type Window struct {
	Start time.Time
	End   time.Time
}

// CurrentMonth is the calendar month containing asOf, in asOf's location.
func CurrentMonth(asOf time.Time) Window {
	return Window{Start: core.StartOfMonth(asOf), End: core.EndOfMonth(asOf)}
}

// AllTime matches every transaction.
func AllTime() Window {
	return Window{}
}

func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// CategoryTotals sums expenses per category inside the window. Categories
// appear in the order they are first seen in the log.
func CategoryTotals(txs []core.Transaction, w Window) []CategoryTotal {
	var out []CategoryTotal
	pos := make(map[string]int)
	for _, tx := range txs {
		if !tx.IsExpense() || !w.Contains(tx.Date) {
			continue
		}
		i, ok := pos[tx.Category]
		if !ok {
			i = len(out)
			pos[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
	}
	if out == nil {
		return []CategoryTotal{}
	}
	return out
}

// TopExpenses returns the largest expenses, at most limit of them. Equal
// amounts keep their order in the log.
func TopExpenses(txs []core.Transaction, limit int) []core.Transaction {
	if limit <= 0 {
		return []core.Transaction{}
	}
	expenses := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsExpense() {
			expenses = append(expenses, tx)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.GreaterThan(expenses[j].Amount)
	})
	if len(expenses) > limit {
		expenses = expenses[:limit]
	}
	return expenses
}

// CumulativePoint is one month of the running net savings series.
type CumulativePoint struct {
	Month      string          `json:"month"`
	Net        decimal.Decimal `json:"net"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// CumulativeNet accumulates Net across the (sparse) monthly series.
func CumulativeNet(monthly []MonthTotal) []CumulativePoint {
	out := make([]CumulativePoint, 0, len(monthly))
	running := decimal.Zero
	for _, m := range monthly {
		running = running.Add(m.Net)
		out = append(out, CumulativePoint{Month: m.Month, Net: m.Net, Cumulative: running})
	}
	return out
}

// FilterByCategory keeps the transactions of one category; an empty
// category keeps everything.
func FilterByCategory(txs []core.Transaction, category string) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if category == "" || tx.Category == category {
			out = append(out, tx)
		}
	}
	return out
}

// Categories merges the default labels with every label used in the log,
// defaults first, without duplicates.
func Categories(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(core.DefaultCategories))
	add := func(c string) {
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range core.DefaultCategories {
		add(c)
	}
	for _, tx := range txs {
		add(tx.Category)
	}
	return out
}

// percentOf returns num/den*100, or 0 when den is zero.
func percentOf(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	return num.Div(den).Mul(hundred).InexactFloat64()
}
