package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/recurring"
)

const (
	dashboardTopExpenses = 5
	dashboardGoals       = 3
)

// Stat is one headline figure with its change against the previous month.
type Stat struct {
	Value         decimal.Decimal `json:"value"`
	ChangePercent float64         `json:"changePercent"`
}

// Summary holds the headline cards for the month of asOf.
type Summary struct {
	Month      string          `json:"month"`
	Income     Stat            `json:"income"`
	Expenses   Stat            `json:"expenses"`
	Net        Stat            `json:"net"`
	TotalSaved decimal.Decimal `json:"totalSaved"`
}

// Summarize compares the month of asOf with the calendar month before it.
// monthly must be keyed in asOf's location. Missing months count as zero,
// and a zero previous value reports 0 change.
func Summarize(monthly []MonthTotal, asOf time.Time) Summary {
	cur := core.MonthKey(asOf)
	prev := core.MonthKey(core.AddMonths(core.StartOfMonth(asOf), -1))

	var c, p MonthTotal
	total := decimal.Zero
	for _, m := range monthly {
		total = total.Add(m.Net)
		switch m.Month {
		case cur:
			c = m
		case prev:
			p = m
		}
	}

	return Summary{
		Month:      cur,
		Income:     stat(c.Income, p.Income),
		Expenses:   stat(c.Expenses, p.Expenses),
		Net:        stat(c.Net, p.Net),
		TotalSaved: total,
	}
}

func stat(cur, prev decimal.Decimal) Stat {
	return Stat{
		Value:         cur,
		ChangePercent: percentOf(cur.Sub(prev), prev.Abs()),
	}
}

// Dashboard is the aggregate read model served to the UI.
type Dashboard struct {
	Summary          Summary               `json:"summary"`
	Monthly          []MonthTotal          `json:"monthly"`
	Cumulative       []CumulativePoint     `json:"cumulative"`
	Categories       []CategoryTotal       `json:"categories"`
	TopExpenses      []core.Transaction    `json:"topExpenses"`
	Trend            *Trend                `json:"trend,omitempty"`
	Budgets          []Usage               `json:"budgets"`
	Goals            []GoalStatus          `json:"goals"`
	Upcoming         []recurring.Upcoming  `json:"upcoming"`
	PlannedExpenses  []core.PlannedExpense `json:"plannedExpenses"`
	EURTotalExpenses decimal.Decimal       `json:"eurTotalExpenses"`
}

// Inputs is the slice of persisted state the dashboard reads.
type Inputs struct {
	Transactions []core.Transaction
	Budgets      core.Budgets
	Goals        []core.Goal
	Recurring    []core.RecurringExpense
	Planned      []core.PlannedExpense
	Settings     core.Settings
}

// BuildDashboard computes every view in one pass over the inputs. Dates are
// read in asOf's location so every month bucket agrees with the current
// month. The trend is nil when there is not enough history.
func BuildDashboard(in Inputs, asOf time.Time) Dashboard {
	txs := inLocation(in.Transactions, asOf.Location())
	month := CurrentMonth(asOf)
	monthly := MonthlyTotals(txs)

	var trend *Trend
	if t, ok := SpendingTrend(txs); ok {
		trend = &t
	}

	return Dashboard{
		Summary:          Summarize(monthly, asOf),
		Monthly:          monthly,
		Cumulative:       CumulativeNet(monthly),
		Categories:       CategoryTotals(txs, month),
		TopExpenses:      TopExpenses(txs, dashboardTopExpenses),
		Trend:            trend,
		Budgets:          BudgetOverview(in.Budgets, txs, asOf),
		Goals:            GoalsProgress(in.Goals, txs, dashboardGoals),
		Upcoming:         recurring.UpcomingSchedule(in.Recurring, asOf),
		PlannedExpenses:  SortPlanned(in.Planned),
		EURTotalExpenses: EURExpenses(txs, month, in.Settings),
	}
}

// EURExpenses totals the expenses inside w in EUR. IDR amounts are converted
// at the settings rate and EUR amounts count as they are; other currencies
// have no rate and are left out.
func EURExpenses(txs []core.Transaction, w Window, set core.Settings) decimal.Decimal {
	idr, eur := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if !tx.IsExpense() || !w.Contains(tx.Date) {
			continue
		}
		switch tx.Currency {
		case core.IDR:
			idr = idr.Add(tx.Amount)
		case core.EUR:
			eur = eur.Add(tx.Amount)
		}
	}
	return set.ConvertToEUR(idr).Add(eur)
}

func inLocation(txs []core.Transaction, loc *time.Location) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.Date = tx.Date.In(loc)
		out[i] = tx
	}
	return out
}

// SortPlanned returns a copy ordered by target date, soonest first.
func SortPlanned(planned []core.PlannedExpense) []core.PlannedExpense {
	out := make([]core.PlannedExpense, len(planned))
	copy(out, planned)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TargetDate.Before(out[j].TargetDate)
	})
	return out
}
