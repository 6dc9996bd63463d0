package recurring

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	autoSuffix   = " (Auto-added)"
	manualSuffix = " (Manual)"
)

// Posting is one occurrence ready to be merged by the caller: the new
// transaction and the template with LastPaid advanced to the due date.
type Posting struct {
	Transaction core.Transaction
	Recurring   core.RecurringExpense
}

// IDFunc generates transaction identifiers.
type IDFunc func() string

// Engine is the pure recurrence engine. The zero value is usable and
// generates UUIDs.
type Engine struct {
	NewID IDFunc
}

func NewEngine() *Engine {
	return &Engine{NewID: uuid.NewString}
}

// NextDueDate returns LastPaid plus one interval. A template that was never
// paid is seeded with asOf.
func NextDueDate(r core.RecurringExpense, asOf time.Time) time.Time {
	lastPaid := r.LastPaid
	if lastPaid.IsZero() {
		lastPaid = asOf
	}
	return stepperFor(r.Interval).Next(lastPaid)
}

// IsDue reports whether asOf is strictly after the next due date. An
// occurrence due exactly at asOf is not due yet.
func IsDue(r core.RecurringExpense, asOf time.Time) bool {
	return asOf.After(NextDueDate(r, asOf))
}

// CheckAndPostDue returns at most one posting per due template. A template
// whose due occurrence is already in the log (same recurringId, same calendar
// day) is skipped, so re-running with the same inputs posts nothing new.
// Missed periods are not caught up in one pass; every invocation advances a
// template by a single period.
func (e *Engine) CheckAndPostDue(recurring []core.RecurringExpense, log []core.Transaction, asOf time.Time) []Posting {
	var postings []Posting
	for _, r := range recurring {
		if !IsDue(r, asOf) {
			continue
		}
		due := NextDueDate(r, asOf)
		if ledger.HasOccurrence(log, r.ID, due) {
			continue
		}
		postings = append(postings, e.post(r, due, autoSuffix))
	}
	return postings
}

// MarkAsPaid posts the next occurrence unconditionally. It ignores the due
// gate and the one-per-cycle cap; it is the explicit user action.
func (e *Engine) MarkAsPaid(r core.RecurringExpense, asOf time.Time) Posting {
	return e.post(r, NextDueDate(r, asOf), manualSuffix)
}

func (e *Engine) post(r core.RecurringExpense, due time.Time, suffix string) Posting {
	id := r.ID
	tx := core.Transaction{
		ID:          e.newID(),
		Amount:      r.Amount,
		Currency:    r.Currency,
		Date:        due,
		Category:    r.Category,
		Type:        core.Expense,
		Notes:       r.Name + suffix,
		RecurringID: &id,
	}
	r.LastPaid = due
	return Posting{Transaction: tx, Recurring: r}
}

func (e *Engine) newID() string {
	if e == nil || e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}

// Upcoming pairs a template with its next due date.
type Upcoming struct {
	Recurring core.RecurringExpense `json:"recurring"`
	NextDue   time.Time             `json:"nextDue"`
	Overdue   bool                  `json:"overdue"`
}

// UpcomingSchedule lists every template with its next due date, soonest first.
func UpcomingSchedule(recurring []core.RecurringExpense, asOf time.Time) []Upcoming {
	out := make([]Upcoming, 0, len(recurring))
	for _, r := range recurring {
		out = append(out, Upcoming{
			Recurring: r,
			NextDue:   NextDueDate(r, asOf),
			Overdue:   IsDue(r, asOf),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextDue.Before(out[j].NextDue)
	})
	return out
}
