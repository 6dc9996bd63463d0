// Package services orchestrates the finance state: every mutation goes
// through the store and posted transactions are published as events.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/recurring"
	"fintrack/internal/state"
	"fintrack/internal/storage"
)

var (
	ErrNotLoaded    = errors.New("finance service: state not loaded")
	ErrNoRateSource = errors.New("exchange rate source not configured")
)

// EventPublisher receives every posted transaction. *amqp.Client
// implements it.
type EventPublisher interface {
	PublishTransactionPosted(ctx context.Context, msg *amqp.TransactionPostedMessage) error
}

// RateRefresher fetches the daily EUR to IDR rate. *fx.Refresher
// implements it.
type RateRefresher interface {
	Refresh(ctx context.Context) (core.ExchangeRate, bool, error)
	RefreshAsync(ctx context.Context, sink func(core.ExchangeRate))
}

type Option func(*FinanceService)

func WithPublisher(p EventPublisher) Option {
	return func(s *FinanceService) { s.publisher = p }
}

func WithRates(r RateRefresher) Option {
	return func(s *FinanceService) { s.rates = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *FinanceService) { s.loc = loc }
}

func WithEngine(e *recurring.Engine) Option {
	return func(s *FinanceService) { s.engine = e }
}

// FinanceService owns the in-memory state. Reads see the last saved
// snapshot; a mutation is applied to a copy and only becomes visible once
// the store accepted it.
type FinanceService struct {
	mu        sync.RWMutex
	store     storage.Store
	publisher EventPublisher
	rates     RateRefresher
	engine    *recurring.Engine
	now       func() time.Time
	loc       *time.Location
	state     *state.State
}

func NewFinanceService(store storage.Store, opts ...Option) *FinanceService {
	s := &FinanceService{
		store:  store,
		engine: recurring.NewEngine(),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the state from the store, posts any due recurring expenses
// and starts a background exchange rate refresh.
func (s *FinanceService) Load(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}

	if _, err := s.AutoPostRecurring(ctx); err != nil {
		return err
	}

	if s.rates != nil {
		s.rates.RefreshAsync(ctx, func(rate core.ExchangeRate) {
			if err := s.recordRate(context.Background(), rate); err != nil {
				slog.Warn("Failed to store exchange rate", "date", rate.Date, applog.FieldError, err)
			}
		})
	}
	return nil
}

// Reload replaces the in-memory state with what the store holds, picking up
// writes made by another process.
func (s *FinanceService) Reload(ctx context.Context) error {
	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	slog.DebugContext(ctx, "State loaded",
		"transactions", st.Expenses.Len(),
		"recurring", len(st.RecurringExpenses),
		"goals", len(st.Goals))
	return nil
}

func (s *FinanceService) asOf() time.Time {
	return s.now().In(s.loc)
}

// read runs fn against the current state under the read lock.
func (s *FinanceService) read(fn func(st *state.State)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return ErrNotLoaded
	}
	fn(s.state)
	return nil
}

// maxSaveAttempts bounds how often a mutation is re-applied after another
// writer changed the store underneath it.
const maxSaveAttempts = 3

// mutate applies fn to the state the store holds now, saves it and swaps it
// in. The worker and the server may share a store, so fn never runs against
// the in-memory copy. A failing fn or save leaves the current state
// untouched.
func (s *FinanceService) mutate(ctx context.Context, fn func(st *state.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrNotLoaded
	}

	for attempt := 1; ; attempt++ {
		next, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		if err := fn(next); err != nil {
			return err
		}

		err = s.store.Save(ctx, next)
		if errors.Is(err, storage.ErrConflict) && attempt < maxSaveAttempts {
			slog.WarnContext(ctx, "State changed by another writer, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		s.state = next
		return nil
	}
}

// publish is best effort: a failure is logged and never undoes the posting.
func (s *FinanceService) publish(ctx context.Context, source amqp.Source, txs ...core.Transaction) {
	if s.publisher == nil {
		return
	}
	for _, tx := range txs {
		msg := amqp.NewTransactionPostedMessage(tx, source)
		if err := s.publisher.PublishTransactionPosted(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				applog.FieldTransactionID, tx.ID,
				"source", source,
				applog.FieldError, err)
		}
	}
}

// Transactions lists the log in insertion order, optionally restricted to
// one category.
func (s *FinanceService) Transactions(category string) ([]core.Transaction, error) {
	var out []core.Transaction
	err := s.read(func(st *state.State) {
		out = analytics.FilterByCategory(st.Transactions(), category)
	})
	return out, err
}

// Categories lists the default categories followed by every custom one in
// use.
func (s *FinanceService) Categories() ([]string, error) {
	var out []string
	err := s.read(func(st *state.State) {
		out = analytics.Categories(st.Transactions())
	})
	return out, err
}

func (s *FinanceService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var added core.Transaction
	err := s.mutate(ctx, func(st *state.State) error {
		if tx.Currency == "" {
			tx.Currency = st.Settings.DefaultCurrency
		}
		if tx.Date.IsZero() {
			tx.Date = s.asOf()
		}
		var err error
		added, err = st.AddTransaction(tx)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction added",
		applog.FieldTransactionID, added.ID,
		"type", added.Type,
		applog.FieldAmount, added.Amount.String(),
		applog.FieldCurrency, added.Currency,
		applog.FieldCategory, added.Category)
	s.publish(ctx, amqp.SourceUser, added)
	return added, nil
}

// UpdateTransaction replaces a transaction and returns the stored record,
// which keeps the recurring back-reference of an auto-posted transaction.
func (s *FinanceService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var updated core.Transaction
	err := s.mutate(ctx, func(st *state.State) error {
		if tx.Currency == "" {
			tx.Currency = st.Settings.DefaultCurrency
		}
		var err error
		updated, err = st.UpdateTransaction(tx)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.DeleteTransaction(id)
	})
}

// Recurring lists every template with its next due date, soonest first.
func (s *FinanceService) Recurring() ([]recurring.Upcoming, error) {
	var out []recurring.Upcoming
	err := s.read(func(st *state.State) {
		out = recurring.UpcomingSchedule(st.RecurringExpenses, s.asOf())
	})
	return out, err
}

func (s *FinanceService) AddRecurring(ctx context.Context, r core.RecurringExpense) (core.RecurringExpense, error) {
	var added core.RecurringExpense
	err := s.mutate(ctx, func(st *state.State) error {
		if r.Currency == "" {
			r.Currency = st.Settings.DefaultCurrency
		}
		var err error
		added, err = st.AddRecurring(r, s.asOf())
		return err
	})
	if err != nil {
		return core.RecurringExpense{}, err
	}
	slog.InfoContext(ctx, "Recurring expense added",
		applog.FieldRecurringID, added.ID,
		"name", added.Name,
		"interval", added.Interval)
	if _, err := s.AutoPostRecurring(ctx); err != nil {
		return added, err
	}
	return added, nil
}

func (s *FinanceService) UpdateRecurring(ctx context.Context, r core.RecurringExpense) error {
	if err := s.mutate(ctx, func(st *state.State) error {
		return st.UpdateRecurring(r)
	}); err != nil {
		return err
	}
	_, err := s.AutoPostRecurring(ctx)
	return err
}

func (s *FinanceService) DeleteRecurring(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.DeleteRecurring(id)
	})
}

// MarkRecurringPaid posts the next occurrence of a template right away,
// whether or not it is due.
func (s *FinanceService) MarkRecurringPaid(ctx context.Context, id string) (core.Transaction, error) {
	var posting recurring.Posting
	err := s.mutate(ctx, func(st *state.State) error {
		r, err := st.Recurring(id)
		if err != nil {
			return err
		}
		posting = s.engine.MarkAsPaid(r, s.asOf())
		return st.ApplyPostings([]recurring.Posting{posting})
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Recurring expense marked as paid",
		applog.FieldRecurringID, id,
		applog.FieldTransactionID, posting.Transaction.ID,
		"due", core.DayKey(posting.Transaction.Date))
	s.publish(ctx, amqp.SourceManual, posting.Transaction)
	return posting.Transaction, nil
}

// CheckRecurring posts every due template once, regardless of the
// autoAddRecurring setting.
func (s *FinanceService) CheckRecurring(ctx context.Context) ([]core.Transaction, error) {
	return s.postDue(ctx, false)
}

// AutoPostRecurring is CheckRecurring gated by the autoAddRecurring setting.
func (s *FinanceService) AutoPostRecurring(ctx context.Context) ([]core.Transaction, error) {
	return s.postDue(ctx, true)
}

func (s *FinanceService) postDue(ctx context.Context, gated bool) ([]core.Transaction, error) {
	var postings []recurring.Posting
	err := s.mutate(ctx, func(st *state.State) error {
		if gated && !st.Settings.AutoAddRecurring {
			return errNothingToSave
		}
		postings = s.engine.CheckAndPostDue(st.RecurringExpenses, st.Transactions(), s.asOf())
		if len(postings) == 0 {
			return errNothingToSave
		}
		return st.ApplyPostings(postings)
	})
	if err != nil && !errors.Is(err, errNothingToSave) {
		return nil, fmt.Errorf("post due recurring expenses: %w", err)
	}

	txs := make([]core.Transaction, 0, len(postings))
	if errors.Is(err, errNothingToSave) {
		return txs, nil
	}
	for _, p := range postings {
		txs = append(txs, p.Transaction)
		slog.InfoContext(ctx, "Recurring expense posted",
			applog.FieldRecurringID, p.Recurring.ID,
			applog.FieldTransactionID, p.Transaction.ID,
			"due", core.DayKey(p.Transaction.Date),
			applog.FieldAmount, p.Transaction.Amount.String())
	}
	s.publish(ctx, amqp.SourceAuto, txs...)
	return txs, nil
}

// errNothingToSave aborts a mutation that would not change the state.
var errNothingToSave = errors.New("nothing to save")

func (s *FinanceService) Planned() ([]core.PlannedExpense, error) {
	var out []core.PlannedExpense
	err := s.read(func(st *state.State) {
		out = analytics.SortPlanned(st.PlannedExpenses)
	})
	return out, err
}

func (s *FinanceService) AddPlanned(ctx context.Context, p core.PlannedExpense) (core.PlannedExpense, error) {
	var added core.PlannedExpense
	err := s.mutate(ctx, func(st *state.State) error {
		if p.Currency == "" {
			p.Currency = st.Settings.DefaultCurrency
		}
		var err error
		added, err = st.AddPlanned(p)
		return err
	})
	return added, err
}

func (s *FinanceService) UpdatePlanned(ctx context.Context, p core.PlannedExpense) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.UpdatePlanned(p)
	})
}

func (s *FinanceService) DeletePlanned(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.DeletePlanned(id)
	})
}

// ConvertPlanned posts a planned expense as a real one dated now.
func (s *FinanceService) ConvertPlanned(ctx context.Context, id string) (core.Transaction, error) {
	var tx core.Transaction
	err := s.mutate(ctx, func(st *state.State) error {
		var err error
		tx, err = st.ConvertPlanned(id, s.asOf())
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Planned expense converted", "planned_id", id, applog.FieldTransactionID, tx.ID)
	s.publish(ctx, amqp.SourcePlanned, tx)
	return tx, nil
}

// Goals lists every goal with its progress.
func (s *FinanceService) Goals() ([]analytics.GoalStatus, error) {
	var out []analytics.GoalStatus
	err := s.read(func(st *state.State) {
		out = analytics.GoalsProgress(st.Goals, st.Transactions(), 0)
	})
	return out, err
}

func (s *FinanceService) AddGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	var added core.Goal
	err := s.mutate(ctx, func(st *state.State) error {
		var err error
		added, err = st.AddGoal(g)
		return err
	})
	return added, err
}

func (s *FinanceService) UpdateGoal(ctx context.Context, g core.Goal) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.UpdateGoal(g)
	})
}

func (s *FinanceService) DeleteGoal(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.DeleteGoal(id)
	})
}

// Budgets reports this month's usage of every budget.
func (s *FinanceService) Budgets() ([]analytics.Usage, error) {
	var out []analytics.Usage
	err := s.read(func(st *state.State) {
		out = analytics.BudgetOverview(st.Budgets, st.Transactions(), s.asOf())
	})
	return out, err
}

func (s *FinanceService) SetBudget(ctx context.Context, category string, limit decimal.Decimal) (analytics.Usage, error) {
	var usage analytics.Usage
	err := s.mutate(ctx, func(st *state.State) error {
		c, err := st.SetBudget(category, limit)
		if err != nil {
			return err
		}
		usage = analytics.BudgetUsage(c, limit, st.Transactions(), s.asOf())
		return nil
	})
	return usage, err
}

func (s *FinanceService) DeleteBudget(ctx context.Context, category string) error {
	return s.mutate(ctx, func(st *state.State) error {
		return st.DeleteBudget(category)
	})
}

func (s *FinanceService) Dashboard() (analytics.Dashboard, error) {
	var d analytics.Dashboard
	err := s.read(func(st *state.State) {
		d = analytics.BuildDashboard(analytics.Inputs{
			Transactions: st.Transactions(),
			Budgets:      st.Budgets,
			Goals:        st.Goals,
			Recurring:    st.RecurringExpenses,
			Planned:      st.PlannedExpenses,
			Settings:     st.Settings,
		}, s.asOf())
	})
	return d, err
}

func (s *FinanceService) Settings() (core.Settings, error) {
	var out core.Settings
	err := s.read(func(st *state.State) { out = st.Settings })
	return out, err
}

// UpdateSettings applies a partial update. Turning autoAddRecurring on runs
// the recurring check immediately.
func (s *FinanceService) UpdateSettings(ctx context.Context, p state.SettingsPatch) (core.Settings, error) {
	var out core.Settings
	err := s.mutate(ctx, func(st *state.State) error {
		var err error
		out, err = st.UpdateSettings(p)
		return err
	})
	if err != nil {
		return core.Settings{}, err
	}
	if p.AutoAddRecurring != nil && *p.AutoAddRecurring {
		if _, err := s.AutoPostRecurring(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}

// ExchangeRates returns one rate per day for the last days days.
func (s *FinanceService) ExchangeRates(days int) ([]core.ExchangeRate, error) {
	var out []core.ExchangeRate
	err := s.read(func(st *state.State) {
		out = st.RateSeries(s.asOf(), days)
	})
	return out, err
}

// RefreshExchangeRate fetches today's rate and records it unless it was
// already fetched today.
func (s *FinanceService) RefreshExchangeRate(ctx context.Context) (core.ExchangeRate, error) {
	if s.rates == nil {
		return core.ExchangeRate{}, ErrNoRateSource
	}
	rate, fresh, err := s.rates.Refresh(ctx)
	if err != nil {
		return core.ExchangeRate{}, fmt.Errorf("refresh exchange rate: %w", err)
	}
	if fresh {
		if err := s.recordRate(ctx, rate); err != nil {
			return core.ExchangeRate{}, err
		}
	}
	return rate, nil
}

func (s *FinanceService) recordRate(ctx context.Context, rate core.ExchangeRate) error {
	err := s.mutate(ctx, func(st *state.State) error {
		_, err := st.AddExchangeRate(rate)
		return err
	})
	if err == nil {
		slog.InfoContext(ctx, "Exchange rate recorded", "date", rate.Date, "rate", rate.Rate.String(), "source", rate.Source)
	}
	return err
}

func (s *FinanceService) Export() (state.Snapshot, error) {
	var out state.Snapshot
	err := s.read(func(st *state.State) {
		out = st.Export(s.now())
	})
	return out, err
}

// Import merges transactions and goals from an export document.
func (s *FinanceService) Import(ctx context.Context, b state.ImportBatch) (state.ImportResult, error) {
	var (
		res   state.ImportResult
		added []core.Transaction
	)
	err := s.mutate(ctx, func(st *state.State) error {
		before := st.Expenses.Len()
		res = st.Import(b)
		added = st.Transactions()[before:]
		return nil
	})
	if err != nil {
		return state.ImportResult{}, err
	}
	slog.InfoContext(ctx, "Import complete",
		"transactions", res.Transactions,
		"goals", res.Goals,
		"skipped", res.Skipped)
	s.publish(ctx, amqp.SourceImport, added...)
	return res, nil
}
