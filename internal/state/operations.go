package state

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/recurring"
)

const plannedFallbackCategory = "Other"

// AddTransaction validates tx, assigns an id when it has none and appends it
// to the log.
func (s *State) AddTransaction(tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}
	if tx.ID == "" {
		tx.ID = newID()
	}
	if err := s.Expenses.Append(tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// UpdateTransaction replaces a transaction. The recurring back-reference of
// the stored record is kept when tx carries none, since the idempotency
// check for recurring postings depends on it.
func (s *State) UpdateTransaction(tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}
	if prev, ok := s.Expenses.Get(tx.ID); ok && tx.RecurringID == nil && prev.RecurringID != nil {
		rid := *prev.RecurringID
		tx.RecurringID = &rid
	}
	if err := notFound("transaction", tx.ID, s.Expenses.Update(tx)); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *State) DeleteTransaction(id string) error {
	return notFound("transaction", id, s.Expenses.Remove(id))
}

func (s *State) AddGoal(g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("invalid goal: %w", err)
	}
	g.ID = newID()
	s.Goals = append(s.Goals, g)
	return g, nil
}

func (s *State) UpdateGoal(g core.Goal) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid goal: %w", err)
	}
	i := slices.IndexFunc(s.Goals, func(x core.Goal) bool { return x.ID == g.ID })
	if i < 0 {
		return fmt.Errorf("goal %s: %w", g.ID, ErrNotFound)
	}
	s.Goals[i] = g
	return nil
}

func (s *State) DeleteGoal(id string) error {
	n := len(s.Goals)
	s.Goals = slices.DeleteFunc(s.Goals, func(g core.Goal) bool { return g.ID == id })
	if len(s.Goals) == n {
		return fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetBudget creates or replaces the monthly limit of a category.
func (s *State) SetBudget(category string, limit decimal.Decimal) (string, error) {
	c, err := core.NormalizeCategory(category)
	if err != nil {
		return "", fmt.Errorf("invalid budget: %w", err)
	}
	if err := core.ValidateAmount(limit); err != nil {
		return "", fmt.Errorf("invalid budget: %w", err)
	}
	s.Budgets[c] = limit
	return c, nil
}

func (s *State) DeleteBudget(category string) error {
	c := strings.TrimSpace(category)
	if _, ok := s.Budgets[c]; !ok {
		return fmt.Errorf("budget %q: %w", c, ErrNotFound)
	}
	delete(s.Budgets, c)
	return nil
}

// AddRecurring stores a new template. A template that was never paid is
// seeded with its creation time.
func (s *State) AddRecurring(r core.RecurringExpense, now time.Time) (core.RecurringExpense, error) {
	if err := r.Validate(); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("invalid recurring expense: %w", err)
	}
	r.ID = newID()
	if r.LastPaid.IsZero() {
		r.LastPaid = now
	}
	s.RecurringExpenses = append(s.RecurringExpenses, r)
	return r, nil
}

func (s *State) UpdateRecurring(r core.RecurringExpense) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid recurring expense: %w", err)
	}
	i := s.recurringIndex(r.ID)
	if i < 0 {
		return fmt.Errorf("recurring expense %s: %w", r.ID, ErrNotFound)
	}
	if r.LastPaid.IsZero() {
		r.LastPaid = s.RecurringExpenses[i].LastPaid
	}
	s.RecurringExpenses[i] = r
	return nil
}

// DeleteRecurring removes the template. Transactions it already posted stay
// in the log.
func (s *State) DeleteRecurring(id string) error {
	n := len(s.RecurringExpenses)
	s.RecurringExpenses = slices.DeleteFunc(s.RecurringExpenses, func(r core.RecurringExpense) bool { return r.ID == id })
	if len(s.RecurringExpenses) == n {
		return fmt.Errorf("recurring expense %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *State) Recurring(id string) (core.RecurringExpense, error) {
	i := s.recurringIndex(id)
	if i < 0 {
		return core.RecurringExpense{}, fmt.Errorf("recurring expense %s: %w", id, ErrNotFound)
	}
	return s.RecurringExpenses[i], nil
}

func (s *State) recurringIndex(id string) int {
	return slices.IndexFunc(s.RecurringExpenses, func(r core.RecurringExpense) bool { return r.ID == id })
}

// ApplyPostings merges engine output: every transaction is appended and its
// template's LastPaid is advanced. A posting whose template was deleted in
// the meantime still lands in the log.
func (s *State) ApplyPostings(postings []recurring.Posting) error {
	for _, p := range postings {
		if err := s.Expenses.Append(p.Transaction); err != nil {
			return err
		}
		if i := s.recurringIndex(p.Recurring.ID); i >= 0 {
			s.RecurringExpenses[i].LastPaid = p.Recurring.LastPaid
		}
	}
	return nil
}

func (s *State) AddPlanned(p core.PlannedExpense) (core.PlannedExpense, error) {
	if err := p.Validate(); err != nil {
		return core.PlannedExpense{}, fmt.Errorf("invalid planned expense: %w", err)
	}
	p.ID = newID()
	s.PlannedExpenses = append(s.PlannedExpenses, p)
	return p, nil
}

func (s *State) UpdatePlanned(p core.PlannedExpense) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid planned expense: %w", err)
	}
	i := s.plannedIndex(p.ID)
	if i < 0 {
		return fmt.Errorf("planned expense %s: %w", p.ID, ErrNotFound)
	}
	s.PlannedExpenses[i] = p
	return nil
}

func (s *State) DeletePlanned(id string) error {
	i := s.plannedIndex(id)
	if i < 0 {
		return fmt.Errorf("planned expense %s: %w", id, ErrNotFound)
	}
	s.PlannedExpenses = slices.Delete(s.PlannedExpenses, i, i+1)
	return nil
}

func (s *State) plannedIndex(id string) int {
	return slices.IndexFunc(s.PlannedExpenses, func(p core.PlannedExpense) bool { return p.ID == id })
}

// ConvertPlanned turns a plan into an expense dated now and removes the plan.
func (s *State) ConvertPlanned(id string, now time.Time) (core.Transaction, error) {
	i := s.plannedIndex(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("planned expense %s: %w", id, ErrNotFound)
	}
	p := s.PlannedExpenses[i]

	category := p.Category
	if category == "" {
		category = plannedFallbackCategory
	}
	notes := p.Title
	if p.Notes != "" {
		notes = p.Title + " - " + p.Notes
	}

	tx, err := s.AddTransaction(core.Transaction{
		Amount:   p.Amount,
		Currency: p.Currency,
		Date:     now,
		Category: category,
		Type:     core.Expense,
		Notes:    notes,
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.PlannedExpenses = slices.Delete(s.PlannedExpenses, i, i+1)
	return tx, nil
}

// SettingsPatch carries a partial settings update; nil fields are kept.
type SettingsPatch struct {
	DefaultCurrency   *core.Currency   `json:"defaultCurrency,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchangeRate,omitempty"`
	ShowEurEquivalent *bool            `json:"showEurEquivalent,omitempty"`
	AutoAddRecurring  *bool            `json:"autoAddRecurring,omitempty"`
	Theme             *string          `json:"theme,omitempty"`
}

func (s *State) UpdateSettings(p SettingsPatch) (core.Settings, error) {
	next := s.Settings
	if p.DefaultCurrency != nil {
		if !p.DefaultCurrency.Valid() {
			return s.Settings, core.ErrInvalidCurrency
		}
		next.DefaultCurrency = *p.DefaultCurrency
	}
	if p.ExchangeRate != nil {
		if err := core.ValidateAmount(*p.ExchangeRate); err != nil {
			return s.Settings, fmt.Errorf("invalid exchange rate: %w", err)
		}
		next.ExchangeRate = *p.ExchangeRate
	}
	if p.ShowEurEquivalent != nil {
		next.ShowEurEquivalent = *p.ShowEurEquivalent
	}
	if p.AutoAddRecurring != nil {
		next.AutoAddRecurring = *p.AutoAddRecurring
	}
	if p.Theme != nil {
		next.Theme = *p.Theme
	}
	s.Settings = next
	return next, nil
}

// notFound translates the ledger's lookup error into the package sentinel.
func notFound(kind, id string, err error) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}
