// Package state is the application state container: the persisted-state
// shape plus the operations that mutate it. Engine and analytics functions
// read from it but never hold a reference to it.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

var ErrNotFound = errors.New("not found")

// newID generates record identifiers; tests replace it for determinism.
var newID = uuid.NewString

// State is the single serialized object the storage layer persists. Its
// JSON field names are the persisted shape and must not change.
type State struct {
	Expenses          *ledger.Ledger          `json:"expenses"`
	Goals             []core.Goal             `json:"goals"`
	Budgets           core.Budgets            `json:"budgets"`
	RecurringExpenses []core.RecurringExpense `json:"recurringExpenses"`
	PlannedExpenses   []core.PlannedExpense   `json:"plannedExpenses"`
	ExchangeRates     []core.ExchangeRate     `json:"exchangeRates"`
	Settings          core.Settings           `json:"settings"`
}

// New returns an empty state with default settings.
func New() *State {
	s := &State{Settings: core.DefaultSettings()}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones so the encoded shape
// always carries arrays and objects, never null.
func (s *State) Normalize() {
	if s.Expenses == nil {
		s.Expenses, _ = ledger.New(nil)
	}
	if s.Goals == nil {
		s.Goals = []core.Goal{}
	}
	if s.Budgets == nil {
		s.Budgets = core.Budgets{}
	}
	if s.RecurringExpenses == nil {
		s.RecurringExpenses = []core.RecurringExpense{}
	}
	if s.PlannedExpenses == nil {
		s.PlannedExpenses = []core.PlannedExpense{}
	}
	if s.ExchangeRates == nil {
		s.ExchangeRates = []core.ExchangeRate{}
	}
}

// Decode reads a persisted snapshot. Keys missing from the input keep their
// defaults, so a partial settings object merges over DefaultSettings.
func Decode(r io.Reader) (*State, error) {
	s := New()
	if err := json.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Encode writes the snapshot as indented JSON.
func (s *State) Encode(w io.Writer) error {
	s.Normalize()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

// Clone returns a copy that shares no mutable collections with s.
func (s *State) Clone() *State {
	expenses, _ := ledger.New(s.Expenses.All())
	c := &State{
		Expenses:          expenses,
		Goals:             append([]core.Goal{}, s.Goals...),
		Budgets:           make(core.Budgets, len(s.Budgets)),
		RecurringExpenses: append([]core.RecurringExpense{}, s.RecurringExpenses...),
		PlannedExpenses:   append([]core.PlannedExpense{}, s.PlannedExpenses...),
		ExchangeRates:     append([]core.ExchangeRate{}, s.ExchangeRates...),
		Settings:          s.Settings,
	}
	for k, v := range s.Budgets {
		c.Budgets[k] = v
	}
	return c
}

// Transactions returns a copy of the transaction log.
func (s *State) Transactions() []core.Transaction {
	return s.Expenses.All()
}
