package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	IDR Currency = "IDR"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

type (
	Interval        string
	TransactionType string
	Currency        string

	// Transaction is a single posted income or expense. The sign lives in Type,
	// Amount is always positive.
	Transaction struct {
		ID       string          `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Currency Currency        `json:"currency"`
		Date     time.Time       `json:"date"`
		Category string          `json:"category"`
		Type     TransactionType `json:"type"`
		Notes    string          `json:"notes,omitempty"`
		// RecurringID points back at the template that generated the
		// transaction. It is only used to detect an already posted period.
		RecurringID *string `json:"recurringId,omitempty"`
	}

	RecurringExpense struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Amount   decimal.Decimal `json:"amount"`
		Currency Currency        `json:"currency"`
		Category string          `json:"category"`
		Interval Interval        `json:"interval"`
		LastPaid time.Time       `json:"lastPaid"`
	}

	PlannedExpense struct {
		ID         string          `json:"id"`
		Title      string          `json:"title"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   Currency        `json:"currency"`
		Category   string          `json:"category,omitempty"`
		TargetDate time.Time       `json:"targetDate"`
		Notes      string          `json:"notes,omitempty"`
	}

	Goal struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		TargetDate   time.Time       `json:"targetDate"`
		Category     string          `json:"category,omitempty"` // informational only
	}

	// Budgets maps a category to its monthly limit.
	Budgets map[string]decimal.Decimal

	ExchangeRate struct {
		Date   string          `json:"date"` // YYYY-MM-DD
		Rate   decimal.Decimal `json:"rate"` // IDR per 1 EUR
		Source string          `json:"source"`
	}

	Settings struct {
		DefaultCurrency   Currency        `json:"defaultCurrency"`
		ExchangeRate      decimal.Decimal `json:"exchangeRate"`
		ShowEurEquivalent bool            `json:"showEurEquivalent"`
		AutoAddRecurring  bool            `json:"autoAddRecurring"`
		Theme             string          `json:"theme"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrMissingName     = errors.New("missing name")
	ErrInvalidDate     = errors.New("invalid date")
)

// DefaultCategories seeds the category pickers; users may add any other label.
var DefaultCategories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Health & Fitness",
	"Travel",
	"Education",
	"Business",
	"Other",
}

func Currencies() []Currency {
	return []Currency{IDR, EUR, USD}
}

func (c Currency) Valid() bool {
	switch c {
	case IDR, EUR, USD:
		return true
	default:
		return false
	}
}

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (i Interval) Valid() bool {
	switch i {
	case Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// NormalizeCategory trims the label and rejects empty ones. Every creation
// path goes through here so the budget and aggregation keys stay consistent.
func NormalizeCategory(category string) (string, error) {
	c := strings.TrimSpace(category)
	if c == "" {
		return "", ErrMissingCategory
	}
	return c, nil
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// DefaultSettings mirrors the values a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		DefaultCurrency:   IDR,
		ExchangeRate:      decimal.NewFromInt(16500),
		ShowEurEquivalent: true,
		AutoAddRecurring:  true,
		Theme:             "light",
	}
}

// ConvertToEUR converts an IDR amount with the configured rate. A zero rate
// yields zero rather than a division error.
func (s Settings) ConvertToEUR(amountIDR decimal.Decimal) decimal.Decimal {
	if !s.ExchangeRate.IsPositive() {
		return decimal.Zero
	}
	return amountIDR.Div(s.ExchangeRate)
}

func (t Transaction) IsExpense() bool { return t.Type == Expense }
func (t Transaction) IsIncome() bool  { return t.Type == Income }

// FromRecurring reports whether t was generated by the given template.
func (t Transaction) FromRecurring(recurringID string) bool {
	return t.RecurringID != nil && *t.RecurringID == recurringID
}

// Validate normalizes the category in place and checks the remaining fields.
func (t *Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	category, err := NormalizeCategory(t.Category)
	if err != nil {
		return err
	}
	t.Category = category
	if !t.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (r *RecurringExpense) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	category, err := NormalizeCategory(r.Category)
	if err != nil {
		return err
	}
	r.Category = category
	if !r.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !r.Interval.Valid() {
		return ErrInvalidInterval
	}
	return nil
}

func (p *PlannedExpense) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingName
	}
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	// Category is optional on a plan; trim it when present.
	p.Category = strings.TrimSpace(p.Category)
	if !p.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if p.TargetDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (g *Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrMissingName
	}
	if err := ValidateAmount(g.TargetAmount); err != nil {
		return err
	}
	g.Category = strings.TrimSpace(g.Category)
	return nil
}
