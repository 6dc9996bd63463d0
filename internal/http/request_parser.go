// Package http serves the finance JSON API.
//
// This file implements utilities for parsing and validating request data:
// bounded JSON decoding, lenient amount parsing and the request payloads.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 16 << 20
)

// requestError marks a malformed request, reported as 400.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

// decodeJSON reads at most limit bytes of JSON from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty", nil)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), nil)
		}
		return badRequest("invalid JSON body", err)
	}
	return nil
}

// Amount accepts a JSON number or a string using either decimal separator,
// such as "1.500.000" or "12,50".
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if raw == "null" {
		return nil
	}
	if !strings.HasPrefix(raw, `"`) {
		// a JSON number is never grouped
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("amount %s: %w", raw, core.ErrInvalidAmount)
		}
		if err := core.ValidateAmount(d); err != nil {
			return fmt.Errorf("amount %s: %w", raw, err)
		}
		a.Decimal = d
		return nil
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("amount %q: %w", raw, err)
	}
	a.Decimal = d
	return nil
}

// parseOptionalDate parses a YYYY-MM-DD date in loc or an RFC 3339
// timestamp. An empty string is the zero time.
func parseOptionalDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := core.ParseDate(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

type transactionRequest struct {
	Amount   Amount               `json:"amount"`
	Currency core.Currency        `json:"currency"`
	Date     string               `json:"date"`
	Category string               `json:"category"`
	Type     core.TransactionType `json:"type"`
	Notes    string               `json:"notes"`
}

func (req transactionRequest) toTransaction(loc *time.Location) (core.Transaction, error) {
	date, err := parseOptionalDate(req.Date, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Amount:   req.Amount.Decimal,
		Currency: req.Currency,
		Date:     date,
		Category: sanitizeInput(req.Category),
		Type:     req.Type,
		Notes:    sanitizeInput(req.Notes),
	}, nil
}

type recurringRequest struct {
	Name     string        `json:"name"`
	Amount   Amount        `json:"amount"`
	Currency core.Currency `json:"currency"`
	Category string        `json:"category"`
	Interval core.Interval `json:"interval"`
	LastPaid string        `json:"lastPaid"`
}

func (req recurringRequest) toRecurring(loc *time.Location) (core.RecurringExpense, error) {
	lastPaid, err := parseOptionalDate(req.LastPaid, loc)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	return core.RecurringExpense{
		Name:     sanitizeInput(req.Name),
		Amount:   req.Amount.Decimal,
		Currency: req.Currency,
		Category: sanitizeInput(req.Category),
		Interval: req.Interval,
		LastPaid: lastPaid,
	}, nil
}

type plannedRequest struct {
	Title      string        `json:"title"`
	Amount     Amount        `json:"amount"`
	Currency   core.Currency `json:"currency"`
	Category   string        `json:"category"`
	TargetDate string        `json:"targetDate"`
	Notes      string        `json:"notes"`
}

func (req plannedRequest) toPlanned(loc *time.Location) (core.PlannedExpense, error) {
	target, err := parseOptionalDate(req.TargetDate, loc)
	if err != nil {
		return core.PlannedExpense{}, err
	}
	return core.PlannedExpense{
		Title:      sanitizeInput(req.Title),
		Amount:     req.Amount.Decimal,
		Currency:   req.Currency,
		Category:   sanitizeInput(req.Category),
		TargetDate: target,
		Notes:      sanitizeInput(req.Notes),
	}, nil
}

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount Amount `json:"targetAmount"`
	TargetDate   string `json:"targetDate"`
	Category     string `json:"category"`
}

func (req goalRequest) toGoal(loc *time.Location) (core.Goal, error) {
	target, err := parseOptionalDate(req.TargetDate, loc)
	if err != nil {
		return core.Goal{}, err
	}
	return core.Goal{
		Name:         sanitizeInput(req.Name),
		TargetAmount: req.TargetAmount.Decimal,
		TargetDate:   target,
		Category:     sanitizeInput(req.Category),
	}, nil
}

type budgetRequest struct {
	Limit Amount `json:"limit"`
}

// parseDays reads the "days" query parameter, falling back to def for
// missing or invalid values and capping at one year.
func parseDays(query url.Values, def int) int {
	v := strings.TrimSpace(query.Get("days"))
	if v == "" {
		return def
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 {
		return def
	}
	if days > 366 {
		return 366
	}
	return days
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
