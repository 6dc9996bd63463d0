// Package recurring computes due dates for recurring expense templates and
// turns due occurrences into transactions.
//
// This file implements the interval strategies. Each interval (weekly,
// monthly, yearly) has a Stepper that advances a last-paid date by one period.
package recurring

import (
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
)

// Stepper advances a date by exactly one period of its interval.
type Stepper interface {
	Next(lastPaid time.Time) time.Time
}

// WeeklyStepper adds seven calendar days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(lastPaid time.Time) time.Time {
	return core.AddDays(lastPaid, 7)
}

// MonthlyStepper adds one calendar month, clamping to the month's last day.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(lastPaid time.Time) time.Time {
	return core.AddMonths(lastPaid, 1)
}

// YearlyStepper adds one calendar year; Feb 29 lands on Feb 28.
type YearlyStepper struct{}

func (YearlyStepper) Next(lastPaid time.Time) time.Time {
	return core.AddYears(lastPaid, 1)
}

var (
	steppersMu sync.RWMutex
	steppers   = map[core.Interval]Stepper{
		core.Weekly:  WeeklyStepper{},
		core.Monthly: MonthlyStepper{},
		core.Yearly:  YearlyStepper{},
	}
)

// GetStepper returns the stepper registered for interval.
func GetStepper(interval core.Interval) (Stepper, error) {
	steppersMu.RLock()
	s, ok := steppers[interval]
	steppersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidInterval, interval)
	}
	return s, nil
}

// RegisterStepper adds or replaces the stepper for an interval. It is safe
// to call while the engine is running.
func RegisterStepper(interval core.Interval, s Stepper) {
	steppersMu.Lock()
	defer steppersMu.Unlock()
	steppers[interval] = s
}

// stepperFor never fails: definitions with an unknown interval are treated
// as monthly, which is how stored data from older versions behaves.
func stepperFor(interval core.Interval) Stepper {
	if s, err := GetStepper(interval); err == nil {
		return s
	}
	return MonthlyStepper{}
}
