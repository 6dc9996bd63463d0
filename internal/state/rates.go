package state

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

const (
	DefaultRateWindow = 30
	SourceSettings    = "settings"
)

// AddExchangeRate appends to the rate history. The history is append-only;
// a second entry for the same day is kept but never shadows the first.
func (s *State) AddExchangeRate(r core.ExchangeRate) (core.ExchangeRate, error) {
	if _, err := time.Parse(core.DayKeyLayout, r.Date); err != nil {
		return core.ExchangeRate{}, fmt.Errorf("invalid exchange rate date %q: %w", r.Date, core.ErrInvalidDate)
	}
	if err := core.ValidateAmount(r.Rate); err != nil {
		return core.ExchangeRate{}, fmt.Errorf("invalid exchange rate: %w", err)
	}
	s.ExchangeRates = append(s.ExchangeRates, r)
	return r, nil
}

// RateSeries returns one rate per day for the days calendar days ending at
// asOf. Days without a recorded rate carry the configured settings rate.
func (s *State) RateSeries(asOf time.Time, days int) []core.ExchangeRate {
	if days <= 0 {
		days = DefaultRateWindow
	}
	byDay := make(map[string]core.ExchangeRate, len(s.ExchangeRates))
	for _, r := range s.ExchangeRates {
		if _, ok := byDay[r.Date]; !ok {
			byDay[r.Date] = r
		}
	}

	out := make([]core.ExchangeRate, 0, days)
	start := core.StartOfDay(core.AddDays(asOf, -(days - 1)))
	for i := 0; i < days; i++ {
		key := core.DayKey(core.AddDays(start, i))
		if r, ok := byDay[key]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, core.ExchangeRate{Date: key, Rate: s.Settings.ExchangeRate, Source: SourceSettings})
	}
	return out
}
