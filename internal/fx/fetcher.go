// Package fx fetches the EUR/IDR exchange rate from a public HTTP API.
// Fetching is optional and best effort: callers keep working with the
// configured rate when it fails.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	DefaultEndpoint = "https://api.exchangerate-api.com/v4/latest/EUR"
	SourceAPI       = "API"
)

var ErrRateMissing = errors.New("IDR rate missing from response")

// Fetcher reads rates.IDR from a "latest rates for EUR" endpoint.
type Fetcher struct {
	http     *http.Client
	endpoint string
	loc      *time.Location
	now      func() time.Time
}

func NewFetcher(endpoint string, timeout time.Duration, loc *time.Location) *Fetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if loc == nil {
		loc = time.Local
	}
	return &Fetcher{
		http:     &http.Client{Timeout: timeout},
		endpoint: endpoint,
		loc:      loc,
		now:      time.Now,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Latest returns today's rate, dated in the fetcher's location.
func (f *Fetcher) Latest(ctx context.Context) (core.ExchangeRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return core.ExchangeRate{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fintrack/1.0")

	resp, err := f.http.Do(req)
	if err != nil {
		return core.ExchangeRate{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.ExchangeRate{}, fmt.Errorf("fetch rates: http %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.ExchangeRate{}, fmt.Errorf("decode rates: %w", err)
	}
	rate, ok := body.Rates[string(core.IDR)]
	if !ok || !rate.IsPositive() {
		return core.ExchangeRate{}, ErrRateMissing
	}

	return core.ExchangeRate{
		Date:   core.DayKey(f.now().In(f.loc)),
		Rate:   rate,
		Source: SourceAPI,
	}, nil
}
