package fx

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

const asyncTimeout = 15 * time.Second

// RateFetcher is the upstream a Refresher reads from.
type RateFetcher interface {
	Latest(ctx context.Context) (core.ExchangeRate, error)
}

// Refresher caches one fetched rate per day and collapses concurrent
// fetches into a single upstream call.
type Refresher struct {
	fetcher RateFetcher
	cache   cache.Cache[core.ExchangeRate]
	group   singleflight.Group
	loc     *time.Location
	now     func() time.Time
}

func NewRefresher(f RateFetcher, c cache.Cache[core.ExchangeRate], loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{fetcher: f, cache: c, loc: loc, now: time.Now}
}

// Refresh returns today's rate. fresh is true when it came from upstream
// rather than the cache.
func (r *Refresher) Refresh(ctx context.Context) (rate core.ExchangeRate, fresh bool, err error) {
	key := core.DayKey(r.now().In(r.loc))
	if cached, ok := r.cache.Get(key); ok {
		return cached, false, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		rate, err := r.fetcher.Latest(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, rate)
		return rate, nil
	})
	if err != nil {
		return core.ExchangeRate{}, false, err
	}
	return v.(core.ExchangeRate), true, nil
}

// RefreshAsync fetches in the background and hands a fresh rate to sink.
// Failures are logged and otherwise ignored; the caller never waits.
func (r *Refresher) RefreshAsync(ctx context.Context, sink func(core.ExchangeRate)) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, asyncTimeout)
		defer cancel()

		rate, fresh, err := r.Refresh(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Exchange rate refresh failed", "error", err)
			return
		}
		if fresh {
			sink(rate)
		}
	}()
}
