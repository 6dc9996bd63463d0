package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	applog "fintrack/internal/log"
)

// RecurringProcessor runs the auto-add recurring check on a schedule.
type RecurringProcessor struct {
	service *FinanceService
	// reload refreshes the in-memory read copy before every check. Writes
	// always start from the store, so this only affects how fresh reads are.
	reload bool
}

// NewRecurringProcessor creates a new recurring expense processor
func NewRecurringProcessor(service *FinanceService, reload bool) *RecurringProcessor {
	return &RecurringProcessor{
		service: service,
		reload:  reload,
	}
}

// ProcessDue posts every due recurring expense once and returns how many
// transactions were created. Nothing is posted while autoAddRecurring is off.
func (p *RecurringProcessor) ProcessDue(ctx context.Context) (int, error) {
	if p.service == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	if p.reload {
		if err := p.service.Reload(ctx); err != nil {
			return 0, err
		}
	}

	posted, err := p.service.AutoPostRecurring(ctx)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Recurring expense processing complete", "processed", len(posted))
	return len(posted), nil
}

// Run processes once immediately and then on every tick until ctx is done.
func (p *RecurringProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := p.ProcessDue(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial recurring processing failed", applog.FieldError, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := p.ProcessDue(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic recurring processing failed", applog.FieldError, err)
				continue
			}
			slog.DebugContext(ctx, "Next recurring check scheduled", "at", now.Add(interval).Format("15:04:05"))
		}
	}
}
