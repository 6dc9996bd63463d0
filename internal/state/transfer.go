package state

import (
	"strings"
	"time"

	"fintrack/internal/core"
)

const ExportVersion = "1.0"

// Snapshot is the export document: the persisted shape stamped with the
// export time and format version.
type Snapshot struct {
	State
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
}

// Export copies the whole state into an export document.
func (s *State) Export(now time.Time) Snapshot {
	return Snapshot{State: *s.Clone(), ExportDate: now, Version: ExportVersion}
}

// ImportBatch is the part of an export document that can be imported.
type ImportBatch struct {
	Expenses []core.Transaction `json:"expenses"`
	Goals    []core.Goal        `json:"goals"`
}

type ImportResult struct {
	Transactions int `json:"transactions"`
	Goals        int `json:"goals"`
	Skipped      int `json:"skipped"`
}

// Import appends the batch with fresh ids. Transactions need an amount, a
// category and a date; a missing type defaults to expense and a missing
// currency to the configured default. Goals need a name and a target.
// Entries that still fail validation are skipped and counted.
func (s *State) Import(b ImportBatch) ImportResult {
	var res ImportResult
	for _, tx := range b.Expenses {
		if tx.Amount.IsZero() || strings.TrimSpace(tx.Category) == "" || tx.Date.IsZero() {
			res.Skipped++
			continue
		}
		if tx.Type == "" {
			tx.Type = core.Expense
		}
		if tx.Currency == "" {
			tx.Currency = s.Settings.DefaultCurrency
		}
		tx.ID = ""
		if _, err := s.AddTransaction(tx); err != nil {
			res.Skipped++
			continue
		}
		res.Transactions++
	}

	for _, g := range b.Goals {
		if _, err := s.AddGoal(g); err != nil {
			res.Skipped++
			continue
		}
		res.Goals++
	}
	return res
}
