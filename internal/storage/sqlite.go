package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/state"
)

const timeLayout = time.RFC3339Nano

// SQLiteStore keeps the snapshot in relational tables. Save replaces every
// row inside one transaction; list order is kept in a position column.
// Every save bumps a revision row, and a Save based on an older revision
// than the one stored fails with ErrConflict.
type SQLiteStore struct {
	db *sql.DB

	mu       sync.Mutex
	tracked  bool
	revision int64
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between the API and the ticker
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// the worker and the server may write the same file
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*state.State, error) {
	st := state.New()

	// read before the rows: a concurrent save then shows up as a conflict
	rev, err := s.currentRevision(ctx, s.db)
	if err != nil {
		return nil, err
	}

	txs, err := s.loadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if st.Expenses, err = ledger.New(txs); err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}
	if st.RecurringExpenses, err = s.loadRecurring(ctx); err != nil {
		return nil, err
	}
	if st.PlannedExpenses, err = s.loadPlanned(ctx); err != nil {
		return nil, err
	}
	if st.Goals, err = s.loadGoals(ctx); err != nil {
		return nil, err
	}
	if st.Budgets, err = s.loadBudgets(ctx); err != nil {
		return nil, err
	}
	if st.ExchangeRates, err = s.loadRates(ctx); err != nil {
		return nil, err
	}
	if err := s.loadSettings(ctx, &st.Settings); err != nil {
		return nil, err
	}

	st.Normalize()
	s.track(rev)
	return st, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) currentRevision(ctx context.Context, q querier) (int64, error) {
	var rev int64
	if err := q.QueryRowContext(ctx, `SELECT revision FROM state_revision WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read state revision: %w", err)
	}
	return rev, nil
}

func (s *SQLiteStore) track(rev int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = true
	s.revision = rev
}

func (s *SQLiteStore) Save(ctx context.Context, st *state.State) (err error) {
	s.mu.Lock()
	tracked, base := s.tracked, s.revision
	s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// bumping the revision first takes the write lock for the whole save
	bump := `UPDATE state_revision SET revision = revision + 1 WHERE id = 1`
	var args []any
	if tracked {
		bump += ` AND revision = ?`
		args = append(args, base)
	}
	res, err := tx.ExecContext(ctx, bump, args...)
	if err != nil {
		return fmt.Errorf("bump state revision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump state revision: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	rev, err := s.currentRevision(ctx, tx)
	if err != nil {
		return err
	}

	for _, table := range []string{"transactions", "recurring_expenses", "planned_expenses", "goals", "budgets", "exchange_rates", "settings"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, t := range st.Transactions() {
		var recurringID sql.NullString
		if t.RecurringID != nil {
			recurringID = sql.NullString{String: *t.RecurringID, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (position, id, amount, currency, occurred_at, category, type, notes, recurring_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, t.ID, t.Amount.String(), string(t.Currency), formatTime(t.Date), t.Category, string(t.Type), t.Notes, recurringID)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	for i, r := range st.RecurringExpenses {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recurring_expenses (position, id, name, amount, currency, category, interval, last_paid)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.ID, r.Name, r.Amount.String(), string(r.Currency), r.Category, string(r.Interval), formatTime(r.LastPaid))
		if err != nil {
			return fmt.Errorf("insert recurring expense %s: %w", r.ID, err)
		}
	}

	for i, p := range st.PlannedExpenses {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO planned_expenses (position, id, title, amount, currency, category, target_date, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, p.ID, p.Title, p.Amount.String(), string(p.Currency), p.Category, formatTime(p.TargetDate), p.Notes)
		if err != nil {
			return fmt.Errorf("insert planned expense %s: %w", p.ID, err)
		}
	}

	for i, g := range st.Goals {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO goals (position, id, name, target_amount, target_date, category)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			i, g.ID, g.Name, g.TargetAmount.String(), formatTime(g.TargetDate), g.Category)
		if err != nil {
			return fmt.Errorf("insert goal %s: %w", g.ID, err)
		}
	}

	for category, limit := range st.Budgets {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO budgets (category, limit_amount) VALUES (?, ?)`,
			category, limit.String())
		if err != nil {
			return fmt.Errorf("insert budget %q: %w", category, err)
		}
	}

	for i, r := range st.ExchangeRates {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO exchange_rates (position, day, rate, source) VALUES (?, ?, ?, ?)`,
			i, r.Date, r.Rate.String(), r.Source)
		if err != nil {
			return fmt.Errorf("insert exchange rate %s: %w", r.Date, err)
		}
	}

	set := st.Settings
	_, err = tx.ExecContext(ctx,
		`INSERT INTO settings (id, default_currency, exchange_rate, show_eur_equivalent, auto_add_recurring, theme)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		string(set.DefaultCurrency), set.ExchangeRate.String(), set.ShowEurEquivalent, set.AutoAddRecurring, set.Theme)
	if err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.track(rev)

	slog.DebugContext(ctx, "State saved to SQLite",
		"transactions", st.Expenses.Len(),
		"recurring", len(st.RecurringExpenses),
		"goals", len(st.Goals))
	return nil
}

func (s *SQLiteStore) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, currency, occurred_at, category, type, notes, recurring_id
		 FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                          core.Transaction
			amount, currency, occurred string
			typ                        string
			recurringID                sql.NullString
		)
		if err := rows.Scan(&t.ID, &amount, &currency, &occurred, &t.Category, &typ, &t.Notes, &recurringID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.Date, err = parseTime(occurred); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		t.Currency = core.Currency(currency)
		t.Type = core.TransactionType(typ)
		if recurringID.Valid {
			id := recurringID.String
			t.RecurringID = &id
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, amount, currency, category, interval, last_paid
		 FROM recurring_expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		var (
			r                                  core.RecurringExpense
			amount, currency, interval, paidAt string
		)
		if err := rows.Scan(&r.ID, &r.Name, &amount, &currency, &r.Category, &interval, &paidAt); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("recurring expense %s amount: %w", r.ID, err)
		}
		if r.LastPaid, err = parseTime(paidAt); err != nil {
			return nil, fmt.Errorf("recurring expense %s last paid: %w", r.ID, err)
		}
		r.Currency = core.Currency(currency)
		r.Interval = core.Interval(interval)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadPlanned(ctx context.Context) ([]core.PlannedExpense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, amount, currency, category, target_date, notes
		 FROM planned_expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query planned expenses: %w", err)
	}
	defer rows.Close()

	var out []core.PlannedExpense
	for rows.Next() {
		var (
			p                        core.PlannedExpense
			amount, currency, target string
		)
		if err := rows.Scan(&p.ID, &p.Title, &amount, &currency, &p.Category, &target, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan planned expense: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("planned expense %s amount: %w", p.ID, err)
		}
		if p.TargetDate, err = parseTime(target); err != nil {
			return nil, fmt.Errorf("planned expense %s target date: %w", p.ID, err)
		}
		p.Currency = core.Currency(currency)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, target_amount, target_date, category FROM goals ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g              core.Goal
			amount, target string
		)
		if err := rows.Scan(&g.ID, &g.Name, &amount, &target, &g.Category); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.TargetAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("goal %s amount: %w", g.ID, err)
		}
		if g.TargetDate, err = parseTime(target); err != nil {
			return nil, fmt.Errorf("goal %s target date: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadBudgets(ctx context.Context) (core.Budgets, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, limit_amount FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := core.Budgets{}
	for rows.Next() {
		var category, limit string
		if err := rows.Scan(&category, &limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return nil, fmt.Errorf("budget %q limit: %w", category, err)
		}
		out[category] = d
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadRates(ctx context.Context) ([]core.ExchangeRate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, rate, source FROM exchange_rates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query exchange rates: %w", err)
	}
	defer rows.Close()

	var out []core.ExchangeRate
	for rows.Next() {
		var (
			r    core.ExchangeRate
			rate string
		)
		if err := rows.Scan(&r.Date, &rate, &r.Source); err != nil {
			return nil, fmt.Errorf("scan exchange rate: %w", err)
		}
		if r.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("exchange rate %s: %w", r.Date, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// loadSettings leaves the defaults in place when no row has been saved yet.
func (s *SQLiteStore) loadSettings(ctx context.Context, set *core.Settings) error {
	var currency, rate string
	row := s.db.QueryRowContext(ctx,
		`SELECT default_currency, exchange_rate, show_eur_equivalent, auto_add_recurring, theme
		 FROM settings WHERE id = 1`)
	next := *set
	err := row.Scan(&currency, &rate, &next.ShowEurEquivalent, &next.AutoAddRecurring, &next.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query settings: %w", err)
	}
	if next.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
		return fmt.Errorf("settings exchange rate: %w", err)
	}
	next.DefaultCurrency = core.Currency(currency)
	*set = next
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
