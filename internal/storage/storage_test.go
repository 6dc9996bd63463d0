package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/state"
)

func sampleState(t *testing.T) *state.State {
	t.Helper()
	s := state.New()
	rid := "rec-1"
	jakarta := time.FixedZone("WIB", 7*3600)

	for _, tx := range []core.Transaction{
		{ID: "tx-b", Amount: decimal.RequireFromString("12.345"), Currency: core.EUR, Date: time.Date(2024, 1, 5, 8, 0, 0, 123456789, time.UTC), Category: "Food & Dining", Type: core.Expense, Notes: "café"},
		{ID: "tx-a", Amount: decimal.NewFromInt(9000000), Currency: core.IDR, Date: time.Date(2024, 1, 1, 9, 0, 0, 0, jakarta), Category: "Salary", Type: core.Income},
		{ID: "tx-c", Amount: decimal.NewFromInt(5000000), Currency: core.IDR, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Category: "Bills & Utilities", Type: core.Expense, RecurringID: &rid},
	} {
		_, err := s.AddTransaction(tx)
		require.NoError(t, err)
	}
	s.RecurringExpenses = []core.RecurringExpense{{
		ID: rid, Name: "Rent", Amount: decimal.NewFromInt(5000000), Currency: core.IDR,
		Category: "Bills & Utilities", Interval: core.Monthly, LastPaid: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	s.PlannedExpenses = []core.PlannedExpense{{
		ID: "plan-1", Title: "Laptop", Amount: decimal.NewFromInt(900), Currency: core.EUR,
		TargetDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Notes: "work",
	}}
	s.Goals = []core.Goal{
		{ID: "g-2", Name: "Car", TargetAmount: decimal.NewFromInt(100000000), TargetDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "g-1", Name: "Trip", TargetAmount: decimal.NewFromInt(20000000), TargetDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Category: "Travel"},
	}
	s.Budgets = core.Budgets{"Food & Dining": decimal.NewFromInt(3000000), "Travel": decimal.RequireFromString("1500000.50")}
	s.ExchangeRates = []core.ExchangeRate{
		{Date: "2024-02-01", Rate: decimal.NewFromInt(17000), Source: "API"},
		{Date: "2024-01-31", Rate: decimal.NewFromInt(16900), Source: "API"},
	}
	s.Settings.Theme = "dark"
	s.Settings.AutoAddRecurring = false
	return s
}

func assertSameState(t *testing.T, want, got *state.State) {
	t.Helper()

	wt, gt := want.Transactions(), got.Transactions()
	require.Len(t, gt, len(wt))
	for i := range wt {
		assert.Equal(t, wt[i].ID, gt[i].ID, "order at %d", i)
		assert.True(t, wt[i].Amount.Equal(gt[i].Amount), "amount of %s", wt[i].ID)
		assert.True(t, wt[i].Date.Equal(gt[i].Date), "date of %s", wt[i].ID)
		assert.Equal(t, wt[i].Currency, gt[i].Currency)
		assert.Equal(t, wt[i].Category, gt[i].Category)
		assert.Equal(t, wt[i].Type, gt[i].Type)
		assert.Equal(t, wt[i].Notes, gt[i].Notes)
		assert.Equal(t, wt[i].RecurringID, gt[i].RecurringID)
	}

	require.Len(t, got.RecurringExpenses, len(want.RecurringExpenses))
	for i, r := range want.RecurringExpenses {
		g := got.RecurringExpenses[i]
		assert.Equal(t, r.ID, g.ID)
		assert.Equal(t, r.Interval, g.Interval)
		assert.True(t, r.LastPaid.Equal(g.LastPaid))
		assert.True(t, r.Amount.Equal(g.Amount))
	}

	require.Len(t, got.Goals, len(want.Goals))
	for i, g := range want.Goals {
		assert.Equal(t, g.ID, got.Goals[i].ID)
		assert.Equal(t, g.Category, got.Goals[i].Category)
		assert.True(t, g.TargetAmount.Equal(got.Goals[i].TargetAmount))
	}

	require.Len(t, got.Budgets, len(want.Budgets))
	for c, limit := range want.Budgets {
		assert.True(t, limit.Equal(got.Budgets[c]), "budget %s", c)
	}

	require.Len(t, got.PlannedExpenses, len(want.PlannedExpenses))
	assert.Equal(t, want.PlannedExpenses[0].Notes, got.PlannedExpenses[0].Notes)

	require.Len(t, got.ExchangeRates, len(want.ExchangeRates))
	assert.Equal(t, want.ExchangeRates[1].Date, got.ExchangeRates[1].Date)

	assert.Equal(t, want.Settings.Theme, got.Settings.Theme)
	assert.Equal(t, want.Settings.AutoAddRecurring, got.Settings.AutoAddRecurring)
	assert.Equal(t, want.Settings.ShowEurEquivalent, got.Settings.ShowEurEquivalent)
	assert.True(t, want.Settings.ExchangeRate.Equal(got.Settings.ExchangeRate))
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	factories := map[string]func(t *testing.T) Store{
		"json": func(t *testing.T) Store {
			s, err := NewJSONFileStore(filepath.Join(t.TempDir(), "nested", "fintrack.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fintrack.db"))
			require.NoError(t, err)
			return s
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
	}

	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()

			t.Run("empty store loads defaults", func(t *testing.T) {
				st, err := store.Load(ctx)
				require.NoError(t, err)
				assert.Equal(t, 0, st.Expenses.Len())
				assert.Equal(t, core.DefaultSettings().Theme, st.Settings.Theme)
			})

			t.Run("round trip", func(t *testing.T) {
				want := sampleState(t)
				require.NoError(t, store.Save(ctx, want))
				got, err := store.Load(ctx)
				require.NoError(t, err)
				assertSameState(t, want, got)
			})

			t.Run("save replaces previous snapshot", func(t *testing.T) {
				st, err := store.Load(ctx)
				require.NoError(t, err)
				require.NoError(t, st.DeleteTransaction("tx-a"))
				require.NoError(t, st.DeleteGoal("g-1"))
				delete(st.Budgets, "Travel")
				require.NoError(t, store.Save(ctx, st))

				got, err := store.Load(ctx)
				require.NoError(t, err)
				assertSameState(t, st, got)
				assert.Equal(t, 2, got.Expenses.Len())
			})
		})
	}
}

func TestJSONFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONFileStore(filepath.Join(dir, "fintrack.json"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(context.Background(), sampleState(t)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fintrack.json", entries[0].Name())
}

func TestJSONFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := NewJSONFileStore(path)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	want := sampleState(t)

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), want))
	require.NoError(t, first.Close())

	// migrations are idempotent on an existing database
	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Load(context.Background())
	require.NoError(t, err)
	assertSameState(t, want, got)
}

func TestMemoryStoreIsolatesSnapshots(t *testing.T) {
	store := NewMemoryStore()
	st := sampleState(t)
	require.NoError(t, store.Save(context.Background(), st))

	st.Goals = nil
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Goals, 2)
	assert.Equal(t, 1, store.Saves())
}

func TestStoresDetectConcurrentWriters(t *testing.T) {
	ctx := context.Background()

	pairs := map[string]func(t *testing.T) (Store, Store){
		"json": func(t *testing.T) (Store, Store) {
			path := filepath.Join(t.TempDir(), "fintrack.json")
			a, err := NewJSONFileStore(path)
			require.NoError(t, err)
			b, err := NewJSONFileStore(path)
			require.NoError(t, err)
			return a, b
		},
		"sqlite": func(t *testing.T) (Store, Store) {
			path := filepath.Join(t.TempDir(), "fintrack.db")
			a, err := NewSQLiteStore(path)
			require.NoError(t, err)
			b, err := NewSQLiteStore(path)
			require.NoError(t, err)
			t.Cleanup(func() { a.Close(); b.Close() })
			return a, b
		},
	}

	for name, open := range pairs {
		t.Run(name, func(t *testing.T) {
			server, worker := open(t)

			require.NoError(t, server.Save(ctx, sampleState(t)))

			stale, err := server.Load(ctx)
			require.NoError(t, err)
			fresh, err := worker.Load(ctx)
			require.NoError(t, err)

			require.NoError(t, fresh.DeleteGoal("g-1"))
			require.NoError(t, worker.Save(ctx, fresh))

			require.NoError(t, stale.DeleteTransaction("tx-a"))
			assert.ErrorIs(t, server.Save(ctx, stale), ErrConflict)

			reloaded, err := server.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, reloaded.Goals, 1)
			require.NoError(t, reloaded.DeleteTransaction("tx-a"))
			require.NoError(t, server.Save(ctx, reloaded))

			got, err := worker.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, got.Goals, 1)
			assert.Equal(t, 2, got.Expenses.Len())
		})
	}
}
