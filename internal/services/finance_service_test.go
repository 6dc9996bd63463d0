package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/recurring"
	"fintrack/internal/state"
	"fintrack/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.TransactionPostedMessage
	err      error
}

func (p *fakePublisher) PublishTransactionPosted(ctx context.Context, msg *amqp.TransactionPostedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *fakePublisher) sources() []amqp.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.Source, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Source)
	}
	return out
}

type fakeRates struct {
	rate  core.ExchangeRate
	fresh bool
	err   error
	calls int
}

func (r *fakeRates) Refresh(ctx context.Context) (core.ExchangeRate, bool, error) {
	r.calls++
	return r.rate, r.fresh, r.err
}

// RefreshAsync runs inline so tests can assert on the outcome.
func (r *fakeRates) RefreshAsync(ctx context.Context, sink func(core.ExchangeRate)) {
	rate, fresh, err := r.Refresh(ctx)
	if err == nil && fresh {
		sink(rate)
	}
}

type failingStore struct {
	*storage.MemoryStore
	fail bool
}

func (s *failingStore) Save(ctx context.Context, st *state.State) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, st)
}

func sequentialEngine() *recurring.Engine {
	n := 0
	return &recurring.Engine{NewID: func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}}
}

func rentTemplate() core.RecurringExpense {
	return core.RecurringExpense{
		ID:       "rent",
		Name:     "Rent",
		Amount:   decimal.NewFromInt(5000000),
		Currency: core.IDR,
		Category: "Bills & Utilities",
		Interval: core.Monthly,
		LastPaid: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	}
}

// newTestService seeds a memory store with st and loads it.
func newTestService(t *testing.T, st *state.State, opts ...Option) (*FinanceService, *failingStore, *fakePublisher) {
	t.Helper()
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	if st != nil {
		require.NoError(t, store.MemoryStore.Save(context.Background(), st))
	}
	pub := &fakePublisher{}
	opts = append([]Option{
		WithPublisher(pub),
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithEngine(sequentialEngine()),
	}, opts...)
	svc := NewFinanceService(store, opts...)
	require.NoError(t, svc.Load(context.Background()))
	return svc, store, pub
}

func TestFinanceService_NotLoaded(t *testing.T) {
	svc := NewFinanceService(storage.NewMemoryStore())

	_, err := svc.Transactions("")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = svc.AddTransaction(context.Background(), core.Transaction{})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestFinanceService_LoadPostsDueRecurring(t *testing.T) {
	t.Run("auto add on", func(t *testing.T) {
		st := state.New()
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}

		svc, store, pub := newTestService(t, st)

		txs, err := svc.Transactions("")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "Rent (Auto-added)", txs[0].Notes)
		assert.True(t, txs[0].Date.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
		require.NotNil(t, txs[0].RecurringID)
		assert.Equal(t, "rent", *txs[0].RecurringID)

		assert.Equal(t, []amqp.Source{amqp.SourceAuto}, pub.sources())
		assert.Equal(t, 2, store.Saves())

		saved, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.True(t, saved.RecurringExpenses[0].LastPaid.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("auto add off", func(t *testing.T) {
		st := state.New()
		st.Settings.AutoAddRecurring = false
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}

		svc, store, pub := newTestService(t, st)

		txs, err := svc.Transactions("")
		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.Empty(t, pub.sources())
		assert.Equal(t, 1, store.Saves(), "only the seed save")
	})

	t.Run("repeated checks post once", func(t *testing.T) {
		st := state.New()
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}
		svc, _, _ := newTestService(t, st)

		posted, err := svc.CheckRecurring(context.Background())
		require.NoError(t, err)
		assert.Empty(t, posted)

		require.NoError(t, svc.Load(context.Background()))
		txs, _ := svc.Transactions("")
		assert.Len(t, txs, 1)
	})
}

func TestFinanceService_AddTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults currency and date", func(t *testing.T) {
		svc, _, pub := newTestService(t, nil)

		tx, err := svc.AddTransaction(ctx, core.Transaction{
			Amount:   decimal.NewFromInt(50000),
			Category: "  Food & Dining ",
			Type:     core.Expense,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, core.IDR, tx.Currency)
		assert.Equal(t, "Food & Dining", tx.Category)
		assert.True(t, tx.Date.Equal(testNow))
		assert.Equal(t, []amqp.Source{amqp.SourceUser}, pub.sources())
	})

	t.Run("invalid transaction leaves state untouched", func(t *testing.T) {
		svc, store, pub := newTestService(t, nil)
		saves := store.Saves()

		_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(-1), Category: "Food", Type: core.Expense})
		assert.ErrorIs(t, err, core.ErrInvalidAmount)

		txs, _ := svc.Transactions("")
		assert.Empty(t, txs)
		assert.Equal(t, saves, store.Saves())
		assert.Empty(t, pub.sources())
	})

	t.Run("failed save leaves state untouched", func(t *testing.T) {
		svc, store, pub := newTestService(t, nil)
		store.fail = true

		_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(1), Category: "Food", Type: core.Expense})
		assert.Error(t, err)

		txs, _ := svc.Transactions("")
		assert.Empty(t, txs)
		assert.Empty(t, pub.sources())
	})

	t.Run("publish failure does not fail the posting", func(t *testing.T) {
		svc, _, pub := newTestService(t, nil)
		pub.err = errors.New("broker down")

		_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(1), Category: "Food", Type: core.Income})
		require.NoError(t, err)
		txs, _ := svc.Transactions("")
		assert.Len(t, txs, 1)
	})
}

func TestFinanceService_TransactionCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, nil)

	tx, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(10), Category: "Food", Type: core.Expense, Date: testNow})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(20), Category: "Travel", Type: core.Expense, Date: testNow})
	require.NoError(t, err)

	food, err := svc.Transactions("Food")
	require.NoError(t, err)
	assert.Len(t, food, 1)

	tx.Amount = decimal.NewFromInt(15)
	_, err = svc.UpdateTransaction(ctx, tx)
	require.NoError(t, err)
	food, _ = svc.Transactions("Food")
	assert.True(t, food[0].Amount.Equal(decimal.NewFromInt(15)))

	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, tx.ID), state.ErrNotFound)

	categories, err := svc.Categories()
	require.NoError(t, err)
	assert.Contains(t, categories, "Travel")
}

func TestFinanceService_Recurring(t *testing.T) {
	ctx := context.Background()

	t.Run("add seeds last paid and does not post", func(t *testing.T) {
		svc, _, pub := newTestService(t, nil)

		r := rentTemplate()
		r.LastPaid = time.Time{}
		added, err := svc.AddRecurring(ctx, r)
		require.NoError(t, err)
		assert.True(t, added.LastPaid.Equal(testNow))
		assert.Empty(t, pub.sources())

		upcoming, err := svc.Recurring()
		require.NoError(t, err)
		require.Len(t, upcoming, 1)
		assert.True(t, upcoming[0].NextDue.Equal(time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("add with past last paid posts immediately", func(t *testing.T) {
		svc, _, pub := newTestService(t, nil)

		_, err := svc.AddRecurring(ctx, rentTemplate())
		require.NoError(t, err)
		txs, _ := svc.Transactions("")
		assert.Len(t, txs, 1)
		assert.Equal(t, []amqp.Source{amqp.SourceAuto}, pub.sources())
	})

	t.Run("mark as paid ignores the due gate", func(t *testing.T) {
		st := state.New()
		r := rentTemplate()
		r.LastPaid = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		st.RecurringExpenses = []core.RecurringExpense{r}
		svc, _, pub := newTestService(t, st)

		tx, err := svc.MarkRecurringPaid(ctx, "rent")
		require.NoError(t, err)
		assert.Equal(t, "Rent (Manual)", tx.Notes)
		assert.True(t, tx.Date.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, []amqp.Source{amqp.SourceManual}, pub.sources())

		upcoming, _ := svc.Recurring()
		assert.True(t, upcoming[0].Recurring.LastPaid.Equal(tx.Date))

		_, err = svc.MarkRecurringPaid(ctx, "missing")
		assert.ErrorIs(t, err, state.ErrNotFound)
	})

	t.Run("delete keeps posted transactions", func(t *testing.T) {
		st := state.New()
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}
		svc, _, _ := newTestService(t, st)

		require.NoError(t, svc.DeleteRecurring(ctx, "rent"))
		upcoming, _ := svc.Recurring()
		assert.Empty(t, upcoming)
		txs, _ := svc.Transactions("")
		assert.Len(t, txs, 1)
	})

	t.Run("check runs even with auto add off", func(t *testing.T) {
		st := state.New()
		st.Settings.AutoAddRecurring = false
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}
		svc, _, _ := newTestService(t, st)

		posted, err := svc.CheckRecurring(ctx)
		require.NoError(t, err)
		assert.Len(t, posted, 1)
	})

	t.Run("enabling auto add posts due templates", func(t *testing.T) {
		st := state.New()
		st.Settings.AutoAddRecurring = false
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}
		svc, _, _ := newTestService(t, st)

		on := true
		settings, err := svc.UpdateSettings(ctx, state.SettingsPatch{AutoAddRecurring: &on})
		require.NoError(t, err)
		assert.True(t, settings.AutoAddRecurring)
		txs, _ := svc.Transactions("")
		assert.Len(t, txs, 1)
	})
}

func TestFinanceService_Planned(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t, nil)

	later, err := svc.AddPlanned(ctx, core.PlannedExpense{Title: "Laptop", Amount: decimal.NewFromInt(900), Currency: core.EUR, TargetDate: testNow.AddDate(0, 3, 0)})
	require.NoError(t, err)
	sooner, err := svc.AddPlanned(ctx, core.PlannedExpense{Title: "Dentist", Amount: decimal.NewFromInt(750000), TargetDate: testNow.AddDate(0, 1, 0), Notes: "checkup"})
	require.NoError(t, err)
	assert.Equal(t, core.IDR, sooner.Currency)

	planned, err := svc.Planned()
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Equal(t, sooner.ID, planned[0].ID)
	assert.Equal(t, later.ID, planned[1].ID)

	tx, err := svc.ConvertPlanned(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dentist - checkup", tx.Notes)
	assert.Equal(t, "Other", tx.Category)
	assert.True(t, tx.Date.Equal(testNow))
	assert.Equal(t, []amqp.Source{amqp.SourcePlanned}, pub.sources())

	planned, _ = svc.Planned()
	assert.Len(t, planned, 1)

	require.NoError(t, svc.DeletePlanned(ctx, later.ID))
	assert.ErrorIs(t, svc.DeletePlanned(ctx, later.ID), state.ErrNotFound)
}

func TestFinanceService_GoalsAndBudgets(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, nil)

	_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(1000), Category: "Salary", Type: core.Income})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(300), Category: "Food", Type: core.Expense})
	require.NoError(t, err)

	goal, err := svc.AddGoal(ctx, core.Goal{Name: "Trip", TargetAmount: decimal.NewFromInt(1400), TargetDate: testNow.AddDate(1, 0, 0)})
	require.NoError(t, err)

	goals, err := svc.Goals()
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.InDelta(t, 50.0, goals[0].Progress, 0.001)

	goal.TargetAmount = decimal.NewFromInt(700)
	require.NoError(t, svc.UpdateGoal(ctx, goal))
	goals, _ = svc.Goals()
	assert.InDelta(t, 100.0, goals[0].Progress, 0.001)
	require.NoError(t, svc.DeleteGoal(ctx, goal.ID))

	usage, err := svc.SetBudget(ctx, " Food ", decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, "Food", usage.Category)
	assert.InDelta(t, 150.0, usage.Percent, 0.001)
	assert.True(t, usage.Overspent)

	budgets, err := svc.Budgets()
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	require.NoError(t, svc.DeleteBudget(ctx, "Food"))
	assert.ErrorIs(t, svc.DeleteBudget(ctx, "Food"), state.ErrNotFound)

	dashboard, err := svc.Dashboard()
	require.NoError(t, err)
	assert.True(t, dashboard.Summary.Net.Value.Equal(decimal.NewFromInt(700)))
}

func TestFinanceService_ExchangeRates(t *testing.T) {
	ctx := context.Background()
	rate := core.ExchangeRate{Date: "2024-03-15", Rate: decimal.NewFromInt(17100), Source: "API"}

	t.Run("load records a fresh rate", func(t *testing.T) {
		rates := &fakeRates{rate: rate, fresh: true}
		svc, _, _ := newTestService(t, nil, WithRates(rates))

		series, err := svc.ExchangeRates(7)
		require.NoError(t, err)
		require.Len(t, series, 7)
		assert.Equal(t, "2024-03-15", series[6].Date)
		assert.True(t, series[6].Rate.Equal(decimal.NewFromInt(17100)))
		assert.Equal(t, state.SourceSettings, series[0].Source)
	})

	t.Run("cached rate is not recorded twice", func(t *testing.T) {
		rates := &fakeRates{rate: rate, fresh: false}
		svc, store, _ := newTestService(t, nil, WithRates(rates))
		saves := store.Saves()

		got, err := svc.RefreshExchangeRate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", got.Date)
		assert.Equal(t, saves, store.Saves())
	})

	t.Run("upstream failure", func(t *testing.T) {
		rates := &fakeRates{err: errors.New("timeout")}
		svc, _, _ := newTestService(t, nil, WithRates(rates))

		_, err := svc.RefreshExchangeRate(ctx)
		assert.Error(t, err)
	})

	t.Run("no source configured", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		_, err := svc.RefreshExchangeRate(ctx)
		assert.Error(t, err)
	})
}

func TestFinanceService_ExportImport(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService(t, nil)

	_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(10), Category: "Food", Type: core.Expense})
	require.NoError(t, err)

	snapshot, err := svc.Export()
	require.NoError(t, err)
	assert.Equal(t, state.ExportVersion, snapshot.Version)
	assert.True(t, snapshot.ExportDate.Equal(testNow))

	res, err := svc.Import(ctx, state.ImportBatch{
		Expenses: append(snapshot.Transactions(), core.Transaction{Category: "Food"}),
		Goals:    []core.Goal{{Name: "Fund", TargetAmount: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)
	assert.Equal(t, state.ImportResult{Transactions: 1, Goals: 1, Skipped: 1}, res)

	txs, _ := svc.Transactions("")
	require.Len(t, txs, 2)
	assert.NotEqual(t, txs[0].ID, txs[1].ID)
	assert.Equal(t, []amqp.Source{amqp.SourceUser, amqp.SourceImport}, pub.sources())
}

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()

	t.Run("uninitialized", func(t *testing.T) {
		_, err := NewRecurringProcessor(nil, false).ProcessDue(ctx)
		assert.Error(t, err)
	})

	t.Run("checks see templates written elsewhere", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil)

		st := state.New()
		st.RecurringExpenses = []core.RecurringExpense{rentTemplate()}
		require.NoError(t, store.Save(ctx, st))

		count, err := NewRecurringProcessor(svc, false).ProcessDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = NewRecurringProcessor(svc, false).ProcessDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("reload refreshes reads", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil)

		st := state.New()
		_, err := st.AddTransaction(core.Transaction{Amount: decimal.NewFromInt(10), Currency: core.IDR, Category: "Food", Type: core.Expense, Date: testNow})
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, st))

		txs, _ := svc.Transactions("")
		assert.Empty(t, txs)

		_, err = NewRecurringProcessor(svc, true).ProcessDue(ctx)
		require.NoError(t, err)
		txs, _ = svc.Transactions("")
		assert.Len(t, txs, 1)
	})

	t.Run("run stops with the context", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.NoError(t, NewRecurringProcessor(svc, false).Run(ctx, time.Hour))
	})
}

func TestFinanceService_SharedJSONStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.json")

	seed := state.New()
	seed.Settings.AutoAddRecurring = false
	seed.RecurringExpenses = []core.RecurringExpense{rentTemplate()}
	seedStore, err := storage.NewJSONFileStore(path)
	require.NoError(t, err)
	require.NoError(t, seedStore.Save(ctx, seed))

	open := func() *FinanceService {
		store, err := storage.NewJSONFileStore(path)
		require.NoError(t, err)
		svc := NewFinanceService(store,
			WithClock(func() time.Time { return testNow }),
			WithLocation(time.UTC))
		require.NoError(t, svc.Load(ctx))
		return svc
	}
	server := open()
	worker := open()

	posted, err := worker.CheckRecurring(ctx)
	require.NoError(t, err)
	require.Len(t, posted, 1)

	// the server still holds the snapshot from before the worker's posting
	_, err = server.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(75000), Category: "Food & Dining", Type: core.Expense})
	require.NoError(t, err)

	onDisk, err := storage.NewJSONFileStore(path)
	require.NoError(t, err)
	st, err := onDisk.Load(ctx)
	require.NoError(t, err)
	txs := st.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, posted[0].ID, txs[0].ID)
	assert.True(t, st.RecurringExpenses[0].LastPaid.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))

	again, err := server.CheckRecurring(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "the worker already posted this period")

	all, err := server.Transactions("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

type conflictOnceStore struct {
	*storage.MemoryStore
	conflicts int
}

func (s *conflictOnceStore) Save(ctx context.Context, st *state.State) error {
	if s.conflicts > 0 {
		s.conflicts--
		// another writer lands between our load and save
		other, err := s.MemoryStore.Load(ctx)
		if err != nil {
			return err
		}
		if _, err := other.AddGoal(core.Goal{Name: "Trip", TargetAmount: decimal.NewFromInt(1000), TargetDate: testNow.AddDate(1, 0, 0)}); err != nil {
			return err
		}
		if err := s.MemoryStore.Save(ctx, other); err != nil {
			return err
		}
		return storage.ErrConflict
	}
	return s.MemoryStore.Save(ctx, st)
}

func TestFinanceService_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("reapplies on fresh state", func(t *testing.T) {
		store := &conflictOnceStore{MemoryStore: storage.NewMemoryStore()}
		svc := NewFinanceService(store, WithClock(func() time.Time { return testNow }), WithLocation(time.UTC))
		require.NoError(t, svc.Load(ctx))
		store.conflicts = 1

		_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(10), Category: "Food", Type: core.Expense})
		require.NoError(t, err)

		txs, _ := svc.Transactions("")
		assert.Len(t, txs, 1)
		goals, _ := svc.Goals()
		assert.Len(t, goals, 1, "the other writer's goal survives")
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		store := &conflictOnceStore{MemoryStore: storage.NewMemoryStore()}
		svc := NewFinanceService(store, WithClock(func() time.Time { return testNow }), WithLocation(time.UTC))
		require.NoError(t, svc.Load(ctx))
		store.conflicts = maxSaveAttempts

		_, err := svc.AddTransaction(ctx, core.Transaction{Amount: decimal.NewFromInt(10), Category: "Food", Type: core.Expense})
		assert.ErrorIs(t, err, storage.ErrConflict)
	})
}

func TestFinanceService_LogsTransactionFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc, _, _ := newTestService(t, nil)
	tx, err := svc.AddTransaction(context.Background(), core.Transaction{Amount: decimal.NewFromInt(42000), Category: "Transportation", Type: core.Expense})
	require.NoError(t, err)

	out := buf.String()
	for _, want := range []string{
		applog.FieldTransactionID + "=" + tx.ID,
		applog.FieldAmount + "=42000",
		applog.FieldCurrency + "=IDR",
		applog.FieldCategory + "=Transportation",
	} {
		assert.Contains(t, out, want)
	}
}
