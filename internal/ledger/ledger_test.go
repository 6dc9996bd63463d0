package ledger

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func tx(id string, amount int64, day int) core.Transaction {
	return core.Transaction{
		ID:       id,
		Amount:   decimal.NewFromInt(amount),
		Currency: core.IDR,
		Date:     time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Category: "Food",
		Type:     core.Expense,
	}
}

func TestLedgerAppendKeepsOrderAndRejectsDuplicates(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, l.Append(tx("a", 10, 1)))
	require.NoError(t, l.Append(tx("b", 20, 2)))
	err = l.Append(tx("a", 30, 3))
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.ErrorIs(t, l.Append(tx("", 1, 1)), ErrMissingID)

	all := l.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]core.Transaction{tx("a", 1, 1), tx("a", 2, 2)})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestLedgerUpdateAndRemove(t *testing.T) {
	l, err := New([]core.Transaction{tx("a", 10, 1), tx("b", 20, 2), tx("c", 30, 3)})
	require.NoError(t, err)

	updated := tx("b", 99, 2)
	require.NoError(t, l.Update(updated))
	got, ok := l.Get("b")
	require.True(t, ok)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(99)))

	assert.ErrorIs(t, l.Update(tx("zzz", 1, 1)), ErrNotFound)

	require.NoError(t, l.Remove("a"))
	assert.ErrorIs(t, l.Remove("a"), ErrNotFound)
	assert.Equal(t, 2, l.Len())

	// index must still resolve after the shift
	got, ok = l.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
}

func TestHasOccurrence(t *testing.T) {
	rid := "rent"
	posted := tx("p1", 500, 15)
	posted.RecurringID = &rid
	l, err := New([]core.Transaction{tx("a", 10, 15), posted})
	require.NoError(t, err)

	due := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	assert.True(t, l.HasOccurrence("rent", due))
	assert.False(t, l.HasOccurrence("rent", due.AddDate(0, 0, 1)))
	assert.False(t, l.HasOccurrence("other", due))
}

func TestLedgerJSONIsPlainArray(t *testing.T) {
	l, err := New([]core.Transaction{tx("a", 10, 1)})
	require.NoError(t, err)

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, byte('['), data[0])

	var decoded Ledger
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 1, decoded.Len())
	got, ok := decoded.Get("a")
	require.True(t, ok)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(10)))

	assert.Error(t, json.Unmarshal([]byte(`[{"id":"x"},{"id":"x"}]`), &decoded))
}
