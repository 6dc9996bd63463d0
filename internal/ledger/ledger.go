// Package ledger holds the transaction log: an ordered collection of
// transactions with unique identifiers. It carries no business rules beyond
// identity; aggregation lives in the analytics package.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrDuplicateID = errors.New("duplicate transaction id")
	ErrMissingID   = errors.New("transaction id is empty")
)

// Ledger keeps transactions in insertion order. It is not safe for
// concurrent use; callers own the synchronisation.
type Ledger struct {
	items []core.Transaction
	index map[string]int
}

// New builds a ledger from an existing log, rejecting duplicated ids.
func New(txs []core.Transaction) (*Ledger, error) {
	l := &Ledger{
		items: make([]core.Transaction, 0, len(txs)),
		index: make(map[string]int, len(txs)),
	}
	for _, tx := range txs {
		if err := l.Append(tx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Append adds tx at the end of the log.
func (l *Ledger) Append(tx core.Transaction) error {
	if tx.ID == "" {
		return ErrMissingID
	}
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if _, ok := l.index[tx.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
	}
	l.index[tx.ID] = len(l.items)
	l.items = append(l.items, tx)
	return nil
}

// Update replaces the transaction with the same id, keeping its position.
func (l *Ledger) Update(tx core.Transaction) error {
	i, ok := l.index[tx.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, tx.ID)
	}
	l.items[i] = tx
	return nil
}

// Remove deletes the transaction with the given id.
func (l *Ledger) Remove(id string) error {
	i, ok := l.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.items); j++ {
		l.index[l.items[j].ID] = j
	}
	return nil
}

func (l *Ledger) Get(id string) (core.Transaction, bool) {
	i, ok := l.index[id]
	if !ok {
		return core.Transaction{}, false
	}
	return l.items[i], true
}

// All returns a copy of the log in insertion order.
func (l *Ledger) All() []core.Transaction {
	if l == nil {
		return []core.Transaction{}
	}
	return append([]core.Transaction(nil), l.items...)
}

func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// HasOccurrence reports whether the log already holds a transaction generated
// by recurringID on the same calendar day as due.
func (l *Ledger) HasOccurrence(recurringID string, due time.Time) bool {
	if l == nil {
		return false
	}
	return HasOccurrence(l.items, recurringID, due)
}

// HasOccurrence is the lookup used for idempotent posting: same recurringId
// and same calendar day (in the location of due).
func HasOccurrence(txs []core.Transaction, recurringID string, due time.Time) bool {
	for _, tx := range txs {
		if tx.FromRecurring(recurringID) && core.SameDay(tx.Date, due) {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the ledger as a plain array, the persisted shape.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.All())
}

// UnmarshalJSON replaces the ledger contents with the decoded array.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return err
	}
	fresh, err := New(txs)
	if err != nil {
		return err
	}
	*l = *fresh
	return nil
}
