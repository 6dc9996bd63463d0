package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Source tells consumers which path produced a transaction.
type Source string

const (
	SourceUser    Source = "user"
	SourceAuto    Source = "recurring_auto"
	SourceManual  Source = "recurring_manual"
	SourcePlanned Source = "planned"
	SourceImport  Source = "import"
)

// TransactionPostedMessage is published once for every transaction that
// enters the log. It carries the full record so consumers need no access
// to the state file.
type TransactionPostedMessage struct {
	TransactionID string               `json:"transactionId"`
	RecurringID   string               `json:"recurringId,omitempty"`
	Type          core.TransactionType `json:"type"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      core.Currency        `json:"currency"`
	Category      string               `json:"category"`
	Date          time.Time            `json:"date"`
	Source        Source               `json:"source"`
	Timestamp     time.Time            `json:"timestamp"`
}

func NewTransactionPostedMessage(tx core.Transaction, source Source) *TransactionPostedMessage {
	msg := &TransactionPostedMessage{
		TransactionID: tx.ID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Category:      tx.Category,
		Date:          tx.Date,
		Source:        source,
		Timestamp:     time.Now(),
	}
	if tx.RecurringID != nil {
		msg.RecurringID = *tx.RecurringID
	}
	return msg
}

func (m *TransactionPostedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionPostedMessageFromJSON(data []byte) (*TransactionPostedMessage, error) {
	var msg TransactionPostedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
