package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event kinds published after store mutations.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	EventSavingsUpdated     = "savings.updated"
)

// LedgerEventMessage is a lightweight notification that a month's projection
// is stale. It carries only identifiers; the consumer re-fetches and
// re-projects the affected month from the store.
type LedgerEventMessage struct {
	Kind          string    `json:"kind"`
	UserID        int64     `json:"userId"`
	TransactionID int64     `json:"transactionId,omitempty"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for the given user and month.
func NewLedgerEventMessage(kind string, userID, transactionID int64, year, month int) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:          kind,
		UserID:        userID,
		TransactionID: transactionID,
		Year:          year,
		Month:         month,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
