package amqp

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionEventMessage is a lightweight notification that a
// transaction changed. It carries only the id and category so the
// worker can re-check the affected budget, fetching details itself.
type TransactionEventMessage struct {
	TransactionID string    `json:"transaction_id"`
	CategoryID    string    `json:"category_id,omitempty"`
	Action        string    `json:"action"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewTransactionEventMessage(transactionID, categoryID, action string) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: transactionID,
		CategoryID:    categoryID,
		Action:        action,
		OccurredAt:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
