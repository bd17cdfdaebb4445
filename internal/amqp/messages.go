package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionEvent announces a committed transaction. It carries only the id; the
// consumer loads the row itself so a stale event never mirrors stale data.
type TransactionEvent struct {
	MessageID     string    `json:"message_id"`
	TransactionID int64     `json:"transaction_id"`
	MonthKey      string    `json:"month_key"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps a new event with a fresh message id.
func NewTransactionEvent(txID int64, monthKey, source string) *TransactionEvent {
	return &TransactionEvent{
		MessageID:     uuid.NewString(),
		TransactionID: txID,
		MonthKey:      monthKey,
		Source:        source,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and checks it names a transaction.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.TransactionID <= 0 {
		return nil, fmt.Errorf("event %q has no transaction id", e.MessageID)
	}
	return &e, nil
}
