package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// TransactionEvent describes a write to the ledger. Consumers use it
// for export and notification pipelines; it carries the state after the
// write, or the last state before a delete.
type TransactionEvent struct {
	MessageID   string  `json:"message_id"`
	Action      string  `json:"action"`
	Kind        string  `json:"kind"`
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	AmountCents int64   `json:"amount_cents"`
	Category    *string `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	OccurredAt  string  `json:"occurred_at"`
}

func NewTransactionEvent(action string, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		MessageID:   uuid.NewString(),
		Action:      action,
		Kind:        string(t.Kind),
		ID:          t.ID,
		UserID:      t.OwnerID,
		AmountCents: t.Amount.Cents,
		Category:    t.CategoryName(),
		Date:        t.Date.String(),
		Description: t.Description,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
