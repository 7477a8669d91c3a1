package amqp

import (
	"encoding/json"
	"time"

	"expenseview/internal/core"
)

// ExpenseCreatedMessage announces a record accepted by the remote source.
type ExpenseCreatedMessage struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseCreatedMessage stamps e with the current time.
func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:          e.ID,
		Date:        e.Date,
		Description: e.Description,
		Category:    e.Category,
		Amount:      e.Amount,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON creates a message from JSON bytes
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RefreshMessage asks the view to reload the expense list now. The body may
// be empty.
type RefreshMessage struct {
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RefreshMessageFromJSON parses a refresh request. An empty body is a valid
// request with no reason.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if len(data) == 0 {
		return &msg, nil
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
