package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/google/uuid"

	"expenseview/internal/core"
	ports "expenseview/internal/remote"
)

var _ ports.Source = (*Store)(nil)

// Store is an in-process stand-in for the remote API, used for local
// development and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

func New(seed []core.Expense) *Store {
	return &Store{items: append([]core.Expense(nil), seed...)}
}

// NewFromFile seeds the store from a JSON document shaped like the list
// response ({"expenses": [...]}). A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc struct {
		Expenses []core.Expense `json:"expenses"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i := range doc.Expenses {
		if doc.Expenses[i].ID == "" {
			doc.Expenses[i].ID = uuid.NewString()
		}
	}
	return New(doc.Expenses), nil
}

// ListExpenses returns a copy of the stored list in insertion order.
func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

// CreateExpense assigns an identifier and stores the expense. A non-finite
// amount is stored as zero, which is what a JSON null decodes to.
func (s *Store) CreateExpense(_ context.Context, e core.NewExpense) (core.Expense, error) {
	amount := e.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	created := core.Expense{
		ID:          uuid.NewString(),
		Date:        e.Date,
		Description: e.Description,
		Category:    e.Category,
		Amount:      amount,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, created)
	return created, nil
}

// Len returns the number of stored expenses.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
