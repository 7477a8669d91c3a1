package remote

import (
	"context"

	"expenseview/internal/core"
)

// Ports for the remote expense source.
type (
	// ExpenseLister returns the full, server-ordered expense list.
	ExpenseLister interface {
		// ListExpenses fails with *core.FetchError.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	// ExpenseCreator stores a new expense and returns the created record.
	ExpenseCreator interface {
		// CreateExpense fails with *core.SubmitError.
		CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	}

	// Source is both halves of the remote API.
	Source interface {
		ExpenseLister
		ExpenseCreator
	}
)
