// Package storage is a SQLite-backed expense source for running the view
// without a remote API.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"expenseview/internal/core"
	applog "expenseview/internal/log"
	"expenseview/internal/remote"
)

var _ remote.Source = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(applog.ComponentRemote)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListExpenses returns every stored expense in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, category, amount FROM expenses ORDER BY seq`)
	if err != nil {
		return nil, &core.FetchError{Err: fmt.Errorf("query expenses: %w", err)}
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Description, &e.Category, &e.Amount); err != nil {
			return nil, &core.FetchError{Err: fmt.Errorf("scan expense: %w", err)}
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.FetchError{Err: err}
	}
	return expenses, nil
}

// CreateExpense stores the expense under a new identifier. A non-finite
// amount is stored as zero, which is what a JSON null decodes to.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
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

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, date, description, category, amount) VALUES (?, ?, ?, ?, ?)`,
		created.ID, created.Date, created.Description, created.Category, created.Amount)
	if err != nil {
		return core.Expense{}, &core.SubmitError{Err: fmt.Errorf("insert expense: %w", err)}
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, created.ID,
		applog.FieldExpenseDesc, created.Description,
		applog.FieldAmount, created.Amount)
	return created, nil
}

// Count returns the number of stored expenses.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}
