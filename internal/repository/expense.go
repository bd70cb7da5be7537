package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgerly/ledgerly-api/internal/model"
)

// ExpenseRepository handles expense persistence operations. Every query is
// scoped to a single user.
type ExpenseRepository struct {
	db *DB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db *DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts an expense. The caller assigns ID and CreatedAt.
func (r *ExpenseRepository) Create(ctx context.Context, e *model.Expense) error {
	query := `INSERT INTO transactions
		(id, amount, category, payment_mode, description, expense_date, created_at, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.dialect.Rebind(query),
		e.ID,
		e.Amount,
		e.Category,
		e.PaymentMode,
		e.Description,
		e.ExpenseDate,
		e.CreatedAt,
		e.UserID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SumBetween totals the user's expenses dated in [from, to). It returns 0
// when there are none.
func (r *ExpenseRepository) SumBetween(ctx context.Context, userID int64, from, to model.Date) (float64, error) {
	query := `SELECT SUM(amount) FROM transactions
		WHERE user_id = ? AND expense_date >= ? AND expense_date < ?`

	var total sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, r.db.dialect.Rebind(query), userID, from, to).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total.Float64, nil
}

// Recent returns the user's most recently created expenses, newest first.
func (r *ExpenseRepository) Recent(ctx context.Context, userID int64, limit int) ([]model.Expense, error) {
	query := `SELECT id, amount, category, payment_mode, description, expense_date, created_at, user_id
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.db.dialect.Rebind(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	expenses := make([]model.Expense, 0, limit)
	for rows.Next() {
		var (
			e           model.Expense
			paymentMode sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.Amount, &e.Category, &paymentMode,
			&description, &e.ExpenseDate, &e.CreatedAt, &e.UserID,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.PaymentMode = paymentMode.String
		e.Description = description.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return expenses, nil
}
