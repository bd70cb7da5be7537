package model

import "time"

const (
	PaymentModeCash = "CASH"
	PaymentModeUPI  = "UPI"
)

// Expense represents a single spending transaction in the database.
type Expense struct {
	ID          string
	UserID      int64
	Amount      float64
	Category    string
	PaymentMode string
	Description string
	ExpenseDate Date
	CreatedAt   time.Time
}

// ExpenseRequest represents an expense submitted by a client.
type ExpenseRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0,lt=100000000"`
	Category    string  `json:"category" validate:"required,max=100"`
	PaymentMode string  `json:"payment_mode" validate:"required,oneof=CASH UPI"`
	Description string  `json:"description" validate:"max=1000"`
	ExpenseDate Date    `json:"expense_date"`
}

// ExpenseResponse represents an expense row returned by the history endpoint.
type ExpenseResponse struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	PaymentMode string  `json:"payment_mode"`
	Description string  `json:"description"`
	ExpenseDate Date    `json:"expense_date"`
}

// CreateExpenseResponse is returned after an expense is stored.
type CreateExpenseResponse struct {
	Message string          `json:"message"`
	Expense ExpenseResponse `json:"expense"`
}

// DailyTotalResponse is the sum of today's expenses.
type DailyTotalResponse struct {
	Date       Date    `json:"date"`
	DailyTotal float64 `json:"daily_total"`
}

// MonthlyTotalResponse is the sum of the current calendar month's expenses.
type MonthlyTotalResponse struct {
	Month        string  `json:"month"`
	MonthlyTotal float64 `json:"monthly_total"`
}
