package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerly/ledgerly-api/internal/model"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	// MaxAmount is the exclusive bound that fits DECIMAL(10,2).
	MaxAmount = 100000000
)

var (
	ErrExpenseDateRequired = errors.New("expense_date is required")
	ErrInvalidAmount       = errors.New("amount must be greater than 0")
	ErrAmountTooLarge      = fmt.Errorf("amount must be less than %d", MaxAmount)
	ErrInvalidPaymentMode  = errors.New("payment_mode must be one of: CASH UPI")
	ErrInvalidLimit        = fmt.Errorf("limit must be between 1 and %d", MaxHistoryLimit)
)

// ExpenseStore is the persistence the expense flows need.
type ExpenseStore interface {
	Create(ctx context.Context, e *model.Expense) error
	SumBetween(ctx context.Context, userID int64, from, to model.Date) (float64, error)
	Recent(ctx context.Context, userID int64, limit int) ([]model.Expense, error)
}

// ExpenseService records expenses and computes per-user totals. "Today" and
// "this month" are taken in the configured location.
type ExpenseService struct {
	store ExpenseStore
	loc   *time.Location
	now   func() time.Time
}

// NewExpenseService creates a new ExpenseService. A nil loc means UTC.
func NewExpenseService(store ExpenseStore, loc *time.Location) *ExpenseService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseService{store: store, loc: loc, now: time.Now}
}

// Add stores an expense for userID.
func (s *ExpenseService) Add(ctx context.Context, userID int64, req model.ExpenseRequest) (model.ExpenseResponse, error) {
	if req.ExpenseDate.IsZero() {
		return model.ExpenseResponse{}, ErrExpenseDateRequired
	}
	// Bounds are checked on the stored, rounded value.
	amount := math.Round(req.Amount*100) / 100
	if !(amount > 0) {
		return model.ExpenseResponse{}, ErrInvalidAmount
	}
	if amount >= MaxAmount {
		return model.ExpenseResponse{}, ErrAmountTooLarge
	}
	if req.PaymentMode != model.PaymentModeCash && req.PaymentMode != model.PaymentModeUPI {
		return model.ExpenseResponse{}, ErrInvalidPaymentMode
	}

	expense := model.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Category:    req.Category,
		PaymentMode: req.PaymentMode,
		Description: req.Description,
		ExpenseDate: req.ExpenseDate,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Create(ctx, &expense); err != nil {
		return model.ExpenseResponse{}, fmt.Errorf("adding expense: %w", err)
	}

	return toResponse(expense), nil
}

// DailyTotal sums the user's expenses dated today.
func (s *ExpenseService) DailyTotal(ctx context.Context, userID int64) (model.DailyTotalResponse, error) {
	today := s.today()

	total, err := s.store.SumBetween(ctx, userID, today, today.AddDays(1))
	if err != nil {
		return model.DailyTotalResponse{}, fmt.Errorf("daily total: %w", err)
	}

	return model.DailyTotalResponse{Date: today, DailyTotal: total}, nil
}

// MonthlyTotal sums the user's expenses dated in the current calendar month.
func (s *ExpenseService) MonthlyTotal(ctx context.Context, userID int64) (model.MonthlyTotalResponse, error) {
	first := s.today().FirstOfMonth()

	total, err := s.store.SumBetween(ctx, userID, first, first.AddMonths(1))
	if err != nil {
		return model.MonthlyTotalResponse{}, fmt.Errorf("monthly total: %w", err)
	}

	return model.MonthlyTotalResponse{Month: first.Format("2006-01"), MonthlyTotal: total}, nil
}

// History returns the user's most recently recorded expenses, newest first.
// A zero limit means DefaultHistoryLimit.
func (s *ExpenseService) History(ctx context.Context, userID int64, limit int) ([]model.ExpenseResponse, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, ErrInvalidLimit
	}

	expenses, err := s.store.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("expense history: %w", err)
	}

	return expensesToResponse(expenses), nil
}

func (s *ExpenseService) today() model.Date {
	return model.NewDate(s.now().In(s.loc))
}

func toResponse(e model.Expense) model.ExpenseResponse {
	return model.ExpenseResponse{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		PaymentMode: e.PaymentMode,
		Description: e.Description,
		ExpenseDate: e.ExpenseDate,
	}
}

// expensesToResponse never returns nil so an empty history encodes as [].
func expensesToResponse(expenses []model.Expense) []model.ExpenseResponse {
	result := make([]model.ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		result = append(result, toResponse(e))
	}
	return result
}
