package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"github.com/ledgerly/ledgerly-api/internal/metrics"
	"github.com/ledgerly/ledgerly-api/internal/middleware"
	"github.com/ledgerly/ledgerly-api/internal/model"
	"github.com/ledgerly/ledgerly-api/internal/service"
)

// ExpenseHandler handles HTTP requests for expenses. Every route runs
// behind the auth gate and only sees the caller's own rows.
type ExpenseHandler struct {
	service *service.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{service: svc}
}

// HandleCreate handles POST /expenses.
func (h *ExpenseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("not authenticated"))
		return
	}

	var req model.ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bindError(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		bindError(w, err)
		return
	}

	expense, err := h.service.Add(r.Context(), identity.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExpenseDateRequired),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrAmountTooLarge),
			errors.Is(err, service.ErrInvalidPaymentMode):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			hlog.FromRequest(r).Error().Err(err).Int64("user_id", identity.ID).Msg("add expense failed")
			internalError(w)
		}
		return
	}

	metrics.ExpensesCreatedTotal.WithLabelValues(expense.PaymentMode).Inc()
	writeJSON(w, http.StatusCreated, model.CreateExpenseResponse{
		Message: "Expense added successfully",
		Expense: expense,
	})
}

// HandleDaily handles GET /expenses/daily.
func (h *ExpenseHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("not authenticated"))
		return
	}

	resp, err := h.service.DailyTotal(r.Context(), identity.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", identity.ID).Msg("daily total failed")
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMonthly handles GET /expenses/monthly.
func (h *ExpenseHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("not authenticated"))
		return
	}

	resp, err := h.service.MonthlyTotal(r.Context(), identity.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", identity.ID).Msg("monthly total failed")
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHistory handles GET /expenses/history. An optional ?limit= bounds
// the number of rows.
func (h *ExpenseHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("not authenticated"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("limit must be an integer"))
			return
		}
		if n == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse(service.ErrInvalidLimit.Error()))
			return
		}
		limit = n
	}

	expenses, err := h.service.History(r.Context(), identity.ID, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLimit) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", identity.ID).Msg("expense history failed")
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}
