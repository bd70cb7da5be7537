package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerly/ledgerly-api/internal/crypto"
	"github.com/ledgerly/ledgerly-api/internal/middleware"
	"github.com/ledgerly/ledgerly-api/internal/model"
	"github.com/ledgerly/ledgerly-api/internal/repository"
	"github.com/ledgerly/ledgerly-api/internal/repository/repotest"
	"github.com/ledgerly/ledgerly-api/internal/service"
)

type fixture struct {
	auth     *AuthHandler
	expenses *ExpenseHandler
	db       *repository.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := repotest.NewSQLite(t)

	hasher, err := crypto.NewPasswordHasher(crypto.HashConfig{Algorithm: crypto.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	tokens, err := crypto.NewTokenIssuer(crypto.TokenConfig{
		Secret:    []byte("handler-test-secret-0123456789abcdef"),
		Algorithm: "HS256",
		TTL:       30 * time.Minute,
		Issuer:    "finance-api",
	})
	require.NoError(t, err)
	auth, err := service.NewAuthService(repository.NewUserRepository(db), hasher, tokens)
	require.NoError(t, err)

	return fixture{
		auth:     NewAuthHandler(auth),
		expenses: NewExpenseHandler(service.NewExpenseService(repository.NewExpenseRepository(db), time.UTC)),
		db:       db,
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func postForm(h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func asUser(req *http.Request, id int64) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), model.Identity{ID: id, Email: "u@example.com"}))
}

func TestHandleRegister(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(f.auth.HandleRegister, `{"email":"alice@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[model.RegisterResponse](t, rec)
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotContains(t, rec.Body.String(), "secret123")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = postJSON(f.auth.HandleRegister, `{"email":"alice@example.com","password":"another-pass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Browser clients post credentials in the query string.
	req := httptest.NewRequest(http.MethodPost, "/register?email=bob%40example.com&password=secret123", nil)
	rec = httptest.NewRecorder()
	f.auth.HandleRegister(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = postForm(f.auth.HandleRegister, url.Values{"email": {"carol@example.com"}, "password": {"secret123"}})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleRegister_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"email":`, "invalid request body"},
		{"missing email", `{"password":"secret123"}`, "email is required"},
		{"bad email", `{"email":"nope","password":"secret123"}`, "email must be a valid email"},
		{"short password", `{"email":"a@example.com","password":"short"}`, "password must be at least 8 characters"},
		{"long password", `{"email":"a@example.com","password":"` + strings.Repeat("x", 73) + `"}`, "password must be at most 72 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(f.auth.HandleRegister, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestHandleRegister_BodyTooLarge(t *testing.T) {
	f := newFixture(t)

	body := `{"email":"a@example.com","password":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := postJSON(f.auth.HandleRegister, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleLogin(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, postJSON(f.auth.HandleRegister, `{"email":"alice@example.com","password":"secret123"}`).Code)

	rec := postForm(f.auth.HandleLogin, url.Values{"username": {"alice@example.com"}, "password": {"secret123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.TokenResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(1800), resp.ExpiresIn)

	rec = postJSON(f.auth.HandleLogin, `{"email":"alice@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	wrong := postForm(f.auth.HandleLogin, url.Values{"username": {"alice@example.com"}, "password": {"wrong-password"}})
	unknown := postForm(f.auth.HandleLogin, url.Values{"username": {"ghost@example.com"}, "password": {"secret123"}})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "invalid credentials", decode[map[string]string](t, wrong)["error"])

	rec = postForm(f.auth.HandleLogin, url.Values{"username": {"alice@example.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMe(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.auth.HandleMe(rec, asUser(httptest.NewRequest(http.MethodGet, "/me", nil), 5))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Identity{ID: 5, Email: "u@example.com"}, decode[model.Identity](t, rec))

	rec = httptest.NewRecorder()
	f.auth.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func registerUser(t *testing.T, f fixture, email string) int64 {
	t.Helper()
	rec := postJSON(f.auth.HandleRegister, `{"email":"`+email+`","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[model.RegisterResponse](t, rec).User.ID
}

func TestExpenseHandlers(t *testing.T) {
	f := newFixture(t)
	userID := registerUser(t, f, "alice@example.com")
	today := model.NewDate(time.Now().UTC()).String()

	create := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.expenses.HandleCreate(rec, asUser(req, userID))
		return rec
	}

	rec := create(`{"amount":120.5,"category":"Food","payment_mode":"UPI","description":"dinner","expense_date":"` + today + `"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.CreateExpenseResponse](t, rec)
	assert.Equal(t, "Expense added successfully", created.Message)
	assert.Len(t, created.Expense.ID, 36)
	assert.Equal(t, today, created.Expense.ExpenseDate.String())

	require.Equal(t, http.StatusCreated, create(`{"amount":9.5,"category":"Tea","payment_mode":"CASH","description":"","expense_date":"`+today+`"}`).Code)

	invalid := []string{
		`{"amount":0,"category":"Food","payment_mode":"UPI","expense_date":"` + today + `"}`,
		`{"amount":99999999.999,"category":"Food","payment_mode":"UPI","expense_date":"` + today + `"}`,
		`{"amount":10,"category":"","payment_mode":"UPI","expense_date":"` + today + `"}`,
		`{"amount":10,"category":"Food","payment_mode":"CARD","expense_date":"` + today + `"}`,
		`{"amount":10,"category":"Food","payment_mode":"UPI"}`,
		`{"amount":10,"category":"Food","payment_mode":"UPI","expense_date":"17-10-2026"}`,
	}
	for _, body := range invalid {
		assert.Equal(t, http.StatusBadRequest, create(body).Code, body)
	}

	get := func(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h(rec, asUser(httptest.NewRequest(http.MethodGet, target, nil), userID))
		return rec
	}

	rec = get(f.expenses.HandleDaily, "/expenses/daily")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 130, decode[model.DailyTotalResponse](t, rec).DailyTotal, 1e-9)

	rec = get(f.expenses.HandleMonthly, "/expenses/monthly")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 130, decode[model.MonthlyTotalResponse](t, rec).MonthlyTotal, 1e-9)

	rec = get(f.expenses.HandleHistory, "/expenses/history")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]model.ExpenseResponse](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "Tea", history[0].Category)

	rec = get(f.expenses.HandleHistory, "/expenses/history?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ExpenseResponse](t, rec), 1)

	for _, limit := range []string{"0", "-1", "101", "ten"} {
		assert.Equal(t, http.StatusBadRequest, get(f.expenses.HandleHistory, "/expenses/history?limit="+limit).Code, limit)
	}
}

func TestExpenseHistory_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	userID := registerUser(t, f, "alice@example.com")

	rec := httptest.NewRecorder()
	f.expenses.HandleHistory(rec, asUser(httptest.NewRequest(http.MethodGet, "/expenses/history", nil), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	f.expenses.HandleDaily(rec, asUser(httptest.NewRequest(http.MethodGet, "/expenses/daily", nil), userID))
	assert.Contains(t, rec.Body.String(), `"daily_total":0`)
}

type pingFunc func(context.Context) error

func (p pingFunc) Ready(ctx context.Context) error { return p(ctx) }

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	NewHealthHandler(f.db).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(f.db).Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := pingFunc(func(context.Context) error { return errors.New("dial tcp db.internal:5432: connection refused") })
	rec = httptest.NewRecorder()
	NewHealthHandler(down).Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[readinessResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unhealthy", resp.Dependencies["database"].Status)
	assert.NotContains(t, rec.Body.String(), "db.internal")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestFrontend(t *testing.T) {
	dir := t.TempDir()

	rec := httptest.NewRecorder()
	Frontend(dir)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>finance</h1>"), 0o644))
	rec = httptest.NewRecorder()
	Frontend(dir)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>finance</h1>")
}
