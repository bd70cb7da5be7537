// Package server assembles the HTTP routes of the finance API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ledgerly/ledgerly-api/internal/crypto"
	"github.com/ledgerly/ledgerly-api/internal/handler"
	"github.com/ledgerly/ledgerly-api/internal/middleware"
	"github.com/ledgerly/ledgerly-api/internal/service"
)

// Deps are the components the router wires into handlers.
type Deps struct {
	Log         zerolog.Logger
	Auth        *service.AuthService
	Expenses    *service.ExpenseService
	Tokens      *crypto.TokenIssuer
	DB          handler.Pinger
	CORSOrigins []string
	FrontendDir string
}

// NewRouter builds the application's route tree.
func NewRouter(d Deps) http.Handler {
	authHandler := handler.NewAuthHandler(d.Auth)
	expenseHandler := handler.NewExpenseHandler(d.Expenses)
	healthHandler := handler.NewHealthHandler(d.DB)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAnyOrigin(d.CORSOrigins),
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	if d.FrontendDir != "" {
		r.Get("/", handler.Frontend(d.FrontendDir))
	}

	r.Post("/register", authHandler.HandleRegister)
	r.Post("/login", authHandler.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Gate(d.Tokens, d.Auth))

		r.Get("/me", authHandler.HandleMe)

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", expenseHandler.HandleCreate)
			r.Get("/daily", expenseHandler.HandleDaily)
			r.Get("/monthly", expenseHandler.HandleMonthly)
			r.Get("/history", expenseHandler.HandleHistory)
		})
	})

	return r
}

// Credentials are never combined with a wildcard origin.
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
