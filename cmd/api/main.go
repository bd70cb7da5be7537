package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/ledgerly-api/internal/config"
	"github.com/ledgerly/ledgerly-api/internal/crypto"
	"github.com/ledgerly/ledgerly-api/internal/logger"
	"github.com/ledgerly/ledgerly-api/internal/repository"
	"github.com/ledgerly/ledgerly-api/internal/server"
	"github.com/ledgerly/ledgerly-api/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		log.Warn().Msg("using the development JWT secret; set JWT_SECRET")
	}

	db, err := repository.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	hasher, err := crypto.NewPasswordHasher(crypto.HashConfig{
		Algorithm:  cfg.Auth.PasswordHash,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		return err
	}

	tokens, err := crypto.NewTokenIssuer(crypto.TokenConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		Algorithm: cfg.Auth.JWTAlgorithm,
		TTL:       cfg.Auth.JWTTTL,
		Issuer:    cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	authService, err := service.NewAuthService(repository.NewUserRepository(db), hasher, tokens)
	if err != nil {
		return err
	}
	expenseService := service.NewExpenseService(repository.NewExpenseRepository(db), loc)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.Deps{
			Log:         log,
			Auth:        authService,
			Expenses:    expenseService,
			Tokens:      tokens,
			DB:          db,
			CORSOrigins: cfg.CORSOrigins,
			FrontendDir: cfg.FrontendDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("driver", db.Dialect().String()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
