package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ledgerly/ledgerly-api/internal/config"
	"github.com/ledgerly/ledgerly-api/internal/repository/migrations"
)

// DB is a connection pool bound to the dialect its queries are written for.
type DB struct {
	*sql.DB
	dialect Dialect
}

// NewDB wraps an already opened pool.
func NewDB(db *sql.DB, d Dialect) *DB {
	return &DB{DB: db, dialect: d}
}

// Dialect returns the SQL dialect of the pool.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Open creates the connection pool described by cfg and waits until the
// database answers a ping. It retries ConnectAttempts times, sleeping
// ConnectBackoff between tries, and gives up early when ctx is done.
func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := d.DSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s pool: %w", d, err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	attempts := max(cfg.ConnectAttempts, 1)
	for attempt := 1; ; attempt++ {
		err = sqlDB.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= attempts {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
		}

		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_in", cfg.ConnectBackoff).
			Msg("database not ready")

		select {
		case <-ctx.Done():
			_ = sqlDB.Close()
			return nil, errors.Join(ctx.Err(), err)
		case <-time.After(cfg.ConnectBackoff):
		}
	}

	log.Info().Str("driver", d.String()).Msg("database connected")
	return NewDB(sqlDB, d), nil
}

// Migrate creates the tables for the pool's dialect. Every statement is
// idempotent, so it is safe to run on each start.
func (db *DB) Migrate(ctx context.Context) error {
	dir, err := fs.Sub(migrations.FS, db.dialect.dir)
	if err != nil {
		return fmt.Errorf("migrations for %s: %w", db.dialect, err)
	}

	provider, err := goose.NewProvider(db.dialect.goose, db.DB, dir)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Ready reports whether the database currently answers.
func (db *DB) Ready(ctx context.Context) error {
	return db.PingContext(ctx)
}
