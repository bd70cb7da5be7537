package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// Dialect captures the differences between the supported SQL backends.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	driver    string
	goose     goose.Dialect
	dir       string
	numbered  bool
	returning bool
}

var (
	Postgres = Dialect{driver: "pgx", goose: goose.DialectPostgres, dir: "postgres", numbered: true, returning: true}
	MySQL    = Dialect{driver: "mysql", goose: goose.DialectMySQL, dir: "mysql"}
	SQLite   = Dialect{driver: "sqlite", goose: goose.DialectSQLite3, dir: "sqlite"}
)

// DialectFor returns the dialect registered under a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case Postgres.driver, "postgres":
		return Postgres, nil
	case MySQL.driver:
		return MySQL, nil
	case SQLite.driver, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d Dialect) String() string {
	return d.driver
}

// DSN normalises a connection string for the dialect. MySQL DSNs always get
// parseTime, since created_at is scanned into time.Time.
func (d Dialect) DSN(url string) (string, error) {
	if d.driver != MySQL.driver {
		return url, nil
	}

	cfg, err := mysql.ParseDSN(url)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err is the driver's unique-constraint
// error. Other failures (connectivity, check constraints) do not match.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// Older builds report the primary code only.
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}

	return false
}
