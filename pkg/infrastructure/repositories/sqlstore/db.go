package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// Dialect selects driver specific SQL
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// String method for Dialect enum
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// DriverName is the database/sql driver registered for the dialect
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "pgx"
}

// ParseDialect accepts the configured driver name
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $N placeholders to ?N for SQLite
func (d Dialect) rebind(query string) string {
	if d != SQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?$1")
}

// positive renders "column > 0". SQLite keeps decimals as TEXT, so the
// comparison goes through a numeric cast there.
func (d Dialect) positive(column string) string {
	if d == SQLite {
		return "CAST(" + column + " AS REAL) > 0"
	}
	return column + " > 0"
}

// Config holds database connection pool configuration
type Config struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns pool settings suitable for a small service
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite3",
		URL:             "file:stockroom.db",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Open connects to the database described by cfg and verifies the connection
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.URL
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// One connection keeps :memory: databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, dialect), nil
}

// sqliteDSN turns foreign keys on and sets a busy timeout unless the DSN already does
func sqliteDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		dsn += sep + "_foreign_keys=on"
		sep = "&"
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		dsn += sep + "_busy_timeout=5000"
	}
	return dsn
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// conn binds a querier to its dialect
type conn struct {
	q       querier
	dialect Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := c.q.ExecContext(ctx, c.dialect.rebind(query), args...)
	return res, mapError(err)
}

func (c conn) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := c.q.QueryContext(ctx, c.dialect.rebind(query), args...)
	return rows, mapError(err)
}

func (c conn) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id and returns the new id
func (c conn) insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := c.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// maxSwapAttempts bounds the compare-and-swap retries of swapDecimal
const maxSwapAttempts = 5

// swapDecimal reads a decimal column of one row, asks next for its new value and writes
// it back only while the column still holds what was read. It returns the value read and
// whether next accepted it. SQLite stores decimals as TEXT, so the arithmetic happens here
// in decimal rather than in SQL.
func (c conn) swapDecimal(ctx context.Context, table, column string, id int64,
	next func(current decimal.Decimal) (decimal.Decimal, bool)) (decimal.Decimal, bool, error) {
	read := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", column, table)
	write := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = $2 AND %s = $3", table, column, column)

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		var current decimal.Decimal
		if err := c.queryRow(ctx, read, id).Scan(&current); err != nil {
			return decimal.Zero, false, err
		}
		updated, ok := next(current)
		if !ok {
			return current, false, nil
		}
		res, err := c.exec(ctx, write, updated, id, current)
		if err != nil {
			return current, false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return current, false, err
		}
		if n > 0 {
			return updated, true, nil
		}
	}
	return decimal.Zero, false, fmt.Errorf("%s %d kept changing underneath the update: %w", table, id, entities.ErrConflict)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

// likePattern builds a case-insensitive substring pattern with LIKE wildcards escaped
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}
