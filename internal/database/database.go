package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverMemory   Driver = "memory"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

// DriverFromURL picks the backend from the DATABASE_URL scheme.
func DriverFromURL(databaseURL string) (Driver, error) {
	raw := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(raw)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "file:"):
		return DriverSQLite, nil
	case strings.HasPrefix(lower, "memory://"):
		return DriverMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, redact(raw))
	}
}

// sqliteDSN turns sqlite://path?opts into the DSN go-sqlite3 expects.
func sqliteDSN(databaseURL string) string {
	if strings.HasPrefix(strings.ToLower(databaseURL), "file:") {
		return databaseURL
	}

	dsn := databaseURL[len("sqlite://"):]
	if dsn == "" || dsn == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	return "file:" + dsn
}

type Options struct {
	MaxConns int32
	MinConns int32
}

type DB struct {
	Driver Driver
	Pool   *pgxpool.Pool
	SQL    *sql.DB
}

func Open(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	driver, err := DriverFromURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverPostgres:
		pool, err := openPostgres(ctx, databaseURL, opts)
		if err != nil {
			return nil, err
		}
		return &DB{Driver: driver, Pool: pool}, nil
	case DriverSQLite:
		db, err := openSQLite(ctx, sqliteDSN(databaseURL))
		if err != nil {
			return nil, err
		}
		return &DB{Driver: driver, SQL: db}, nil
	default:
		slog.Warn("using in-memory user store; data is lost on restart")
		return &DB{Driver: DriverMemory}, nil
	}
}

func openPostgres(ctx context.Context, databaseURL string, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns >= 0 {
		cfg.MinConns = opts.MinConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected", "driver", DriverPostgres, "max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
	return pool, nil
}

func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	slog.Info("database connected", "driver", DriverSQLite)
	return db, nil
}

func (db *DB) Close() {
	if db == nil {
		return
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.SQL != nil {
		_ = db.SQL.Close()
	}
}

func (db *DB) Health(ctx context.Context) error {
	switch {
	case db.Pool != nil:
		return db.Pool.Ping(ctx)
	case db.SQL != nil:
		return db.SQL.PingContext(ctx)
	default:
		return nil
	}
}

func redact(raw string) string {
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		if scheme := strings.Index(raw, "://"); scheme >= 0 && scheme < at {
			return raw[:scheme+3] + "***" + raw[at:]
		}
	}
	return raw
}
