package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded goose migrations for the active driver.
func (db *DB) Migrate(ctx context.Context, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	var (
		conn    *sql.DB
		dialect string
		dir     string
	)

	switch db.Driver {
	case DriverPostgres:
		conn = stdlib.OpenDBFromPool(db.Pool)
		defer func() {
			if err := conn.Close(); err != nil {
				log.ErrorContext(ctx, "close migration connection", "error", err)
			}
		}()
		dialect, dir = "postgres", "migrations/postgres"
	case DriverSQLite:
		conn = db.SQL
		dialect, dir = "sqlite3", "migrations/sqlite"
	default:
		return nil
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{log: log})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.InfoContext(ctx, "database schema ensured", "driver", db.Driver)
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}
