package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/keyverify/core/logger"
)

var (
	ErrInvalidURL              = errors.New("invalid sqlite url, expected sqlite:///path")
	ErrFailedToOpen            = errors.New("failed to open sqlite database")
	ErrHealthcheckFailed       = errors.New("sqlite healthcheck failed")
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
)

// Scheme is the URL prefix that selects SQLite.
const Scheme = "sqlite://"

// IsURL reports whether url selects the SQLite backend.
func IsURL(url string) bool {
	return strings.HasPrefix(url, Scheme)
}

// PathFromURL converts "sqlite:///file.db" to "file.db" and
// "sqlite:////abs/file.db" to "/abs/file.db".
func PathFromURL(url string) (string, error) {
	if !IsURL(url) {
		return "", ErrInvalidURL
	}
	path := strings.TrimPrefix(strings.TrimPrefix(url, Scheme), "/")
	if path == "" {
		return "", ErrInvalidURL
	}
	return path, nil
}

// Open opens the database at path and pings it. A single connection is
// used: SQLite serializes writers anyway, and ":memory:" databases are
// per connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpen, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrFailedToOpen, err)
	}
	return db, nil
}

// Migrate applies migrations from fsys.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, log *slog.Logger) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if log != nil {
		log.InfoContext(ctx, "database migrations applied",
			logger.Component("sqlite"),
			logger.Count("applied", len(results)))
	}
	return nil
}

// Healthcheck returns a function that pings db.
func Healthcheck(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// IsUniqueConstraintError reports whether err is a UNIQUE or PRIMARY KEY violation.
func IsUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
