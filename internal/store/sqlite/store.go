// Package sqlite provides the SQLite implementation of store.Store and store.Writer.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"

	"github.com/listenupapp/goodbooks-api/internal/normalize"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

var registerFold sync.Once

// registerFunctions exposes normalize.Key to SQL as fold(text) so author and tag
// lookups match the Badger backend.
func registerFunctions() {
	registerFold.Do(func() {
		msqlite.MustRegisterDeterministicScalarFunction("fold", 1,
			func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case string:
					return normalize.Key(v), nil
				case []byte:
					return normalize.Key(string(v)), nil
				default:
					return nil, nil
				}
			})
	})
}

// Options configures a SQLite store.
type Options struct {
	// Timeout bounds each store operation. Zero disables the deadline.
	Timeout time.Duration
	// Validator checks records before writes. Required.
	Validator store.Validator
}

// Store provides SQLite-backed persistence for the GoodBooks API.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	validator store.Validator
	timeout   time.Duration
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Writer = (*Store)(nil)
)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger, opts Options) (*Store, error) {
	if opts.Validator == nil {
		return nil, errors.New("sqlite: validator is required")
	}
	registerFunctions()

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL allows concurrent readers next to the single writer.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}

	return &Store{
		db:        db,
		logger:    logger,
		validator: opts.Validator,
		timeout:   opts.Timeout,
	}, nil
}

// dsn builds the connection string. Transactions begin IMMEDIATE so that a
// read-then-write transaction takes the write lock up front and waits on
// busy_timeout instead of failing on upgrade.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapError(err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

// mapError translates driver errors to store sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return store.ErrAlreadyExists.WithCause(err)
	case strings.Contains(err.Error(), "database is locked"),
		strings.Contains(err.Error(), "SQLITE_BUSY"):
		return store.ErrBusy.WithCause(err)
	case strings.Contains(err.Error(), "CHECK constraint failed"),
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return store.ErrInvalidInput.WithCause(err)
	default:
		return err
	}
}
