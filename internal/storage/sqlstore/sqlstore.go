// Package sqlstore implements storage.Store on database/sql.
// It ships a SQLite dialect (pure Go, no CGO) and a PostgreSQL dialect (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/payshare/internal/money"
	"github.com/mmynk/payshare/internal/storage"
)

// Ensure SQLStore implements storage.Store
var _ storage.Store = (*SQLStore)(nil)

// Ensure sqlTx implements storage.Tx
var _ storage.Tx = (*sqlTx)(nil)

// SQLStore implements storage.Store on a database/sql handle.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// dialect captures what differs between the supported databases.
type dialect struct {
	name string

	// positional placeholders ($1, $2, ...) instead of ?
	numbered bool

	// appended to SELECTs that must lock the row until commit
	forUpdate string

	txOptions *sql.TxOptions

	isUniqueViolation func(error) bool
	isConflict        func(error) bool
}

// Open opens the store for driver ("sqlite" or "postgres"). For sqlite, dsn is
// a file path; for postgres, a connection URL.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func open(db *sql.DB, d dialect) (*SQLStore, error) {
	if err := runMigrations(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Storage ready", "dialect", d.name)
	return &SQLStore{db: db, dialect: d}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn in a transaction, committing only if fn succeeds.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, s.dialect.txOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", s.mapErr(err))
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, d: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", s.mapErr(err))
	}
	return nil
}

func (s *SQLStore) mapErr(err error) error {
	if s.dialect.isConflict != nil && s.dialect.isConflict(err) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	return err
}

// sqlTx implements storage.Tx on a *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
	d  dialect
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.rebind(query), args...)
	return res, t.mapErr(err)
}

func (t *sqlTx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, t.rebind(query), args...)
	return rows, t.mapErr(err)
}

func (t *sqlTx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.rebind(query), args...)
}

func (t *sqlTx) mapErr(err error) error {
	if err != nil && t.d.isConflict != nil && t.d.isConflict(err) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	return err
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
func (t *sqlTx) rebind(query string) string {
	if !t.d.numbered {
		return query
	}
	var b strings.Builder
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

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func parseMoney(amount, currency string) (money.Money, error) {
	m, err := money.Parse(amount, currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("corrupt amount %q %s: %w", amount, currency, err)
	}
	return m, nil
}

// notFound converts sql.ErrNoRows into storage.ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
