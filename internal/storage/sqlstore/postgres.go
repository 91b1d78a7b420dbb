package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPostgres connects to PostgreSQL using the pgx driver and runs migrations.
//
// Transactions run at REPEATABLE READ so every read inside one sees a single
// snapshot. Credential updates additionally take a row lock on the collective;
// serialization failures surface as storage.ErrConflict.
func NewPostgres(ctx context.Context, connStr string) (*SQLStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return open(db, dialect{
		name:              "postgres",
		numbered:          true,
		forUpdate:         " FOR UPDATE",
		txOptions:         &sql.TxOptions{Isolation: sql.LevelRepeatableRead},
		isUniqueViolation: pgCode("23505"),
		isConflict:        pgCode("40001", "40P01"),
	})
}

func pgCode(codes ...string) func(error) bool {
	return func(err error) bool {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			return false
		}
		for _, c := range codes {
			if pgErr.Code == c {
				return true
			}
		}
		return false
	}
}
