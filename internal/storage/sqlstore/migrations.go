package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. The statements are portable
// between SQLite and PostgreSQL.
// IMPORTANT: users and collectives must be created BEFORE the tables that reference them.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at BIGINT NOT NULL,
    modified_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS collectives (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    access_key TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    token TEXT NOT NULL UNIQUE,
    currency TEXT NOT NULL,
    version BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    modified_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
    id TEXT PRIMARY KEY,
    collective_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    modified_at BIGINT NOT NULL,
    UNIQUE (member_id, collective_id),
    FOREIGN KEY (collective_id) REFERENCES collectives(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS purchases (
    id TEXT PRIMARY KEY,
    collective_id TEXT NOT NULL,
    buyer_id TEXT NOT NULL,
    name TEXT NOT NULL,
    price TEXT NOT NULL,
    currency TEXT NOT NULL,
    deleted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    modified_at BIGINT NOT NULL,
    FOREIGN KEY (collective_id) REFERENCES collectives(id) ON DELETE CASCADE,
    FOREIGN KEY (buyer_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS liquidations (
    id TEXT PRIMARY KEY,
    collective_id TEXT NOT NULL,
    debtor_id TEXT NOT NULL,
    creditor_id TEXT NOT NULL,
    name TEXT NOT NULL,
    amount TEXT NOT NULL,
    currency TEXT NOT NULL,
    deleted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    modified_at BIGINT NOT NULL,
    CHECK (debtor_id <> creditor_id),
    FOREIGN KEY (collective_id) REFERENCES collectives(id) ON DELETE CASCADE,
    FOREIGN KEY (debtor_id) REFERENCES users(id) ON DELETE CASCADE,
    FOREIGN KEY (creditor_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_memberships_collective_id ON memberships(collective_id);
CREATE INDEX IF NOT EXISTS idx_purchases_collective_id ON purchases(collective_id, deleted);
CREATE INDEX IF NOT EXISTS idx_liquidations_collective_id ON liquidations(collective_id, deleted);
`

// runMigrations executes the schema setup one statement at a time.
func runMigrations(db *sql.DB, d dialect) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s migration failed: %w", d.name, err)
		}
	}
	return nil
}
