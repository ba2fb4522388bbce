package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Name uniqueness is enforced by the beer service, so name is only indexed.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS beers (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    brand      TEXT NOT NULL,
    max        INTEGER NOT NULL CHECK (max > 0),
    quantity   INTEGER NOT NULL CHECK (quantity >= 0),
    type       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_beers_name ON beers(name);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS beers (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    brand      TEXT NOT NULL,
    max        INTEGER NOT NULL CHECK (max > 0),
    quantity   INTEGER NOT NULL CHECK (quantity >= 0),
    type       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_beers_name ON beers(name);
`

// Migrate creates the beers schema for driver if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}
