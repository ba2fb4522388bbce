package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	database := NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, database, DriverSQLite), "second Migrate")

	var count int
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'beers'`,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrate_RejectsNegativeQuantity(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.ExecContext(context.Background(),
		`INSERT INTO beers (name, brand, max, quantity, type) VALUES ('a', 'b', 10, -1, 'LAGER')`,
	)
	assert.Error(t, err, "CHECK constraint should reject negative quantity")
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	database := NewTestDB(t)

	assert.Error(t, Migrate(context.Background(), database, "mysql"))
}
