package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is satisfied by *sql.DB, *sqlx.DB and transactions.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func migrations(driver string) []string {
	numeric, timestamp := "NUMERIC(38, 8)", "TIMESTAMPTZ"
	if driver == DriverSQLite {
		// sqlite would coerce NUMERIC to REAL.
		numeric, timestamp = "TEXT", "TIMESTAMP"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	token_id    TEXT NOT NULL,
	sender_id   TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	amount      %[1]s NULL,
	power       %[1]s NOT NULL,
	price       %[1]s NOT NULL,
	type        TEXT NULL,
	date        %[2]s NOT NULL
)`, numeric, timestamp),
		`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions (sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions (receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date)`,
	}
}

// Apply runs every migration in order. Statements are idempotent.
func Apply(ctx context.Context, db Execer, driver string) error {
	for i, stmt := range migrations(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
