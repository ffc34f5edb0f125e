package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order and are safe to re-run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transfer_records (
		idx      BIGINT PRIMARY KEY,
		sender   TEXT NOT NULL,
		receiver TEXT NOT NULL,
		amount   NUMERIC(78, 0) NOT NULL,
		message  TEXT NOT NULL DEFAULT '',
		keyword  TEXT NOT NULL DEFAULT '',
		ts       BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS value_transfers (
		hash         TEXT PRIMARY KEY,
		from_account TEXT NOT NULL,
		to_account   TEXT NOT NULL,
		value        NUMERIC(78, 0) NOT NULL,
		nonce        BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id            TEXT PRIMARY KEY,
		transfer_hash TEXT NOT NULL REFERENCES value_transfers(hash),
		account_id    TEXT NOT NULL,
		amount        NUMERIC(78, 0) NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_account_idx ON ledger_entries (account_id)`,
	`CREATE INDEX IF NOT EXISTS value_transfers_from_idx ON value_transfers (from_account)`,
}

// Migrate creates the tables used by PostgresLedgerStore.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
