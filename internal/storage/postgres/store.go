package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces" // RecordStore, EntryStore
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

const recordColumns = `idx, sender, receiver, amount, message, keyword, ts`

// AppendRecord takes an exclusive table lock so that index assignment stays
// gap-free even with several writers.
func (p *PostgresLedgerStore) AppendRecord(ctx context.Context, rec models.TransferRecord) (index uint64, err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if _, err = dbTx.ExecContext(ctx, `LOCK TABLE transfer_records IN EXCLUSIVE MODE`); err != nil {
		return 0, err
	}

	var next int64
	err = dbTx.QueryRowContext(ctx, `SELECT COALESCE(MAX(idx) + 1, 0) FROM transfer_records`).Scan(&next)
	if err != nil {
		return 0, err
	}

	const query = `INSERT INTO transfer_records (` + recordColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = dbTx.ExecContext(ctx, query, next, rec.Sender.Hex(), rec.Receiver.Hex(),
		rec.AmountOrZero().Dec(), rec.Message, rec.Keyword, int64(rec.Timestamp))
	if err != nil {
		return 0, err
	}

	if err = dbTx.Commit(); err != nil {
		return 0, err
	}
	return uint64(next), nil
}

func (p *PostgresLedgerStore) ListRecords(ctx context.Context) ([]models.TransferRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM transfer_records ORDER BY idx`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (p *PostgresLedgerStore) PageRecords(ctx context.Context, offset, limit uint64) ([]models.TransferRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM transfer_records
	WHERE idx >= $1 ORDER BY idx LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, int64(offset), int64(limit))
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (p *PostgresLedgerStore) CountRecords(ctx context.Context) (uint64, error) {
	const query = `SELECT COUNT(*) FROM transfer_records`

	var count int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (p *PostgresLedgerStore) LastRecord(ctx context.Context) (*models.TransferRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM transfer_records ORDER BY idx DESC LIMIT 1`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func scanRecords(rows *sql.Rows) ([]models.TransferRecord, error) {
	defer rows.Close()

	records := make([]models.TransferRecord, 0)
	for rows.Next() {
		var (
			idx, ts          int64
			sender, receiver string
			amount           string
			rec              models.TransferRecord
		)
		if err := rows.Scan(&idx, &sender, &receiver, &amount, &rec.Message, &rec.Keyword, &ts); err != nil {
			return nil, err
		}

		value, err := uint256.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("record %d: invalid amount %q: %w", idx, amount, err)
		}

		rec.Index = uint64(idx)
		rec.Sender = common.HexToAddress(sender)
		rec.Receiver = common.HexToAddress(receiver)
		rec.Amount = value
		rec.Timestamp = uint64(ts)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *PostgresLedgerStore) TransferExists(ctx context.Context, hash string) (bool, error) {
	const query = `select 1 from value_transfers where hash = $1 Limit 1`

	var exists int
	err := p.db.QueryRowContext(ctx, query, hash).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (p *PostgresLedgerStore) NextNonce(ctx context.Context, accountId string) (uint64, error) {
	const query = `SELECT COALESCE(MAX(nonce) + 1, 0) FROM value_transfers WHERE from_account = $1`

	var next int64
	if err := p.db.QueryRowContext(ctx, query, accountId).Scan(&next); err != nil {
		return 0, err
	}
	return uint64(next), nil
}

func (p *PostgresLedgerStore) saveTransfer(ctx context.Context, tx models.ValueTransfer, dbTx *sql.Tx) error {
	const query = `INSERT INTO value_transfers(hash, from_account, to_account, value, nonce, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)`

	value := "0"
	if tx.Value != nil {
		value = tx.Value.Dec()
	}
	_, err := dbTx.ExecContext(ctx, query, tx.Hash.Hex(), tx.From.Hex(), tx.To.Hex(), value, int64(tx.Nonce), tx.CreatedAt)
	return err
}

func (p *PostgresLedgerStore) saveEntry(ctx context.Context, ledgerEntry models.LedgerEntry, dbTx *sql.Tx) error {
	const query = `INSERT INTO ledger_entries (id, transfer_hash, account_id, amount, created_at)
	VALUES ($1,$2,$3,$4,$5)`

	_, err := dbTx.ExecContext(ctx, query, ledgerEntry.ID, ledgerEntry.TransferHash, ledgerEntry.AccountID, ledgerEntry.Amount, ledgerEntry.CreatedAt)
	return err
}

func (p *PostgresLedgerStore) SaveTransferWithEntries(ctx context.Context, tx models.ValueTransfer, debit models.LedgerEntry, credit models.LedgerEntry) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = p.saveTransfer(ctx, tx, dbTx); err != nil {
		return err
	}

	if err = p.saveEntry(ctx, debit, dbTx); err != nil {
		return err
	}

	if err = p.saveEntry(ctx, credit, dbTx); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (p *PostgresLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transfer_hash, account_id, amount, created_at from ledger_entries ORDER BY created_at, id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountId string) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transfer_hash, account_id, amount, created_at from ledger_entries
	WHERE account_id = $1`

	rows, err := p.db.QueryContext(ctx, query, accountId)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.TransferHash, &entry.AccountID, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var (
	_ interfaces.RecordStore = (*PostgresLedgerStore)(nil)
	_ interfaces.EntryStore  = (*PostgresLedgerStore)(nil)
)
