package interfaces

import (
	"context"

	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// RecordStore persists the append-only transfer record ledger.
type RecordStore interface {
	// AppendRecord stores rec at the next index and returns that index. The
	// Index field of rec is ignored.
	AppendRecord(ctx context.Context, rec models.TransferRecord) (uint64, error)
	ListRecords(ctx context.Context) ([]models.TransferRecord, error)
	PageRecords(ctx context.Context, offset, limit uint64) ([]models.TransferRecord, error)
	CountRecords(ctx context.Context) (uint64, error)
	// LastRecord returns nil when the ledger is empty.
	LastRecord(ctx context.Context) (*models.TransferRecord, error)
}

// EntryStore persists double-entry records of native value transfers.
type EntryStore interface {
	TransferExists(ctx context.Context, hash string) (bool, error)
	// NextNonce returns one past the highest nonce stored for transfers sent
	// by accountId, or 0 when it has sent none.
	NextNonce(ctx context.Context, accountId string) (uint64, error)
	SaveTransferWithEntries(ctx context.Context, tx models.ValueTransfer, debit models.LedgerEntry, credit models.LedgerEntry) error
	GetEntriesByAccount(ctx context.Context, accountId string) ([]models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
}
