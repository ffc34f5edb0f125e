package memory

import (
	"context" // request-scoped context
	"sync"    // RWMutex guarding the store

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of both interfaces.RecordStore
// and interfaces.EntryStore. It is thread-safe and loses everything on restart.
type MemoryLedgerStore struct {
	mu        sync.RWMutex                    // protects every field below
	records   []models.TransferRecord         // append-only transfer records, index == position
	entries   []models.LedgerEntry            // native value ledger entries
	transfers map[string]models.ValueTransfer // native transfers keyed by hash
	nonces    map[string]uint64               // next nonce per sending account
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		records:   make([]models.TransferRecord, 0),
		entries:   make([]models.LedgerEntry, 0),
		transfers: make(map[string]models.ValueTransfer),
		nonces:    make(map[string]uint64),
	}
}

// AppendRecord stores rec at the end of the slice and returns its index.
func (m *MemoryLedgerStore) AppendRecord(ctx context.Context, rec models.TransferRecord) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Index = uint64(len(m.records))
	if rec.Amount != nil {
		rec.Amount = rec.Amount.Clone() // the caller must not be able to mutate a stored record
	}
	m.records = append(m.records, rec)
	return rec.Index, nil
}

// ListRecords returns a copy of all records in insertion order.
func (m *MemoryLedgerStore) ListRecords(ctx context.Context) ([]models.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyRecords(m.records), nil
}

func (m *MemoryLedgerStore) PageRecords(ctx context.Context, offset, limit uint64) ([]models.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := uint64(len(m.records))
	if offset >= total || limit == 0 {
		return []models.TransferRecord{}, nil
	}
	end := offset + limit
	if end > total || end < offset {
		end = total
	}
	return copyRecords(m.records[offset:end]), nil
}

func (m *MemoryLedgerStore) CountRecords(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.records)), nil
}

func (m *MemoryLedgerStore) LastRecord(ctx context.Context) (*models.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return nil, nil
	}
	last := copyRecords(m.records[len(m.records)-1:])[0]
	return &last, nil
}

func (m *MemoryLedgerStore) TransferExists(ctx context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.transfers[hash]
	return exists, nil
}

// SaveTransferWithEntries stores the transfer and both of its entries under a
// single lock so readers never observe half a transfer.
func (m *MemoryLedgerStore) SaveTransferWithEntries(ctx context.Context, tx models.ValueTransfer, debit models.LedgerEntry, credit models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transfers[tx.Hash.Hex()] = tx
	m.entries = append(m.entries, debit, credit)
	if from := tx.From.Hex(); tx.Nonce+1 > m.nonces[from] {
		m.nonces[from] = tx.Nonce + 1
	}
	return nil
}

func (m *MemoryLedgerStore) NextNonce(ctx context.Context, accountId string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nonces[accountId], nil
}

// GetLedgerEntries returns a copy of all native ledger entries.
func (m *MemoryLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries) // return a copy so external code can't modify internal state
	return copied, nil
}

func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountId string) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountId {
			result = append(result, e)
		}
	}
	return result, nil
}

func copyRecords(src []models.TransferRecord) []models.TransferRecord {
	out := make([]models.TransferRecord, len(src))
	for i, r := range src {
		if r.Amount != nil {
			r.Amount = r.Amount.Clone()
		}
		out[i] = r
	}
	return out
}

// Compile-time checks: ensure MemoryLedgerStore implements both store interfaces
var (
	_ interfaces.RecordStore = (*MemoryLedgerStore)(nil)
	_ interfaces.EntryStore  = (*MemoryLedgerStore)(nil)
)
