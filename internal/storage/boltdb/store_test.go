package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/storage/storetest"
)

func openTemp(t *testing.T) *BoltLedgerStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltLedgerStore_Records(t *testing.T) {
	storetest.RunRecordStoreTests(t, func(t *testing.T) interfaces.RecordStore {
		return openTemp(t)
	})
}

func TestBoltLedgerStore_Entries(t *testing.T) {
	storetest.RunEntryStoreTests(t, func(t *testing.T) interfaces.EntryStore {
		return openTemp(t)
	})
}

func TestBoltLedgerStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.AppendRecord(ctx, models.TransferRecord{Amount: uint256.NewInt(7), Message: "first"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	idx, err := s.AppendRecord(ctx, models.TransferRecord{Message: "second"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)
}
