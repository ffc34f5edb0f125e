// Package storetest holds behaviour tests shared by the store implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

var (
	Alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	Bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func record(i int) models.TransferRecord {
	return models.TransferRecord{
		Sender:    Alice,
		Receiver:  Bob,
		Amount:    uint256.NewInt(uint64(i) * 1000),
		Message:   fmt.Sprintf("message %d", i),
		Keyword:   fmt.Sprintf("kw%d", i),
		Timestamp: uint64(1700000000 + i),
	}
}

// RunRecordStoreTests exercises an interfaces.RecordStore. newStore must
// return an empty store on every call.
func RunRecordStoreTests(t *testing.T, newStore func(t *testing.T) interfaces.RecordStore) {
	t.Run("Empty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.CountRecords(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		last, err := s.LastRecord(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)

		all, err := s.ListRecords(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("AppendAssignsSequentialIndexes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			idx, err := s.AppendRecord(ctx, record(i))
			require.NoError(t, err)
			assert.Equal(t, uint64(i), idx)
		}

		n, err := s.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), n)

		all, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, r := range all {
			want := record(i)
			assert.Equal(t, uint64(i), r.Index)
			assert.Equal(t, want.Sender, r.Sender)
			assert.Equal(t, want.Receiver, r.Receiver)
			assert.True(t, want.Amount.Eq(r.Amount))
			assert.Equal(t, want.Message, r.Message)
			assert.Equal(t, want.Keyword, r.Keyword)
			assert.Equal(t, want.Timestamp, r.Timestamp)
		}

		last, err := s.LastRecord(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, uint64(4), last.Index)
	})

	t.Run("ZeroAndEmptyValues", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.AppendRecord(ctx, models.TransferRecord{Sender: Alice, Receiver: Bob, Amount: new(uint256.Int)})
		require.NoError(t, err)

		all, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.True(t, all[0].AmountOrZero().IsZero())
		assert.Equal(t, "", all[0].Message)
		assert.Equal(t, "", all[0].Keyword)
	})

	t.Run("LargeAmount", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		big := uint256.MustFromDecimal("1000000000000000000000000")
		rec := record(0)
		rec.Amount = big
		_, err := s.AppendRecord(ctx, rec)
		require.NoError(t, err)

		all, err := s.ListRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, big.Dec(), all[0].Amount.Dec())
	})

	t.Run("Page", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 7; i++ {
			_, err := s.AppendRecord(ctx, record(i))
			require.NoError(t, err)
		}

		page, err := s.PageRecords(ctx, 0, 3)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, uint64(0), page[0].Index)

		page, err = s.PageRecords(ctx, 6, 3)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, uint64(6), page[0].Index)

		page, err = s.PageRecords(ctx, 7, 3)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.AppendRecord(ctx, record(i))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		n, err := s.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), n)

		all, err := s.ListRecords(ctx)
		require.NoError(t, err)
		for i, r := range all {
			assert.Equal(t, uint64(i), r.Index)
		}
	})
}

// RunEntryStoreTests exercises an interfaces.EntryStore.
func RunEntryStoreTests(t *testing.T, newStore func(t *testing.T) interfaces.EntryStore) {
	t.Run("SaveAndQuery", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tx := models.ValueTransfer{
			Hash:      common.HexToHash("0x01"),
			From:      Alice,
			To:        Bob,
			Value:     uint256.NewInt(250),
			CreatedAt: time.Unix(1700000000, 0).UTC(),
		}
		debit := models.LedgerEntry{
			ID:           tx.Hash.Hex() + "-debit",
			TransferHash: tx.Hash.Hex(),
			AccountID:    Alice.Hex(),
			Amount:       decimal.NewFromInt(-250),
			CreatedAt:    tx.CreatedAt,
		}
		credit := models.LedgerEntry{
			ID:           tx.Hash.Hex() + "-credit",
			TransferHash: tx.Hash.Hex(),
			AccountID:    Bob.Hex(),
			Amount:       decimal.NewFromInt(250),
			CreatedAt:    tx.CreatedAt,
		}

		exists, err := s.TransferExists(ctx, tx.Hash.Hex())
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, s.SaveTransferWithEntries(ctx, tx, debit, credit))

		exists, err = s.TransferExists(ctx, tx.Hash.Hex())
		require.NoError(t, err)
		assert.True(t, exists)

		all, err := s.GetLedgerEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		bobs, err := s.GetEntriesByAccount(ctx, Bob.Hex())
		require.NoError(t, err)
		require.Len(t, bobs, 1)
		assert.True(t, decimal.NewFromInt(250).Equal(bobs[0].Amount))
	})

	t.Run("NextNonce", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		next, err := s.NextNonce(ctx, Alice.Hex())
		require.NoError(t, err)
		assert.Zero(t, next)

		save := func(hash string, nonce uint64) {
			tx := models.ValueTransfer{
				Hash:      common.HexToHash(hash),
				From:      Alice,
				To:        Bob,
				Value:     uint256.NewInt(1),
				Nonce:     nonce,
				CreatedAt: time.Unix(1700000000, 0).UTC(),
			}
			debit := models.LedgerEntry{ID: hash + "-debit", TransferHash: tx.Hash.Hex(), AccountID: Alice.Hex(), Amount: decimal.NewFromInt(-1), CreatedAt: tx.CreatedAt}
			credit := models.LedgerEntry{ID: hash + "-credit", TransferHash: tx.Hash.Hex(), AccountID: Bob.Hex(), Amount: decimal.NewFromInt(1), CreatedAt: tx.CreatedAt}
			require.NoError(t, s.SaveTransferWithEntries(ctx, tx, debit, credit))
		}

		save("0x0a", 4)
		save("0x0b", 2)

		next, err = s.NextNonce(ctx, Alice.Hex())
		require.NoError(t, err)
		assert.Equal(t, uint64(5), next)

		// Receiving does not advance an account's nonce.
		next, err = s.NextNonce(ctx, Bob.Hex())
		require.NoError(t, err)
		assert.Zero(t, next)
	})
}
