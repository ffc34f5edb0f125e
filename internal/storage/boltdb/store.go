package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

var (
	recordsBucket   = []byte("records")
	transfersBucket = []byte("transfers")
	entriesBucket   = []byte("entries")
	noncesBucket    = []byte("nonces") // sender hex -> big-endian next nonce
)

// BoltLedgerStore keeps transfer records and native ledger entries in a
// single bbolt file. Records are keyed by their big-endian index so cursor
// order is insertion order.
type BoltLedgerStore struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*BoltLedgerStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, transfersBucket, entriesBucket, noncesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltLedgerStore{db: db}, nil
}

func (s *BoltLedgerStore) Close() error {
	return s.db.Close()
}

func indexKey(i uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, i)
	return k
}

func (s *BoltLedgerStore) AppendRecord(ctx context.Context, rec models.TransferRecord) (uint64, error) {
	var index uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)

		index = 0
		if k, _ := b.Cursor().Last(); k != nil {
			index = binary.BigEndian.Uint64(k) + 1
		}
		rec.Index = index

		data, err := jsonx.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return b.Put(indexKey(index), data)
	})
	if err != nil {
		return 0, fmt.Errorf("append record: %w", err)
	}
	return index, nil
}

func (s *BoltLedgerStore) ListRecords(ctx context.Context) ([]models.TransferRecord, error) {
	records := make([]models.TransferRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			var rec models.TransferRecord
			if err := jsonx.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BoltLedgerStore) PageRecords(ctx context.Context, offset, limit uint64) ([]models.TransferRecord, error) {
	records := make([]models.TransferRecord, 0, limit)
	if limit == 0 {
		return records, nil
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.Seek(indexKey(offset)); k != nil && uint64(len(records)) < limit; k, v = c.Next() {
			var rec models.TransferRecord
			if err := jsonx.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BoltLedgerStore) CountRecords(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if k, _ := tx.Bucket(recordsBucket).Cursor().Last(); k != nil {
			count = binary.BigEndian.Uint64(k) + 1
		}
		return nil
	})
	return count, err
}

func (s *BoltLedgerStore) LastRecord(ctx context.Context) (*models.TransferRecord, error) {
	var last *models.TransferRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket(recordsBucket).Cursor().Last()
		if k == nil {
			return nil
		}
		var rec models.TransferRecord
		if err := jsonx.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
		}
		last = &rec
		return nil
	})
	return last, err
}

func (s *BoltLedgerStore) TransferExists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(transfersBucket).Get([]byte(hash)) != nil
		return nil
	})
	return exists, err
}

func (s *BoltLedgerStore) SaveTransferWithEntries(ctx context.Context, transfer models.ValueTransfer, debit models.LedgerEntry, credit models.LedgerEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := jsonx.Marshal(transfer)
		if err != nil {
			return fmt.Errorf("marshal transfer: %w", err)
		}
		if err := tx.Bucket(transfersBucket).Put([]byte(transfer.Hash.Hex()), data); err != nil {
			return err
		}

		nonces := tx.Bucket(noncesBucket)
		from := []byte(transfer.From.Hex())
		if next := transfer.Nonce + 1; next > decodeNonce(nonces.Get(from)) {
			if err := nonces.Put(from, indexKey(next)); err != nil {
				return err
			}
		}

		entries := tx.Bucket(entriesBucket)
		for _, entry := range []models.LedgerEntry{debit, credit} {
			seq, err := entries.NextSequence()
			if err != nil {
				return err
			}
			data, err := jsonx.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal entry %s: %w", entry.ID, err)
			}
			if err := entries.Put(indexKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltLedgerStore) NextNonce(ctx context.Context, accountId string) (uint64, error) {
	var next uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		next = decodeNonce(tx.Bucket(noncesBucket).Get([]byte(accountId)))
		return nil
	})
	return next, err
}

func decodeNonce(v []byte) uint64 {
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func (s *BoltLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	return s.entries(func(models.LedgerEntry) bool { return true })
}

func (s *BoltLedgerStore) GetEntriesByAccount(ctx context.Context, accountId string) ([]models.LedgerEntry, error) {
	return s.entries(func(e models.LedgerEntry) bool { return e.AccountID == accountId })
}

func (s *BoltLedgerStore) entries(keep func(models.LedgerEntry) bool) ([]models.LedgerEntry, error) {
	var result []models.LedgerEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, v []byte) error {
			var entry models.LedgerEntry
			if err := jsonx.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			if keep(entry) {
				result = append(result, entry)
			}
			return nil
		})
	})
	return result, err
}

var (
	_ interfaces.RecordStore = (*BoltLedgerStore)(nil)
	_ interfaces.EntryStore  = (*BoltLedgerStore)(nil)
)
