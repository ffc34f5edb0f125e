package client

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

// CountCache persists the last record count seen for a contract.
type CountCache interface {
	LoadCount(contract common.Address) (uint64, bool, error)
	StoreCount(contract common.Address, n uint64) error
}

type MemoryCountCache struct {
	mu     sync.Mutex
	counts map[common.Address]uint64
}

func NewMemoryCountCache() *MemoryCountCache {
	return &MemoryCountCache{counts: make(map[common.Address]uint64)}
}

func (m *MemoryCountCache) LoadCount(contract common.Address) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.counts[contract]
	return n, ok, nil
}

func (m *MemoryCountCache) StoreCount(contract common.Address, n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[contract] = n
	return nil
}

var countBucket = []byte("transactionCount")

// BoltCountCache keeps counts in a bbolt file so they survive restarts.
type BoltCountCache struct {
	db *bolt.DB
}

func OpenBoltCountCache(path string) (*BoltCountCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open count cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(countBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create count bucket: %w", err)
	}
	return &BoltCountCache{db: db}, nil
}

func (b *BoltCountCache) LoadCount(contract common.Address) (uint64, bool, error) {
	var (
		n  uint64
		ok bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(countBucket).Get(contract.Bytes())
		if len(v) != 8 {
			return nil
		}
		n, ok = binary.BigEndian.Uint64(v), true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("load count: %w", err)
	}
	return n, ok, nil
}

func (b *BoltCountCache) StoreCount(contract common.Address, n uint64) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], n)
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(countBucket).Put(contract.Bytes(), v[:])
	})
	if err != nil {
		return fmt.Errorf("store count: %w", err)
	}
	return nil
}

func (b *BoltCountCache) Close() error {
	return b.db.Close()
}
