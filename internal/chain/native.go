package chain

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/metrics"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/models/events"
	"github.com/sheikh-saqib/transfer-ledger/internal/units"
)

// GenesisAccount is the zero address. Funding credits are debited from it
// and it is exempt from the balance check.
var GenesisAccount = common.Address{}

// Native is the native value subsystem: every transfer is stored as a pair
// of double-entry ledger entries and balances are the sum of an account's
// entries.
type Native struct {
	store     interfaces.EntryStore
	publisher interfaces.EventPublisher
	muMap     map[string]*sync.Mutex // per-account locks
	mapMu     sync.Mutex             // protects muMap
	nonceMu   sync.Mutex
	nonces    map[common.Address]uint64
	now       func() time.Time
}

// NewNative creates the value subsystem on top of store. publisher may be nil.
func NewNative(store interfaces.EntryStore, publisher interfaces.EventPublisher) *Native {
	return &Native{
		store:     store,
		publisher: publisher,
		muMap:     make(map[string]*sync.Mutex),
		nonces:    make(map[common.Address]uint64),
		now:       time.Now,
	}
}

func (n *Native) getAccountLock(accountId string) *sync.Mutex {
	n.mapMu.Lock()
	defer n.mapMu.Unlock()

	if _, exists := n.muMap[accountId]; !exists {
		n.muMap[accountId] = &sync.Mutex{}
	}
	return n.muMap[accountId]
}

// nextNonce reserves the next nonce for from. Senders resume from the store
// after a restart. The genesis account restarts at 0 so configured funding
// replays as a no-op.
func (n *Native) nextNonce(ctx context.Context, from common.Address) (uint64, error) {
	n.nonceMu.Lock()
	defer n.nonceMu.Unlock()

	nonce, seen := n.nonces[from]
	if !seen && from != GenesisAccount {
		stored, err := n.store.NextNonce(ctx, from.Hex())
		if err != nil {
			return 0, err
		}
		nonce = stored
	}
	n.nonces[from] = nonce + 1
	return nonce, nil
}

// TransferHash derives a transfer's identity from its parties, value and nonce.
func TransferHash(from, to common.Address, value *uint256.Int, nonce uint64) common.Hash {
	v := value
	if v == nil {
		v = new(uint256.Int)
	}
	word := v.Bytes32()
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	return crypto.Keccak256Hash(from.Bytes(), to.Bytes(), word[:], nb[:])
}

// Transfer moves value from one account to another and returns the stored
// transfer. Zero-value transfers are allowed.
func (n *Native) Transfer(ctx context.Context, from, to common.Address, value *uint256.Int) (models.ValueTransfer, error) {
	if value == nil {
		value = new(uint256.Int)
	}
	nonce, err := n.nextNonce(ctx, from)
	if err != nil {
		metrics.RecordValueTransfer(false)
		return models.ValueTransfer{}, apperrors.ExecutionFailed("read nonce", err)
	}
	tx := models.ValueTransfer{
		Hash:      TransferHash(from, to, value, nonce),
		From:      from,
		To:        to,
		Value:     value.Clone(),
		Nonce:     nonce,
		CreatedAt: n.now().UTC(),
	}

	err = n.PostTransaction(ctx, tx)
	metrics.RecordValueTransfer(err == nil)
	if err != nil {
		return models.ValueTransfer{}, err
	}
	return tx, nil
}

// Fund credits addr from the genesis account. Used for dev-chain balances.
func (n *Native) Fund(ctx context.Context, addr common.Address, value *uint256.Int) (models.ValueTransfer, error) {
	return n.Transfer(ctx, GenesisAccount, addr, value)
}

// PostTransaction converts a ValueTransfer into a debit and a credit entry
// and saves them atomically. Re-posting a transfer with a known hash is a
// no-op.
func (n *Native) PostTransaction(ctx context.Context, tx models.ValueTransfer) error {
	// Idempotency check
	exists, err := n.store.TransferExists(ctx, tx.Hash.Hex())
	if err != nil {
		return apperrors.ExecutionFailed("check transfer", err)
	}
	if exists {
		return nil
	}

	from, to := tx.From.Hex(), tx.To.Hex()

	// Lock in order to avoid deadlocks; a self-transfer takes one lock.
	debitMutex := n.getAccountLock(from)
	creditMutex := n.getAccountLock(to)
	switch {
	case from == to:
		debitMutex.Lock()
		defer debitMutex.Unlock()
	case from < to:
		debitMutex.Lock()
		creditMutex.Lock()
		defer debitMutex.Unlock()
		defer creditMutex.Unlock()
	default:
		creditMutex.Lock()
		debitMutex.Lock()
		defer debitMutex.Unlock()
		defer creditMutex.Unlock()
	}

	amount := units.BaseUnitsToDecimal(tx.Value)

	if tx.From != GenesisAccount {
		balance, err := n.balanceOf(ctx, from)
		if err != nil {
			return apperrors.ExecutionFailed("read balance", err)
		}
		if balance.LessThan(amount) {
			return apperrors.ExecutionFailed("insufficient funds for transfer", nil)
		}
	}

	// Debit: value leaving the sender, stored negative.
	debit := models.LedgerEntry{
		ID:           tx.Hash.Hex() + "-debit",
		TransferHash: tx.Hash.Hex(),
		AccountID:    from,
		Amount:       amount.Neg(),
		CreatedAt:    tx.CreatedAt,
	}

	// Credit: value entering the receiver.
	credit := models.LedgerEntry{
		ID:           tx.Hash.Hex() + "-credit",
		TransferHash: tx.Hash.Hex(),
		AccountID:    to,
		Amount:       amount,
		CreatedAt:    tx.CreatedAt,
	}

	if err := n.store.SaveTransferWithEntries(ctx, tx, debit, credit); err != nil {
		return apperrors.ExecutionFailed("save transfer", err)
	}

	n.publish(ctx, events.ValueTransferred{
		TransactionHash: tx.Hash.Hex(),
		FromAccount:     from,
		ToAccount:       to,
		Amount:          amount,
		OccurredAt:      tx.CreatedAt,
	})

	return nil
}

func (n *Native) publish(ctx context.Context, event events.ValueTransferred) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, events.TopicValueTransferred, event); err != nil {
		metrics.RecordPublishFailure(events.TopicValueTransferred)
		log.Error().Err(err).Str("tx_hash", event.TransactionHash).Msg("Failed to publish value transfer event")
	}
}

func (n *Native) balanceOf(ctx context.Context, accountId string) (decimal.Decimal, error) {
	ledgerEntries, err := n.store.GetEntriesByAccount(ctx, accountId)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, ledgerEntry := range ledgerEntries {
		balance = balance.Add(ledgerEntry.Amount)
	}
	return balance, nil
}

// GetBalance returns the balance of addr in base units.
func (n *Native) GetBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	balance, err := n.balanceOf(ctx, addr.Hex())
	if err != nil {
		return nil, apperrors.ExecutionFailed("read balance", err)
	}
	return units.DecimalToBaseUnits(balance), nil
}

func (n *Native) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	ledgerEntries, err := n.store.GetLedgerEntries(ctx)
	if err != nil {
		return []models.LedgerEntry{}, apperrors.ExecutionFailed("read ledger entries", err)
	}
	return ledgerEntries, nil
}
