package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/metrics"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/models/events"
)

// DefaultMaxPageSize bounds Page when no other limit is configured.
const DefaultMaxPageSize = 500

// Ledger is the append-only transfer record contract. Any caller may append
// and read. Appends are serialized, which gives every record a stable index
// and a timestamp no earlier than its predecessor's.
type Ledger struct {
	mu          sync.RWMutex
	store       interfaces.RecordStore
	publisher   interfaces.EventPublisher
	now         func() time.Time
	maxPageSize uint64
	lastTS      uint64
	logger      zerolog.Logger
}

type Option func(*Ledger)

// WithClock replaces the wall clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMaxPageSize bounds the number of records a single Page call returns.
func WithMaxPageSize(n uint64) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxPageSize = n
		}
	}
}

// NewLedger opens the ledger over store. The timestamp of the last stored
// record seeds the monotonic clock. publisher may be nil.
func NewLedger(ctx context.Context, store interfaces.RecordStore, publisher interfaces.EventPublisher, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:       store,
		publisher:   publisher,
		now:         time.Now,
		maxPageSize: DefaultMaxPageSize,
		logger:      log.With().Str("component", "ledger").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	last, err := store.LastRecord(ctx)
	if err != nil {
		return nil, apperrors.ExecutionFailed("load last record", err)
	}
	if last != nil {
		l.lastTS = last.Timestamp
	}

	count, err := store.CountRecords(ctx)
	if err != nil {
		return nil, apperrors.ExecutionFailed("count records", err)
	}
	metrics.SetRecordCount(count)

	return l, nil
}

// Append records a transfer from caller and emits a Transfer event. No
// validation is applied to receiver, amount or the strings.
func (l *Ledger) Append(ctx context.Context, caller, receiver common.Address, amount *uint256.Int, message, keyword string) (models.TransferRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == nil {
		amount = new(uint256.Int)
	}

	ts := uint64(l.now().Unix())
	if ts < l.lastTS {
		ts = l.lastTS
	}

	rec := models.TransferRecord{
		Sender:    caller,
		Receiver:  receiver,
		Amount:    amount.Clone(),
		Message:   message,
		Keyword:   keyword,
		Timestamp: ts,
	}

	index, err := l.store.AppendRecord(ctx, rec)
	if err != nil {
		return models.TransferRecord{}, apperrors.ExecutionFailed("append record", err)
	}
	rec.Index = index
	l.lastTS = ts
	metrics.SetRecordCount(index + 1)

	l.logger.Debug().
		Uint64("index", index).
		Str("sender", caller.Hex()).
		Str("receiver", receiver.Hex()).
		Str("amount", rec.Amount.Dec()).
		Msg("Record appended")

	l.emit(ctx, rec)
	return rec, nil
}

// emit publishes the Transfer event. The record is already durable, so a
// publish failure is logged and counted but does not fail the append.
func (l *Ledger) emit(ctx context.Context, rec models.TransferRecord) {
	if l.publisher == nil {
		return
	}
	event := events.Transfer{
		EventID:   uuid.New().String(),
		Index:     rec.Index,
		Sender:    rec.Sender,
		Receiver:  rec.Receiver,
		Amount:    rec.Amount.Clone(),
		Message:   rec.Message,
		Timestamp: rec.Timestamp,
		Keyword:   rec.Keyword,
	}
	if err := l.publisher.Publish(ctx, events.TopicTransfer, event); err != nil {
		metrics.RecordPublishFailure(events.TopicTransfer)
		l.logger.Error().Err(err).Uint64("index", rec.Index).Msg("Failed to publish transfer event")
	}
}

// List returns every record in insertion order. Its cost grows with the
// ledger; prefer Page for anything but small ledgers.
func (l *Ledger) List(ctx context.Context) ([]models.TransferRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records, err := l.store.ListRecords(ctx)
	if err != nil {
		return nil, apperrors.ExecutionFailed("list records", err)
	}
	return records, nil
}

// Page returns up to limit records starting at offset. limit is clamped to
// the configured maximum; zero means the maximum.
func (l *Ledger) Page(ctx context.Context, offset, limit uint64) ([]models.TransferRecord, error) {
	if limit == 0 || limit > l.maxPageSize {
		limit = l.maxPageSize
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	records, err := l.store.PageRecords(ctx, offset, limit)
	if err != nil {
		return nil, apperrors.ExecutionFailed("page records", err)
	}
	return records, nil
}

func (l *Ledger) Count(ctx context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count, err := l.store.CountRecords(ctx)
	if err != nil {
		return 0, apperrors.ExecutionFailed("count records", err)
	}
	return count, nil
}

func (l *Ledger) MaxPageSize() uint64 {
	return l.maxPageSize
}
