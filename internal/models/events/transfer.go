package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	TopicTransfer         = "transfer"
	TopicValueTransferred = "value_transferred"
)

// Transfer is emitted by the record ledger after every successful append.
type Transfer struct {
	EventID   string         `json:"event_id"`
	Index     uint64         `json:"index"`
	Sender    common.Address `json:"sender"`
	Receiver  common.Address `json:"receiver"`
	Amount    *uint256.Int   `json:"amount"`
	Message   string         `json:"message"`
	Timestamp uint64         `json:"timestamp"`
	Keyword   string         `json:"keyword"`
}

// ValueTransferred is emitted by the native value subsystem once both ledger
// entries of a transfer are stored.
type ValueTransferred struct {
	TransactionHash string          `json:"transaction_hash"`
	FromAccount     string          `json:"from_account"`
	ToAccount       string          `json:"to_account"`
	Amount          decimal.Decimal `json:"amount"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
