package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TransferRecord is one entry of the append-only record ledger. Records are
// never modified once stored.
type TransferRecord struct {
	Index     uint64         `json:"index"`
	Sender    common.Address `json:"sender"`
	Receiver  common.Address `json:"receiver"`
	Amount    *uint256.Int   `json:"amount"` // base units
	Message   string         `json:"message"`
	Keyword   string         `json:"keyword"`
	Timestamp uint64         `json:"timestamp"` // unix seconds, set by the ledger
}

// AmountOrZero returns the record amount, treating a missing amount as zero.
func (r TransferRecord) AmountOrZero() *uint256.Int {
	if r.Amount == nil {
		return new(uint256.Int)
	}
	return r.Amount
}
