package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry represents one side of a native value transfer for an account
type LedgerEntry struct {
	ID           string          `json:"id"`            // transfer hash + "-debit" / "-credit"
	TransferHash string          `json:"transfer_hash"` // hash of the owning ValueTransfer
	AccountID    string          `json:"account_id"`    // hex address
	Amount       decimal.Decimal `json:"amount"`        // base units, negative for debits
	CreatedAt    time.Time       `json:"created_at"`
}
