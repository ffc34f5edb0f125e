package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ValueTransfer represents an intent to move native value between two accounts
type ValueTransfer struct {
	Hash      common.Hash    `json:"hash"`
	From      common.Address `json:"from"`
	To        common.Address `json:"to"`
	Value     *uint256.Int   `json:"value"` // base units
	Nonce     uint64         `json:"nonce"`
	CreatedAt time.Time      `json:"created_at"`
}
