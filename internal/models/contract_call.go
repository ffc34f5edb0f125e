package models

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// ContractCall invokes a method of a deployed contract. View calls must not
// change state and never prompt the wallet owner.
type ContractCall struct {
	From   common.Address  `json:"from"`
	To     common.Address  `json:"to"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
	View   bool            `json:"view"`
}

// CallResult carries the encoded return value of a contract method. TxHash
// is zero for view calls.
type CallResult struct {
	TxHash common.Hash     `json:"tx_hash"`
	Result json.RawMessage `json:"result,omitempty"`
}
