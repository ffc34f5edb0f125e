package api

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type TransferRequest struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"` // base units
}

type TransferResponse struct {
	TxHash common.Hash `json:"tx_hash"`
}

type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
}

// CallRequest invokes a contract method. The contract address comes from
// the URL.
type CallRequest struct {
	From   common.Address  `json:"from"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
	View   bool            `json:"view"`
}

type CallResponse struct {
	TxHash *common.Hash    `json:"tx_hash,omitempty"` // omitted for view calls
	Result json.RawMessage `json:"result,omitempty"`
}

type GasPriceResponse struct {
	GasPrice *uint256.Int `json:"gas_price"`
}

type EstimateRequest struct {
	From   common.Address  `json:"from"`
	To     common.Address  `json:"to"`
	Method string          `json:"method,omitempty"` // empty for a plain value transfer
	Args   json.RawMessage `json:"args,omitempty"`
}

type EstimateResponse struct {
	Gas uint64 `json:"gas"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}
