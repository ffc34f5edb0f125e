package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TxRequest is what the wallet owner is asked to approve.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Value    *uint256.Int // nil for contract calls
	Method   string       // empty for value transfers
	Args     []byte
	Gas      uint64
	GasPrice *uint256.Int // nil when the backend could not price the call
}

// Approver stands in for the human behind the wallet.
type Approver interface {
	ApproveConnect(ctx context.Context, accounts []common.Address) (bool, error)
	ApproveTransaction(ctx context.Context, req TxRequest) (bool, error)
}

type autoApprove struct{}

func (autoApprove) ApproveConnect(context.Context, []common.Address) (bool, error) { return true, nil }
func (autoApprove) ApproveTransaction(context.Context, TxRequest) (bool, error)   { return true, nil }

type denyAll struct{}

func (denyAll) ApproveConnect(context.Context, []common.Address) (bool, error) { return false, nil }
func (denyAll) ApproveTransaction(context.Context, TxRequest) (bool, error)   { return false, nil }

var (
	// AutoApprove accepts every prompt.
	AutoApprove Approver = autoApprove{}
	// DenyAll declines every prompt.
	DenyAll Approver = denyAll{}
)

// ApproverFuncs adapts plain functions. A nil func approves.
type ApproverFuncs struct {
	Connect     func(ctx context.Context, accounts []common.Address) (bool, error)
	Transaction func(ctx context.Context, req TxRequest) (bool, error)
}

func (a ApproverFuncs) ApproveConnect(ctx context.Context, accounts []common.Address) (bool, error) {
	if a.Connect == nil {
		return true, nil
	}
	return a.Connect(ctx, accounts)
}

func (a ApproverFuncs) ApproveTransaction(ctx context.Context, req TxRequest) (bool, error) {
	if a.Transaction == nil {
		return true, nil
	}
	return a.Transaction(ctx, req)
}
