package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// WalletProvider grants access to a wallet's accounts and signing
// capability. RequestAccounts and state-changing calls may block on a human
// approval.
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns the accounts already authorized, without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	SendNativeValue(ctx context.Context, from, to common.Address, value *uint256.Int) (common.Hash, error)
	CallContractMethod(ctx context.Context, call models.ContractCall) (models.CallResult, error)
}

// GasOracle is implemented by providers that can price transactions.
type GasOracle interface {
	GasPrice(ctx context.Context) (*uint256.Int, error)
	EstimateGas(ctx context.Context, call models.ContractCall) (uint64, error)
}

// ChainBackend is the execution platform a wallet submits to.
type ChainBackend interface {
	GasOracle
	SendValue(ctx context.Context, from, to common.Address, value *uint256.Int) (common.Hash, error)
	CallContract(ctx context.Context, call models.ContractCall) (models.CallResult, error)
	Balance(ctx context.Context, addr common.Address) (*uint256.Int, error)
}
