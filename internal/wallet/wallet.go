// Package wallet is the wallet provider the ledger client talks to. It holds
// a set of accounts, asks an Approver before exposing them or spending from
// them, and forwards approved work to a chain backend.
package wallet

import (
	"context"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

type Wallet struct {
	backend  interfaces.ChainBackend
	approver Approver
	accounts []common.Address

	mu         sync.RWMutex
	authorized bool

	logger zerolog.Logger
}

// New creates a wallet over backend managing accounts. A nil approver
// approves everything.
func New(backend interfaces.ChainBackend, approver Approver, accounts []common.Address) *Wallet {
	if approver == nil {
		approver = AutoApprove
	}
	return &Wallet{
		backend:  backend,
		approver: approver,
		accounts: slices.Clone(accounts),
		logger:   log.With().Str("component", "wallet").Logger(),
	}
}

// RequestAccounts asks the owner to expose the wallet's accounts. Once
// approved, later calls return immediately.
func (w *Wallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if len(w.accounts) == 0 {
		return nil, apperrors.ProviderUnavailable("wallet has no accounts")
	}

	w.mu.RLock()
	authorized := w.authorized
	w.mu.RUnlock()
	if authorized {
		return slices.Clone(w.accounts), nil
	}

	ok, err := w.approver.ApproveConnect(ctx, slices.Clone(w.accounts))
	if err != nil {
		return nil, apperrors.ExecutionFailed("connection prompt failed", err)
	}
	if !ok {
		w.logger.Info().Msg("Connection request rejected")
		return nil, apperrors.UserRejected("user rejected the connection request")
	}

	w.mu.Lock()
	w.authorized = true
	w.mu.Unlock()

	w.logger.Info().Str("account", w.accounts[0].Hex()).Msg("Accounts exposed")
	return slices.Clone(w.accounts), nil
}

// Accounts returns the exposed accounts without prompting. It is empty until
// RequestAccounts has been approved.
func (w *Wallet) Accounts(ctx context.Context) ([]common.Address, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.authorized {
		return []common.Address{}, nil
	}
	return slices.Clone(w.accounts), nil
}

func (w *Wallet) SendNativeValue(ctx context.Context, from, to common.Address, value *uint256.Int) (common.Hash, error) {
	if err := w.checkAccount(from); err != nil {
		return common.Hash{}, err
	}

	req := TxRequest{From: from, To: to, Value: value}
	req.Gas, req.GasPrice = w.price(ctx, models.ContractCall{From: from, To: to})
	if err := w.approve(ctx, req); err != nil {
		return common.Hash{}, err
	}

	return w.backend.SendValue(ctx, from, to, value)
}

// CallContractMethod forwards call to the backend. View calls need neither
// authorization nor approval.
func (w *Wallet) CallContractMethod(ctx context.Context, call models.ContractCall) (models.CallResult, error) {
	if call.View {
		return w.backend.CallContract(ctx, call)
	}

	if err := w.checkAccount(call.From); err != nil {
		return models.CallResult{}, err
	}

	req := TxRequest{From: call.From, To: call.To, Method: call.Method, Args: call.Args}
	req.Gas, req.GasPrice = w.price(ctx, call)
	if err := w.approve(ctx, req); err != nil {
		return models.CallResult{}, err
	}

	return w.backend.CallContract(ctx, call)
}

func (w *Wallet) GasPrice(ctx context.Context) (*uint256.Int, error) {
	return w.backend.GasPrice(ctx)
}

func (w *Wallet) EstimateGas(ctx context.Context, call models.ContractCall) (uint64, error) {
	return w.backend.EstimateGas(ctx, call)
}

// Balance reports the native balance of addr.
func (w *Wallet) Balance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	return w.backend.Balance(ctx, addr)
}

func (w *Wallet) checkAccount(from common.Address) error {
	w.mu.RLock()
	authorized := w.authorized
	w.mu.RUnlock()

	if !authorized {
		return apperrors.ProviderUnavailable("wallet is not connected")
	}
	if !slices.Contains(w.accounts, from) {
		return apperrors.ValidationFailed("account " + from.Hex() + " is not managed by this wallet")
	}
	return nil
}

// price fills in the gas shown on the approval prompt. Pricing failures are
// not fatal; the prompt shows what is known.
func (w *Wallet) price(ctx context.Context, call models.ContractCall) (uint64, *uint256.Int) {
	gas, err := w.backend.EstimateGas(ctx, call)
	if err != nil {
		w.logger.Debug().Err(err).Msg("Gas estimation failed")
	}
	price, err := w.backend.GasPrice(ctx)
	if err != nil {
		w.logger.Debug().Err(err).Msg("Gas price unavailable")
		price = nil
	}
	return gas, price
}

func (w *Wallet) approve(ctx context.Context, req TxRequest) error {
	ok, err := w.approver.ApproveTransaction(ctx, req)
	if err != nil {
		return apperrors.ExecutionFailed("approval prompt failed", err)
	}
	if !ok {
		w.logger.Info().Str("from", req.From.Hex()).Str("method", req.Method).Msg("Transaction rejected")
		return apperrors.UserRejected("user rejected transaction")
	}
	return nil
}

var (
	_ interfaces.WalletProvider = (*Wallet)(nil)
	_ interfaces.GasOracle      = (*Wallet)(nil)
)
