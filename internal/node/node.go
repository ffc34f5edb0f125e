// Package node is the execution platform: it hosts the record ledger
// contract at a fixed address next to the native value subsystem, and
// prices transactions.
package node

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sheikh-saqib/transfer-ledger/internal/chain"
	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// Gas schedule used by EstimateGas.
const (
	TxGas           uint64 = 21000 // plain value transfer
	TxDataGas       uint64 = 16    // per byte of call data
	StorageWordGas  uint64 = 20000 // per 32-byte word written by append
	RecordBaseWords uint64 = 4     // sender, receiver, amount, timestamp
)

// DefaultGasPrice is 20 gwei.
var DefaultGasPrice = uint256.NewInt(20_000_000_000)

// Contract is a deployed contract the node can dispatch calls to.
type Contract interface {
	Call(ctx context.Context, caller common.Address, method string, args []byte, view bool) ([]byte, error)
}

type Node struct {
	native    *chain.Native
	contracts map[common.Address]Contract
	gasPrice  *uint256.Int

	seqMu sync.Mutex
	seq   uint64

	logger zerolog.Logger
}

// New creates a node backed by native. A nil gasPrice selects
// DefaultGasPrice.
func New(native *chain.Native, gasPrice *uint256.Int) *Node {
	if gasPrice == nil {
		gasPrice = DefaultGasPrice
	}
	return &Node{
		native:    native,
		contracts: make(map[common.Address]Contract),
		gasPrice:  gasPrice.Clone(),
		logger:    log.With().Str("component", "node").Logger(),
	}
}

// Deploy registers contract at addr, replacing anything already there. It
// must be called before the node serves requests.
func (n *Node) Deploy(addr common.Address, contract Contract) {
	n.contracts[addr] = contract
	n.logger.Info().Str("address", addr.Hex()).Msg("Contract deployed")
}

func (n *Node) SendValue(ctx context.Context, from, to common.Address, value *uint256.Int) (common.Hash, error) {
	tx, err := n.native.Transfer(ctx, from, to, value)
	if err != nil {
		n.logger.Warn().Err(err).Str("from", from.Hex()).Str("to", to.Hex()).Msg("Value transfer failed")
		return common.Hash{}, err
	}
	n.logger.Info().
		Str("tx_hash", tx.Hash.Hex()).
		Str("from", from.Hex()).
		Str("to", to.Hex()).
		Str("value", tx.Value.Dec()).
		Msg("Value transferred")
	return tx.Hash, nil
}

// CallContract executes call against the contract at call.To. State-changing
// calls are given a transaction hash; view calls are not.
func (n *Node) CallContract(ctx context.Context, call models.ContractCall) (models.CallResult, error) {
	contract, ok := n.contracts[call.To]
	if !ok {
		return models.CallResult{}, apperrors.ExecutionFailed("no contract deployed at "+call.To.Hex(), nil)
	}

	out, err := contract.Call(ctx, call.From, call.Method, call.Args, call.View)
	if err != nil {
		n.logger.Warn().Err(err).Str("method", call.Method).Str("from", call.From.Hex()).Msg("Contract call failed")
		return models.CallResult{}, err
	}

	result := models.CallResult{Result: out}
	if !call.View {
		result.TxHash = n.callHash(call)
		n.logger.Info().
			Str("tx_hash", result.TxHash.Hex()).
			Str("method", call.Method).
			Str("from", call.From.Hex()).
			Msg("Contract transaction executed")
	}
	return result, nil
}

func (n *Node) callHash(call models.ContractCall) common.Hash {
	n.seqMu.Lock()
	seq := n.seq
	n.seq++
	n.seqMu.Unlock()

	var sb [8]byte
	binary.BigEndian.PutUint64(sb[:], seq)
	return crypto.Keccak256Hash(call.From.Bytes(), call.To.Bytes(), []byte(call.Method), call.Args, sb[:])
}

func (n *Node) Balance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	return n.native.GetBalance(ctx, addr)
}

// LedgerEntries returns every double-entry record of the native subsystem.
func (n *Node) LedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	return n.native.GetLedgerEntries(ctx)
}

func (n *Node) GasPrice(ctx context.Context) (*uint256.Int, error) {
	return n.gasPrice.Clone(), nil
}

// EstimateGas prices a call with a flat schedule: the base transaction cost,
// a per-byte cost for call data, and storage words for appended records. An
// empty Method prices a plain value transfer.
func (n *Node) EstimateGas(ctx context.Context, call models.ContractCall) (uint64, error) {
	if call.Method == "" {
		return TxGas, nil
	}
	if _, ok := n.contracts[call.To]; !ok {
		return 0, apperrors.ExecutionFailed("no contract deployed at "+call.To.Hex(), nil)
	}

	gas := TxGas + TxDataGas*uint64(len(call.Args))
	if call.Method == ledger.MethodAppend {
		words := RecordBaseWords + (uint64(len(call.Args))+31)/32
		gas += StorageWordGas * words
	}
	return gas, nil
}

var _ interfaces.ChainBackend = (*Node)(nil)
