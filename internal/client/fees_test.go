package client

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/node"
	"github.com/sheikh-saqib/transfer-ledger/internal/wallet"
)

type stubOracle struct {
	price    *uint256.Int
	priceErr error
	gas      uint64
	gasErr   error
}

func (s stubOracle) GasPrice(context.Context) (*uint256.Int, error) { return s.price, s.priceErr }

func (s stubOracle) EstimateGas(context.Context, models.ContractCall) (uint64, error) {
	return s.gas, s.gasErr
}

func TestEstimateFees_Tiers(t *testing.T) {
	oracle := stubOracle{price: uint256.NewInt(100), gas: 50000}

	est, err := EstimateFees(context.Background(), oracle, models.ContractCall{Method: "append"})
	require.NoError(t, err)
	assert.Equal(t, uint64(50000), est.GasLimit)
	assert.Equal(t, uint64(60000), est.RecommendedGasLimit)
	require.Len(t, est.Tiers, 4)

	want := []struct {
		name  string
		price uint64
	}{{"slow", 80}, {"standard", 100}, {"fast", 120}, {"instant", 150}}
	for i, w := range want {
		tier := est.Tiers[i]
		assert.Equal(t, w.name, tier.Name)
		assert.Equal(t, w.price, tier.GasPrice.Uint64())
		assert.Equal(t, w.price*60000, tier.TotalCost.Uint64())
		assert.NotEmpty(t, tier.EstimatedTime)
	}
}

func TestEstimateFees_ValueTransferUsesFixedGas(t *testing.T) {
	oracle := stubOracle{price: uint256.NewInt(10), gasErr: errors.New("should not be called")}

	est, err := EstimateFees(context.Background(), oracle, models.ContractCall{})
	require.NoError(t, err)
	assert.Equal(t, ValueTransferGas, est.GasLimit)
	assert.Equal(t, uint64(25200), est.RecommendedGasLimit)
}

func TestEstimateFees_FallbackPrice(t *testing.T) {
	oracle := stubOracle{priceErr: errors.New("rpc down")}

	est, err := EstimateFees(context.Background(), oracle, models.ContractCall{})
	require.NoError(t, err)
	assert.Equal(t, FallbackGasPrice.Uint64(), est.Tiers[1].GasPrice.Uint64())
}

func TestEstimateFees_GasError(t *testing.T) {
	oracle := stubOracle{price: uint256.NewInt(1), gasErr: errors.New("execution reverted")}

	_, err := EstimateFees(context.Background(), oracle, models.ContractCall{Method: "append"})
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
}

func TestClientEstimateFees(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, wallet.AutoApprove, alice)

	fees, err := c.EstimateFees(context.Background(), SubmitRequest{Receiver: bob.Hex(), Amount: "1", Message: "hi", Keyword: "cat"})
	require.NoError(t, err)
	assert.Equal(t, node.TxGas, fees.Value.GasLimit)
	assert.Greater(t, fees.Record.GasLimit, node.TxGas)
	assert.Equal(t, uint64(1_000_000_000), fees.Record.Tiers[1].GasPrice.Uint64())
}

type noOracle struct{ failingProvider }

func TestClientEstimateFees_NoOracle(t *testing.T) {
	c := New(noOracle{}, contract)

	_, err := c.EstimateFees(context.Background(), SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestShortenAddress(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	assert.Equal(t, "0x123...7890", ShortenAddress(addr))
}
