package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// ValueTransferGas is the gas limit sent with the native value leg.
const ValueTransferGas uint64 = 21000

// FallbackGasPrice (20 gwei) is used when the provider cannot report one.
var FallbackGasPrice = uint256.NewInt(20_000_000_000)

type FeeTier struct {
	Name          string
	GasPrice      *uint256.Int
	GasLimit      uint64
	TotalCost     *uint256.Int
	EstimatedTime string
}

type FeeEstimate struct {
	GasLimit            uint64 // as estimated
	RecommendedGasLimit uint64 // with a 20% buffer
	Tiers               []FeeTier
}

// SubmitFees prices both legs of a submission.
type SubmitFees struct {
	Value  FeeEstimate
	Record FeeEstimate
}

var feeTiers = []struct {
	name    string
	percent uint64
	eta     string
}{
	{"slow", 80, "5-10 minutes"},
	{"standard", 100, "2-5 minutes"},
	{"fast", 120, "30 seconds - 2 minutes"},
	{"instant", 150, "15-30 seconds"},
}

// EstimateFees prices call at each fee tier. An empty call.Method prices a
// plain value transfer at ValueTransferGas.
func EstimateFees(ctx context.Context, oracle interfaces.GasOracle, call models.ContractCall) (FeeEstimate, error) {
	gas := ValueTransferGas
	if call.Method != "" {
		var err error
		gas, err = oracle.EstimateGas(ctx, call)
		if err != nil {
			return FeeEstimate{}, apperrors.Parse(err, "gas estimation")
		}
	}

	price, err := oracle.GasPrice(ctx)
	if err != nil || price == nil {
		price = FallbackGasPrice
	}

	limit := gas * 120 / 100
	est := FeeEstimate{GasLimit: gas, RecommendedGasLimit: limit}
	for _, t := range feeTiers {
		tierPrice := new(uint256.Int).Mul(price, uint256.NewInt(t.percent))
		tierPrice.Div(tierPrice, uint256.NewInt(100))
		est.Tiers = append(est.Tiers, FeeTier{
			Name:          t.name,
			GasPrice:      tierPrice,
			GasLimit:      limit,
			TotalCost:     new(uint256.Int).Mul(tierPrice, uint256.NewInt(limit)),
			EstimatedTime: t.eta,
		})
	}
	return est, nil
}

// EstimateFees prices both legs of req. The provider must also be a
// GasOracle.
func (c *Client) EstimateFees(ctx context.Context, req SubmitRequest) (SubmitFees, error) {
	if err := c.requireProvider(); err != nil {
		return SubmitFees{}, err
	}
	oracle, ok := c.provider.(interfaces.GasOracle)
	if !ok {
		return SubmitFees{}, apperrors.ProviderUnavailable("provider cannot price transactions")
	}

	sub, err := c.prepare(req)
	if err != nil {
		return SubmitFees{}, err
	}

	value, err := EstimateFees(ctx, oracle, models.ContractCall{From: sub.from, To: sub.receiver})
	if err != nil {
		return SubmitFees{}, err
	}

	args, err := jsonx.Marshal(ledger.AppendArgs{Receiver: sub.receiver, Amount: sub.amount, Message: req.Message, Keyword: req.Keyword})
	if err != nil {
		return SubmitFees{}, apperrors.Internal("encode append arguments", err)
	}
	record, err := EstimateFees(ctx, oracle, models.ContractCall{From: sub.from, To: c.contract, Method: ledger.MethodAppend, Args: args})
	if err != nil {
		return SubmitFees{}, err
	}

	return SubmitFees{Value: value, Record: record}, nil
}

// ShortenAddress renders addr as "0x123...abcd".
func ShortenAddress(addr common.Address) string {
	s := addr.Hex()
	return s[:5] + "..." + s[len(s)-4:]
}
