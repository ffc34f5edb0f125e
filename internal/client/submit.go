package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/units"
)

// SubmitRequest is the transfer form. Amount is a decimal in display units.
type SubmitRequest struct {
	Receiver string
	Amount   string
	Message  string
	Keyword  string
}

// Receipt describes a completed submission.
type Receipt struct {
	ValueTxHash  common.Hash
	RecordTxHash common.Hash
	Index        uint64
	Timestamp    uint64
	From         common.Address
	To           common.Address
	Amount       *uint256.Int
}

// PartialSubmitError reports a submission whose value transfer completed
// but whose ledger record was not written. Pass it to RetryRecord to write
// the record without moving value again.
type PartialSubmitError struct {
	ValueTxHash common.Hash
	Request     SubmitRequest
	Err         error
}

func (e *PartialSubmitError) Error() string {
	return fmt.Sprintf("value transfer %s completed but the record was not written: %v", e.ValueTxHash.Hex(), e.Err)
}

func (e *PartialSubmitError) Unwrap() error {
	return e.Err
}

type submission struct {
	from     common.Address
	receiver common.Address
	amount   *uint256.Int
}

// Submit moves the amount to the receiver and then appends the ledger
// record. The two legs are not atomic: when the record leg fails the error
// is a *PartialSubmitError. Only one submission may be in flight.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (Receipt, error) {
	if err := c.requireProvider(); err != nil {
		return Receipt{}, err
	}
	if !c.submitting.CompareAndSwap(false, true) {
		return Receipt{}, apperrors.ValidationFailed("a submission is already in flight")
	}
	defer c.submitting.Store(false)

	sub, err := c.prepare(req)
	if err != nil {
		return Receipt{}, err
	}

	valueHash, err := c.provider.SendNativeValue(ctx, sub.from, sub.receiver, sub.amount)
	if err != nil {
		return Receipt{}, c.fail(err, "native transfer")
	}
	c.logger.Info().Str("tx_hash", valueHash.Hex()).Str("to", sub.receiver.Hex()).Msg("Value leg completed")

	return c.appendRecord(ctx, sub, req, valueHash)
}

// RetryRecord writes the ledger record of a partially completed submission.
func (c *Client) RetryRecord(ctx context.Context, partial *PartialSubmitError) (Receipt, error) {
	if partial == nil {
		return Receipt{}, apperrors.ValidationFailed("nothing to retry")
	}
	if err := c.requireProvider(); err != nil {
		return Receipt{}, err
	}
	if !c.submitting.CompareAndSwap(false, true) {
		return Receipt{}, apperrors.ValidationFailed("a submission is already in flight")
	}
	defer c.submitting.Store(false)

	sub, err := c.prepare(partial.Request)
	if err != nil {
		return Receipt{}, err
	}
	return c.appendRecord(ctx, sub, partial.Request, partial.ValueTxHash)
}

func (c *Client) prepare(req SubmitRequest) (submission, error) {
	from, ok := c.Account()
	if !ok {
		return submission{}, apperrors.ProviderUnavailable("wallet is not connected")
	}

	receiver := strings.TrimSpace(req.Receiver)
	if !common.IsHexAddress(receiver) {
		return submission{}, apperrors.ValidationFailed("invalid receiver address")
	}

	raw := strings.TrimSpace(req.Amount)
	if raw == "" {
		return submission{}, apperrors.ValidationFailed("amount is required")
	}
	amount, err := units.ParseAmount(raw)
	if err != nil {
		return submission{}, apperrors.ValidationFailed(err.Error())
	}

	return submission{from: from, receiver: common.HexToAddress(receiver), amount: amount}, nil
}

func (c *Client) appendRecord(ctx context.Context, sub submission, req SubmitRequest, valueHash common.Hash) (Receipt, error) {
	args, err := jsonx.Marshal(ledger.AppendArgs{
		Receiver: sub.receiver,
		Amount:   sub.amount,
		Message:  req.Message,
		Keyword:  req.Keyword,
	})
	if err != nil {
		return Receipt{}, apperrors.Internal("encode append arguments", err)
	}

	res, err := c.provider.CallContractMethod(ctx, models.ContractCall{
		From:   sub.from,
		To:     c.contract,
		Method: ledger.MethodAppend,
		Args:   args,
	})
	if err != nil {
		return Receipt{}, c.partial(valueHash, req, err)
	}

	var out ledger.AppendResult
	if err := jsonx.Unmarshal(res.Result, &out); err != nil {
		return Receipt{}, c.partial(valueHash, req, err)
	}

	c.mu.Lock()
	if out.Index+1 > c.count {
		c.count = out.Index + 1
	}
	count := c.count
	c.mu.Unlock()
	if err := c.cache.StoreCount(c.contract, count); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist count")
	}

	c.logger.Info().
		Str("tx_hash", res.TxHash.Hex()).
		Uint64("index", out.Index).
		Msg("Record leg completed")

	return Receipt{
		ValueTxHash:  valueHash,
		RecordTxHash: res.TxHash,
		Index:        out.Index,
		Timestamp:    out.Timestamp,
		From:         sub.from,
		To:           sub.receiver,
		Amount:       sub.amount,
	}, nil
}

func (c *Client) partial(valueHash common.Hash, req SubmitRequest, cause error) error {
	err := &PartialSubmitError{
		ValueTxHash: valueHash,
		Request:     req,
		Err:         apperrors.ExecutionFailed("record append failed", apperrors.Parse(cause, "record append")),
	}
	c.logger.Error().Err(cause).Str("value_tx_hash", valueHash.Hex()).Msg("Record leg failed after value transfer")
	return err
}
