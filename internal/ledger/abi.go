package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/metrics"
)

// Contract method names.
const (
	MethodAppend = "append"
	MethodList   = "list"
	MethodPage   = "page"
	MethodCount  = "count"
)

// AppendArgs are the arguments of the append method.
type AppendArgs struct {
	Receiver common.Address `json:"receiver"`
	Amount   *uint256.Int   `json:"amount"`
	Message  string         `json:"message"`
	Keyword  string         `json:"keyword"`
}

// PageArgs are the arguments of the page method.
type PageArgs struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// AppendResult is returned by append: the index of the new record and its
// timestamp.
type AppendResult struct {
	Index     uint64 `json:"index"`
	Timestamp uint64 `json:"timestamp"`
}

// IsView reports whether method only reads state.
func IsView(method string) bool {
	switch method {
	case MethodList, MethodPage, MethodCount:
		return true
	}
	return false
}

// Call dispatches an encoded contract call. Unknown methods, malformed
// arguments and state changes attempted in a view call revert with
// ExecutionFailed.
func (l *Ledger) Call(ctx context.Context, caller common.Address, method string, args []byte, view bool) (result []byte, err error) {
	defer func() {
		metrics.RecordContractCall(method, err == nil)
	}()

	switch method {
	case MethodAppend:
		if view {
			return nil, revert("append cannot be called as a view", nil)
		}
		var in AppendArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		rec, err := l.Append(ctx, caller, in.Receiver, in.Amount, in.Message, in.Keyword)
		if err != nil {
			return nil, err
		}
		return encodeResult(AppendResult{Index: rec.Index, Timestamp: rec.Timestamp})

	case MethodList:
		records, err := l.List(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResult(records)

	case MethodPage:
		var in PageArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		records, err := l.Page(ctx, in.Offset, in.Limit)
		if err != nil {
			return nil, err
		}
		return encodeResult(records)

	case MethodCount:
		count, err := l.Count(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResult(count)
	}

	return nil, revert(fmt.Sprintf("unknown method %q", method), nil)
}

func decodeArgs(args []byte, v any) error {
	if len(args) == 0 {
		return revert("missing arguments", nil)
	}
	if err := jsonx.Unmarshal(args, v); err != nil {
		return revert("malformed arguments", err)
	}
	return nil
}

func encodeResult(v any) ([]byte, error) {
	out, err := jsonx.Marshal(v)
	if err != nil {
		return nil, apperrors.Internal("encode result", err)
	}
	return out, nil
}

func revert(reason string, err error) error {
	return apperrors.ExecutionFailed("execution reverted: "+reason, err)
}
