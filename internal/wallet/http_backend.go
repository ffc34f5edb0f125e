package wallet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/sheikh-saqib/transfer-ledger/internal/api"
	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
)

// maxResponseBytes bounds a node response body.
const maxResponseBytes = 32 << 20

// HTTPBackend talks to a node over its HTTP API.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend for the node at baseURL. A nil client
// gets a 30 second timeout.
func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *HTTPBackend) SendValue(ctx context.Context, from, to common.Address, value *uint256.Int) (common.Hash, error) {
	var resp api.TransferResponse
	err := b.do(ctx, http.MethodPost, "/native/transfers", api.TransferRequest{From: from, To: to, Value: value}, &resp)
	return resp.TxHash, err
}

func (b *HTTPBackend) CallContract(ctx context.Context, call models.ContractCall) (models.CallResult, error) {
	var resp api.CallResponse
	req := api.CallRequest{From: call.From, Method: call.Method, Args: call.Args, View: call.View}
	if err := b.do(ctx, http.MethodPost, "/contracts/"+call.To.Hex()+"/call", req, &resp); err != nil {
		return models.CallResult{}, err
	}

	result := models.CallResult{Result: resp.Result}
	if resp.TxHash != nil {
		result.TxHash = *resp.TxHash
	}
	return result, nil
}

func (b *HTTPBackend) Balance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	var resp api.BalanceResponse
	if err := b.do(ctx, http.MethodGet, "/native/balances/"+addr.Hex(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Balance == nil {
		return new(uint256.Int), nil
	}
	return resp.Balance, nil
}

func (b *HTTPBackend) GasPrice(ctx context.Context) (*uint256.Int, error) {
	var resp api.GasPriceResponse
	if err := b.do(ctx, http.MethodGet, "/gas/price", nil, &resp); err != nil {
		return nil, err
	}
	if resp.GasPrice == nil {
		return nil, apperrors.ExecutionFailed("node returned no gas price", nil)
	}
	return resp.GasPrice, nil
}

func (b *HTTPBackend) EstimateGas(ctx context.Context, call models.ContractCall) (uint64, error) {
	var resp api.EstimateResponse
	req := api.EstimateRequest{From: call.From, To: call.To, Method: call.Method, Args: call.Args}
	if err := b.do(ctx, http.MethodPost, "/gas/estimate", req, &resp); err != nil {
		return 0, err
	}
	return resp.Gas, nil
}

// do sends a JSON request and decodes the response into out. Error bodies
// are turned back into AppErrors; transport failures are ExecutionFailed.
func (b *HTTPBackend) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := jsonx.Marshal(in)
		if err != nil {
			return apperrors.Internal("encode request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return apperrors.Internal("build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return apperrors.ExecutionFailed("node unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return apperrors.ExecutionFailed("read response", err)
	}
	if len(raw) > maxResponseBytes {
		return apperrors.ExecutionFailed("response too large", nil)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := jsonx.Unmarshal(raw, out); err != nil {
		return apperrors.ExecutionFailed("decode response", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var er api.ErrorResponse
	if err := jsonx.Unmarshal(raw, &er); err != nil || er.Code == "" {
		return apperrors.ExecutionFailed(fmt.Sprintf("node returned HTTP %d", status), nil)
	}
	appErr := apperrors.NewAppError(apperrors.ErrorCode(er.Code), er.Error, nil)
	appErr.HTTPStatus = status
	return appErr
}

var _ interfaces.ChainBackend = (*HTTPBackend)(nil)
