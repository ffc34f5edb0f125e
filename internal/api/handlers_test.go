package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/transfer-ledger/internal/chain"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/node"
	"github.com/sheikh-saqib/transfer-ledger/internal/storage/memory"
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	contract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()

	native := chain.NewNative(store, nil)
	_, err := native.Fund(ctx, alice, uint256.NewInt(1000))
	require.NoError(t, err)

	l, err := ledger.NewLedger(ctx, store, nil)
	require.NoError(t, err)

	n := node.New(native, uint256.NewInt(5))
	n.Deploy(contract, l)
	return NewRouter(NewHandler(n))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestNativeTransferAndBalance(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/native/transfers",
		`{"from":"`+alice.Hex()+`","to":"`+bob.Hex()+`","value":"400"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tr TransferResponse
	decode(t, rec, &tr)
	assert.NotEqual(t, common.Hash{}, tr.TxHash)

	rec = do(t, h, http.MethodGet, "/native/balances/"+bob.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bal BalanceResponse
	decode(t, rec, &bal)
	assert.Equal(t, bob, bal.Address)
	assert.Equal(t, uint64(400), bal.Balance.Uint64())

	rec = do(t, h, http.MethodGet, "/native/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.LedgerEntry
	decode(t, rec, &entries)
	assert.Len(t, entries, 4)
}

func TestNativeTransfer_Errors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"from":`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing value", `{"from":"` + alice.Hex() + `","to":"` + bob.Hex() + `"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"insufficient funds", `{"from":"` + bob.Hex() + `","to":"` + alice.Hex() + `","value":"1"}`, http.StatusUnprocessableEntity, "EXECUTION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/native/transfers", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestNativeTransfer_OversizedBody(t *testing.T) {
	h := newTestRouter(t)

	body := `{"from":"` + alice.Hex() + `","to":"` + bob.Hex() + `","value":"1","memo":"` +
		strings.Repeat("a", maxRequestBytes) + `"}`
	rec := do(t, h, http.MethodPost, "/native/transfers", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)

	rec = do(t, h, http.MethodGet, "/native/balances/"+bob.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bal BalanceResponse
	decode(t, rec, &bal)
	assert.True(t, bal.Balance.IsZero())
}

func TestBalance_InvalidAddress(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/native/balances/not-an-address", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContractCall(t *testing.T) {
	h := newTestRouter(t)
	path := "/contracts/" + contract.Hex() + "/call"

	rec := do(t, h, http.MethodPost, path,
		`{"from":"`+alice.Hex()+`","method":"append","args":{"receiver":"`+bob.Hex()+`","amount":"7","message":"hi","keyword":"dog"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var appended CallResponse
	decode(t, rec, &appended)
	require.NotNil(t, appended.TxHash)

	rec = do(t, h, http.MethodPost, path, `{"from":"`+bob.Hex()+`","method":"list","view":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed CallResponse
	decode(t, rec, &listed)
	assert.Nil(t, listed.TxHash)

	var records []models.TransferRecord
	require.NoError(t, jsonx.Unmarshal(listed.Result, &records))
	require.Len(t, records, 1)
	assert.Equal(t, alice, records[0].Sender)
	assert.Equal(t, "dog", records[0].Keyword)
}

func TestContractCall_Errors(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/contracts/"+contract.Hex()+"/call", `{"from":"`+alice.Hex()+`","method":"selfdestruct"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Contains(t, resp.Error, "execution reverted")

	rec = do(t, h, http.MethodPost, "/contracts/"+contract.Hex()+"/call", `{"from":"`+alice.Hex()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/contracts/"+bob.Hex()+"/call", `{"from":"`+alice.Hex()+`","method":"count","view":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGasEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/gas/price", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var price GasPriceResponse
	decode(t, rec, &price)
	assert.Equal(t, uint64(5), price.GasPrice.Uint64())

	rec = do(t, h, http.MethodPost, "/gas/estimate", `{"from":"`+alice.Hex()+`","to":"`+bob.Hex()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var est EstimateResponse
	decode(t, rec, &est)
	assert.Equal(t, node.TxGas, est.Gas)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "transfer_ledger_http_requests_total")
}

func TestRecovery(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
}
