package wallet

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

	"github.com/sheikh-saqib/transfer-ledger/internal/api"
	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/node"
)

func newHTTPBackend(t *testing.T) *HTTPBackend {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(newBackend(t))))
	t.Cleanup(srv.Close)
	return NewHTTPBackend(srv.URL+"/", srv.Client())
}

func TestHTTPBackend_ValueAndBalance(t *testing.T) {
	b := newHTTPBackend(t)
	ctx := context.Background()

	hash, err := b.SendValue(ctx, alice, bob, uint256.NewInt(100))
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	bal, err := b.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bal.Uint64())
}

func TestHTTPBackend_ErrorsKeepTheirCode(t *testing.T) {
	b := newHTTPBackend(t)

	_, err := b.SendValue(context.Background(), bob, alice, uint256.NewInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "insufficient funds")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
}

func TestHTTPBackend_ContractCalls(t *testing.T) {
	b := newHTTPBackend(t)
	ctx := context.Background()

	res, err := b.CallContract(ctx, models.ContractCall{
		From:   alice,
		To:     contract,
		Method: ledger.MethodAppend,
		Args:   []byte(`{"receiver":"` + bob.Hex() + `","amount":"1","message":"","keyword":""}`),
	})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, res.TxHash)

	res, err = b.CallContract(ctx, models.ContractCall{From: alice, To: contract, Method: ledger.MethodCount, View: true})
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, res.TxHash)
	assert.JSONEq(t, `1`, string(res.Result))
}

func TestHTTPBackend_Gas(t *testing.T) {
	b := newHTTPBackend(t)
	ctx := context.Background()

	price, err := b.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), price.Uint64())

	gas, err := b.EstimateGas(ctx, models.ContractCall{From: alice, To: bob})
	require.NoError(t, err)
	assert.Equal(t, node.TxGas, gas)
}

func TestHTTPBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b := NewHTTPBackend(url, nil)
	_, err := b.GasPrice(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
	assert.ErrorContains(t, err, "node unreachable")
}

func TestHTTPBackend_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPBackend(srv.URL, srv.Client()).Balance(context.Background(), alice)
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestHTTPBackend_OversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"gas_price":"` + strings.Repeat("9", maxResponseBytes) + `"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPBackend(srv.URL, srv.Client()).GasPrice(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
	assert.ErrorContains(t, err, "response too large")
}
