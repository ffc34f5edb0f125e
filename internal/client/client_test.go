package client

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/transfer-ledger/internal/chain"
	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/node"
	"github.com/sheikh-saqib/transfer-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/transfer-ledger/internal/wallet"
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	contract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

type env struct {
	node   *node.Node
	ledger *ledger.Ledger
}

// newEnv starts an in-process node with alice and bob holding 100 units each.
func newEnv(t *testing.T, opts ...ledger.Option) env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()

	native := chain.NewNative(store, nil)
	hundred := uint256.MustFromDecimal("100000000000000000000")
	for _, a := range []common.Address{alice, bob} {
		_, err := native.Fund(ctx, a, hundred)
		require.NoError(t, err)
	}

	l, err := ledger.NewLedger(ctx, store, nil, opts...)
	require.NoError(t, err)

	n := node.New(native, uint256.NewInt(1_000_000_000))
	n.Deploy(contract, l)
	return env{node: n, ledger: l}
}

func (e env) client(t *testing.T, approver wallet.Approver, account common.Address, opts ...Option) *Client {
	t.Helper()
	w := wallet.New(e.node, approver, []common.Address{account})
	c := New(w, contract, append([]Option{WithTimeFormat("", time.UTC)}, opts...)...)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)
	return c
}

func TestNilProvider(t *testing.T) {
	c := New(nil, contract)
	ctx := context.Background()

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	_, _, err = c.CheckConnection(ctx)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	_, err = c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	_, err = c.FetchAll(ctx)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	_, err = c.Count(ctx)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestConnect_UserRejected(t *testing.T) {
	e := newEnv(t)
	c := New(wallet.New(e.node, wallet.DenyAll, []common.Address{alice}), contract)

	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUserRejected)
	_, ok := c.Account()
	assert.False(t, ok)
}

func TestCheckConnection(t *testing.T) {
	e := newEnv(t)
	w := wallet.New(e.node, wallet.AutoApprove, []common.Address{alice})
	c := New(w, contract)
	ctx := context.Background()

	_, ok, err := c.CheckConnection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.RequestAccounts(ctx)
	require.NoError(t, err)

	account, ok, err := c.CheckConnection(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, alice, account)
}

func TestSubmitAndFetchAll(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, wallet.AutoApprove, alice, WithPageSize(2))
	ctx := context.Background()

	amounts := []string{"0.01", "1", "2.5", "0", "42.000000000000000001"}
	for i, amount := range amounts {
		receipt, err := c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: amount, Message: "msg", Keyword: "kw"})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), receipt.Index)
		assert.NotEqual(t, common.Hash{}, receipt.ValueTxHash)
		assert.NotEqual(t, common.Hash{}, receipt.RecordTxHash)
	}

	records, err := c.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, len(amounts))
	for i, rec := range records {
		want := decimal.RequireFromString(amounts[i])
		assert.True(t, want.Equal(rec.Amount), "record %d: got %s want %s", i, rec.Amount, want)
		assert.Equal(t, alice, rec.AddressFrom)
		assert.Equal(t, bob, rec.AddressTo)
		assert.Equal(t, uint64(i), rec.Index)
		assert.Equal(t, rec.Time.Format(DefaultTimeLayout), rec.Timestamp)
	}

	bal, err := e.node.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "145510000000000000001", bal.Dec())
}

func TestSubmit_Validation(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, wallet.AutoApprove, alice)

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"bad receiver", SubmitRequest{Receiver: "0x123", Amount: "1"}},
		{"empty amount", SubmitRequest{Receiver: bob.Hex(), Amount: " "}},
		{"negative amount", SubmitRequest{Receiver: bob.Hex(), Amount: "-1"}},
		{"too precise", SubmitRequest{Receiver: bob.Hex(), Amount: "0.0000000000000000001"}},
		{"not a number", SubmitRequest{Receiver: bob.Hex(), Amount: "ten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}

	n, err := e.ledger.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubmit_NotConnected(t *testing.T) {
	e := newEnv(t)
	c := New(wallet.New(e.node, wallet.AutoApprove, []common.Address{alice}), contract)

	_, err := c.Submit(context.Background(), SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestSubmit_InsufficientFunds(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, wallet.AutoApprove, carol)

	_, err := c.Submit(context.Background(), SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
	assert.Equal(t, "Insufficient Funds", apperrors.Display(err).Title)

	var partial *PartialSubmitError
	assert.False(t, errors.As(err, &partial))
}

func TestSubmit_ValueRejected(t *testing.T) {
	e := newEnv(t)
	deny := wallet.ApproverFuncs{Transaction: func(context.Context, wallet.TxRequest) (bool, error) { return false, nil }}
	c := e.client(t, deny, alice)

	_, err := c.Submit(context.Background(), SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrUserRejected)
}

func TestSubmit_PartialFailureAndRetry(t *testing.T) {
	e := newEnv(t)
	prompts := 0
	approver := wallet.ApproverFuncs{Transaction: func(_ context.Context, req wallet.TxRequest) (bool, error) {
		prompts++
		// Approve the value leg, decline the first record leg.
		return req.Method == "" || prompts > 2, nil
	}}
	c := e.client(t, approver, alice)
	ctx := context.Background()
	req := SubmitRequest{Receiver: bob.Hex(), Amount: "3", Message: "rent", Keyword: "house"}

	_, err := c.Submit(ctx, req)
	require.Error(t, err)

	var partial *PartialSubmitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, apperrors.ErrCodeExecutionFailed, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, apperrors.ErrUserRejected)
	assert.NotEqual(t, common.Hash{}, partial.ValueTxHash)
	assert.Equal(t, req, partial.Request)

	bal, err := e.node.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "103000000000000000000", bal.Dec())

	n, err := e.ledger.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	receipt, err := c.RetryRecord(ctx, partial)
	require.NoError(t, err)
	assert.Equal(t, partial.ValueTxHash, receipt.ValueTxHash)
	assert.Equal(t, uint64(0), receipt.Index)

	// The value leg is not repeated.
	bal, err = e.node.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "103000000000000000000", bal.Dec())

	records, err := c.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rent", records[0].Message)
}

func TestSubmit_SingleInFlight(t *testing.T) {
	e := newEnv(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	approver := wallet.ApproverFuncs{Transaction: func(context.Context, wallet.TxRequest) (bool, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		return true, nil
	}}
	c := e.client(t, approver, alice)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
		done <- err
	}()
	<-entered

	_, err := c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	close(release)
	require.NoError(t, <-done)

	_, err = c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	assert.NoError(t, err)
}

func TestConcurrentClients(t *testing.T) {
	e := newEnv(t)
	ca := e.client(t, wallet.AutoApprove, alice)
	cb := e.client(t, wallet.AutoApprove, bob)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, c := range []*Client{ca, cb} {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			_, err := c.Submit(ctx, SubmitRequest{Receiver: carol.Hex(), Amount: "1"})
			assert.NoError(t, err)
		}(c)
	}
	wg.Wait()

	n, err := ca.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestFetchAll_LargerThanServerPage(t *testing.T) {
	e := newEnv(t, ledger.WithMaxPageSize(2))
	c := e.client(t, wallet.AutoApprove, alice, WithPageSize(50))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "0"})
		require.NoError(t, err)
	}

	records, err := c.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestRefreshAndState(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, wallet.AutoApprove, alice)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		_, err := c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "1", Message: msg})
		require.NoError(t, err)
	}
	assert.Empty(t, c.Records())

	require.NoError(t, c.Refresh(ctx))
	records := c.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].Message)

	newest := c.Newest()
	assert.Equal(t, "third", newest[0].Message)
	assert.Equal(t, "first", c.Records()[0].Message)
	assert.Equal(t, uint64(3), c.TransactionCount())
}

func TestLoadCount_ReconcilesCache(t *testing.T) {
	e := newEnv(t)
	cache := NewMemoryCountCache()
	require.NoError(t, cache.StoreCount(contract, 99))

	c := e.client(t, wallet.AutoApprove, alice, WithCountCache(cache))
	ctx := context.Background()

	cached, ok := c.CachedCount()
	require.True(t, ok)
	assert.Equal(t, uint64(99), cached)

	n, err := c.LoadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	cached, _ = c.CachedCount()
	assert.Zero(t, cached)

	_, err = c.Submit(ctx, SubmitRequest{Receiver: bob.Hex(), Amount: "1"})
	require.NoError(t, err)
	cached, _ = c.CachedCount()
	assert.Equal(t, uint64(1), cached)
}

func TestBoltCountCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")

	cache, err := OpenBoltCountCache(path)
	require.NoError(t, err)

	_, ok, err := cache.LoadCount(contract)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.StoreCount(contract, 12))
	require.NoError(t, cache.Close())

	cache, err = OpenBoltCountCache(path)
	require.NoError(t, err)
	defer cache.Close()

	n, ok, err := cache.LoadCount(contract)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(12), n)

	_, ok, err = cache.LoadCount(alice)
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingProvider struct{}

func (failingProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return nil, errors.New("MetaMask not installed")
}

func (failingProvider) Accounts(context.Context) ([]common.Address, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) SendNativeValue(context.Context, common.Address, common.Address, *uint256.Int) (common.Hash, error) {
	return common.Hash{}, errors.New("connection refused")
}

func (failingProvider) CallContractMethod(context.Context, models.ContractCall) (models.CallResult, error) {
	return models.CallResult{}, errors.New("connection refused")
}

func TestProviderFailuresAreTyped(t *testing.T) {
	c := New(failingProvider{}, contract)
	ctx := context.Background()

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)

	_, err = c.FetchAll(ctx)
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
	assert.ErrorContains(t, err, "connection refused")

	_, _, err = c.CheckConnection(ctx)
	assert.ErrorIs(t, err, apperrors.ErrExecutionFailed)
}
