// Package client adapts the record ledger for people: it connects through a
// wallet provider, submits transfers with their ledger record, and turns raw
// records into display-ready values.
package client

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/models"
	"github.com/sheikh-saqib/transfer-ledger/internal/units"
)

const (
	DefaultPageSize   = 100
	DefaultTimeLayout = "1/2/2006, 3:04:05 PM"
)

// DisplayRecord is a TransferRecord converted for display.
type DisplayRecord struct {
	Index       uint64          `json:"index"`
	AddressFrom common.Address  `json:"address_from"`
	AddressTo   common.Address  `json:"address_to"`
	Amount      decimal.Decimal `json:"amount"`      // display units
	AmountBase  *uint256.Int    `json:"amount_base"` // base units
	Message     string          `json:"message"`
	Keyword     string          `json:"keyword"`
	Time        time.Time       `json:"time"`
	Timestamp   string          `json:"timestamp"` // Time formatted for display
}

type Client struct {
	provider interfaces.WalletProvider
	contract common.Address
	cache    CountCache
	pageSize uint64
	layout   string
	loc      *time.Location

	mu        sync.RWMutex
	account   common.Address
	connected bool
	records   []DisplayRecord
	count     uint64

	submitting atomic.Bool
	logger     zerolog.Logger
}

type Option func(*Client)

// WithCountCache persists the last known record count.
func WithCountCache(cache CountCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithPageSize sets how many records FetchAll requests per page.
func WithPageSize(n uint64) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithTimeFormat sets the layout and location used for display timestamps.
func WithTimeFormat(layout string, loc *time.Location) Option {
	return func(c *Client) {
		if layout != "" {
			c.layout = layout
		}
		if loc != nil {
			c.loc = loc
		}
	}
}

// New creates a client for the ledger deployed at contract. A nil provider
// is accepted; every operation then fails with ProviderUnavailable.
func New(provider interfaces.WalletProvider, contract common.Address, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		contract: contract,
		cache:    NewMemoryCountCache(),
		pageSize: DefaultPageSize,
		layout:   DefaultTimeLayout,
		loc:      time.Local,
		logger:   log.With().Str("component", "client").Str("contract", contract.Hex()).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) requireProvider() error {
	if c.provider == nil {
		return apperrors.ProviderUnavailable("no wallet provider configured")
	}
	return nil
}

// Connect asks the provider for its accounts. The first one becomes the
// caller identity.
func (c *Client) Connect(ctx context.Context) (common.Address, error) {
	if err := c.requireProvider(); err != nil {
		return common.Address{}, err
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, c.fail(err, "connect")
	}
	if len(accounts) == 0 {
		return common.Address{}, apperrors.ProviderUnavailable("provider returned no accounts")
	}

	c.setAccount(accounts[0])
	c.logger.Info().Str("account", accounts[0].Hex()).Msg("Wallet connected")
	return accounts[0], nil
}

// CheckConnection restores an earlier connection without prompting.
func (c *Client) CheckConnection(ctx context.Context) (common.Address, bool, error) {
	if err := c.requireProvider(); err != nil {
		return common.Address{}, false, err
	}

	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		return common.Address{}, false, c.fail(err, "check connection")
	}
	if len(accounts) == 0 {
		c.logger.Debug().Msg("No accounts found")
		return common.Address{}, false, nil
	}

	c.setAccount(accounts[0])
	return accounts[0], true, nil
}

func (c *Client) setAccount(account common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = account
	c.connected = true
}

// Account returns the caller identity, if connected.
func (c *Client) Account() (common.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account, c.connected
}

// FetchAll reads every record page by page and converts it for display.
// Records are returned in ledger order.
func (c *Client) FetchAll(ctx context.Context) ([]DisplayRecord, error) {
	if err := c.requireProvider(); err != nil {
		return nil, err
	}

	total, err := c.chainCount(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DisplayRecord, 0, total)
	for offset := uint64(0); offset < total; {
		args, err := jsonx.Marshal(ledger.PageArgs{Offset: offset, Limit: c.pageSize})
		if err != nil {
			return nil, apperrors.Internal("encode page arguments", err)
		}

		var page []models.TransferRecord
		if err := c.view(ctx, ledger.MethodPage, args, &page); err != nil {
			return nil, c.fail(err, "fetch records")
		}
		if len(page) == 0 {
			break
		}

		for _, rec := range page {
			out = append(out, c.toDisplay(rec))
		}
		offset += uint64(len(page))
	}

	return out, nil
}

func (c *Client) toDisplay(rec models.TransferRecord) DisplayRecord {
	amount := rec.AmountOrZero()
	t := units.Time(rec.Timestamp, c.loc)
	return DisplayRecord{
		Index:       rec.Index,
		AddressFrom: rec.Sender,
		AddressTo:   rec.Receiver,
		Amount:      units.FromBaseUnits(amount),
		AmountBase:  amount.Clone(),
		Message:     rec.Message,
		Keyword:     rec.Keyword,
		Time:        t,
		Timestamp:   t.Format(c.layout),
	}
}

// Count returns the ledger's record count and stores it in the cache.
func (c *Client) Count(ctx context.Context) (uint64, error) {
	if err := c.requireProvider(); err != nil {
		return 0, err
	}

	n, err := c.chainCount(ctx)
	if err != nil {
		return 0, err
	}
	c.storeCount(n)
	return n, nil
}

// CachedCount returns the persisted count without asking the ledger. It is
// never authoritative.
func (c *Client) CachedCount() (uint64, bool) {
	n, ok, err := c.cache.LoadCount(c.contract)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read cached count")
		return 0, false
	}
	return n, ok
}

// LoadCount reconciles the cached count against the ledger and returns the
// ledger's value.
func (c *Client) LoadCount(ctx context.Context) (uint64, error) {
	cached, ok := c.CachedCount()

	n, err := c.Count(ctx)
	if err != nil {
		return 0, err
	}
	if ok && cached != n {
		c.logger.Debug().Uint64("cached", cached).Uint64("ledger", n).Msg("Cached count was stale")
	}
	return n, nil
}

func (c *Client) chainCount(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.view(ctx, ledger.MethodCount, nil, &n); err != nil {
		return 0, c.fail(err, "count records")
	}
	return n, nil
}

func (c *Client) storeCount(n uint64) {
	c.mu.Lock()
	c.count = n
	c.mu.Unlock()

	if err := c.cache.StoreCount(c.contract, n); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist count")
	}
}

// Refresh reloads every record and the count into the client's state.
func (c *Client) Refresh(ctx context.Context) error {
	records, err := c.FetchAll(ctx)
	if err != nil {
		return err
	}
	n, err := c.LoadCount(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.records = records
	c.mu.Unlock()

	c.logger.Debug().Int("records", len(records)).Uint64("count", n).Msg("State refreshed")
	return nil
}

// Records returns the records loaded by the last Refresh in ledger order.
func (c *Client) Records() []DisplayRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

// Newest returns the loaded records newest first.
func (c *Client) Newest() []DisplayRecord {
	out := c.Records()
	slices.Reverse(out)
	return out
}

// TransactionCount is the last count seen by this client.
func (c *Client) TransactionCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

func (c *Client) view(ctx context.Context, method string, args []byte, out any) error {
	res, err := c.provider.CallContractMethod(ctx, models.ContractCall{
		To:     c.contract,
		Method: method,
		Args:   args,
		View:   true,
	})
	if err != nil {
		return err
	}
	if err := jsonx.Unmarshal(res.Result, out); err != nil {
		return apperrors.ExecutionFailed("decode "+method+" result", err)
	}
	return nil
}

// fail logs err and classifies it.
func (c *Client) fail(err error, operation string) error {
	appErr := apperrors.Parse(err, operation)
	c.logger.Error().Err(err).Str("operation", operation).Str("code", string(appErr.Code)).Msg("Ledger operation failed")
	return appErr
}
