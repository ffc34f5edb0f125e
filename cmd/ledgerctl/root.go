package main

import (
	"io"
	"net/http"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transfer-ledger/internal/client"
	"github.com/sheikh-saqib/transfer-ledger/internal/config"
	"github.com/sheikh-saqib/transfer-ledger/internal/gif"
	"github.com/sheikh-saqib/transfer-ledger/internal/logging"
	"github.com/sheikh-saqib/transfer-ledger/internal/wallet"
)

type globalFlags struct {
	envFile  string
	nodeURL  string
	accounts []string
	yes      bool
	verbose  bool
	noCache  bool
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	wallet  *wallet.Wallet
	client  *client.Client
	gifs    *gif.Client
	yes     bool
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

func newRootCmd(a *app) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Transfer ledger client",
		Long:          "Send value with a message attached and browse the transfer record ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env", "", "path to a .env file")
	pf.StringVarP(&flags.nodeURL, "node", "n", "", "ledger node URL (overrides LEDGER_NODE_URL)")
	pf.StringSliceVarP(&flags.accounts, "account", "a", nil, "wallet account address (overrides CLIENT_ACCOUNTS)")
	pf.BoolVarP(&flags.yes, "yes", "y", false, "approve every wallet prompt")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")
	pf.BoolVar(&flags.noCache, "no-cache", false, "do not persist the record count")

	root.AddCommand(
		newConnectCmd(a),
		newSendCmd(a),
		newListCmd(a),
		newCountCmd(a),
		newRefreshCmd(a),
		newBalanceCmd(a),
		newFeesCmd(a),
	)

	return root
}

func (a *app) init(flags globalFlags) error {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return err
	}
	if flags.nodeURL != "" {
		cfg.Client.NodeURL = flags.nodeURL
	}
	if len(flags.accounts) > 0 {
		cfg.Client.Accounts = flags.accounts
	}

	cfg.Logging.Format = "console"
	if !flags.verbose {
		cfg.Logging.Level = "warn"
	}
	a.closers = append(a.closers, logging.SetupWithOutput(cfg.Logging, os.Stderr))

	accounts, err := cfg.Client.AccountAddresses()
	if err != nil {
		return err
	}
	contract, err := cfg.Ledger.Contract()
	if err != nil {
		return err
	}
	loc, err := cfg.Client.Location()
	if err != nil {
		return err
	}

	var approver wallet.Approver = promptApprover{}
	if flags.yes {
		approver = wallet.AutoApprove
	}

	backend := wallet.NewHTTPBackend(cfg.Client.NodeURL, &http.Client{Timeout: cfg.Server.ReadTimeout})
	a.cfg = cfg
	a.yes = flags.yes
	a.wallet = wallet.New(backend, approver, accounts)

	opts := []client.Option{
		client.WithPageSize(cfg.Client.PageSize),
		client.WithTimeFormat(cfg.Client.TimeLayout, loc),
	}
	if cfg.Client.CachePath != "" && !flags.noCache {
		cache, err := client.OpenBoltCountCache(cfg.Client.CachePath)
		if err != nil {
			pterm.Warning.Printfln("Count cache unavailable: %v", err)
		} else {
			a.closers = append(a.closers, cache)
			opts = append(opts, client.WithCountCache(cache))
		}
	}
	a.client = client.New(a.wallet, contract, opts...)

	a.gifs = gif.New(cfg.Giphy.APIKey,
		gif.WithBaseURL(cfg.Giphy.BaseURL),
		gif.WithRate(cfg.Giphy.RatePerSecond, int(cfg.Giphy.RatePerSecond)),
	)
	return nil
}
