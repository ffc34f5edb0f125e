package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transfer-ledger/internal/client"
	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/gif"
	"github.com/sheikh-saqib/transfer-ledger/internal/units"
)

const dateLayout = "2006-01-02"

func newConnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet and show the active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			account, err := a.client.Connect(ctx)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Connected as %s", account.Hex())

			balance, err := a.wallet.Balance(ctx, account)
			if err != nil {
				return apperrors.Parse(err, "balance")
			}
			pterm.Info.Printfln("Balance: %s", units.FormatAmount(balance))
			return nil
		},
	}
}

type sendOptions struct {
	to      string
	amount  string
	message string
	keyword string
}

func (o sendOptions) request() client.SubmitRequest {
	return client.SubmitRequest{Receiver: o.to, Amount: o.amount, Message: o.message, Keyword: o.keyword}
}

func addSendFlags(cmd *cobra.Command, o *sendOptions) {
	cmd.Flags().StringVarP(&o.to, "to", "t", "", "receiver address")
	cmd.Flags().StringVar(&o.amount, "amount", "", "amount in display units, e.g. 0.01")
	cmd.Flags().StringVar(&o.message, "message", "", "message stored with the record")
	cmd.Flags().StringVarP(&o.keyword, "keyword", "k", "", "GIF keyword stored with the record")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
}

func newSendCmd(a *app) *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send value and append a transfer record",
		Example: `  ledgerctl send --to 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 --amount 0.01 \
    --message "lunch" --keyword pizza`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.client.Connect(ctx); err != nil {
				return err
			}

			req := opts.request()
			if fees, err := a.client.EstimateFees(ctx, req); err == nil {
				pterm.DefaultSection.Println("Estimated record fee")
				if err := renderTable(feeRows(fees.Record)); err != nil {
					return err
				}
			} else {
				pterm.Warning.Printfln("Could not estimate fees: %s", apperrors.Display(err).Message)
			}

			receipt, err := a.client.Submit(ctx, req)
			var partial *client.PartialSubmitError
			if errors.As(err, &partial) {
				printError(err)
				if !a.retryRecord() {
					return err
				}
				receipt, err = a.client.RetryRecord(ctx, partial)
			}
			if err != nil {
				return err
			}

			printReceipt(receipt)
			return nil
		},
	}
	addSendFlags(cmd, &opts)
	return cmd
}

func (a *app) retryRecord() bool {
	if a.yes {
		return true
	}
	ok, err := confirm("Retry writing the record without sending value again?")
	return err == nil && ok
}

func printReceipt(r client.Receipt) {
	pterm.Success.Printfln("Record #%d written", r.Index)
	pterm.Info.Printfln("Sent %s from %s to %s", units.FormatAmount(r.Amount), r.From.Hex(), r.To.Hex())
	pterm.Info.Printfln("Value tx:  %s", r.ValueTxHash.Hex())
	pterm.Info.Printfln("Record tx: %s", r.RecordTxHash.Hex())
}

type listOptions struct {
	search  string
	min     string
	max     string
	address string
	from    string
	to      string
	sort    string
	limit   int
	gifs    bool
}

func (o listOptions) filter(loc *time.Location) (client.Filter, error) {
	f := client.Filter{
		Search:  o.search,
		Address: o.address,
		SortBy:  client.ParseSortOrder(o.sort),
	}

	var err error
	if f.MinAmount, err = parseDecimal(o.min, "min"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = parseDecimal(o.max, "max"); err != nil {
		return f, err
	}

	if o.from != "" {
		if f.From, err = time.ParseInLocation(dateLayout, o.from, loc); err != nil {
			return f, apperrors.ValidationFailed(fmt.Sprintf("invalid --from date %q, want YYYY-MM-DD", o.from))
		}
	}
	if o.to != "" {
		day, err := time.ParseInLocation(dateLayout, o.to, loc)
		if err != nil {
			return f, apperrors.ValidationFailed(fmt.Sprintf("invalid --to date %q, want YYYY-MM-DD", o.to))
		}
		// Inclusive of the whole day.
		f.To = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return f, nil
}

func parseDecimal(s, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, apperrors.ValidationFailed(fmt.Sprintf("invalid --%s amount %q", name, s))
	}
	return &d, nil
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transfer records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, _ := a.cfg.Client.Location()
			f, err := opts.filter(loc)
			if err != nil {
				return err
			}

			records, err := a.client.FetchAll(ctx)
			if err != nil {
				return err
			}

			out := f.Apply(records)
			if opts.limit > 0 && len(out) > opts.limit {
				out = out[:opts.limit]
			}

			var gifs map[string]string
			if opts.gifs {
				if a.cfg.Giphy.APIKey == "" {
					pterm.Warning.Println("GIPHY_API_KEY is not set; skipping GIFs")
				} else {
					gifs = lookupGifs(ctx, a.gifs, out)
				}
			}

			pterm.Info.Printfln("Showing %d of %d records (%d filters active)", len(out), len(records), f.Active())
			if len(out) == 0 {
				return nil
			}
			return renderTable(recordRows(out, gifs))
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.search, "search", "s", "", "match message, keyword or either address")
	fl.StringVar(&opts.min, "min", "", "minimum amount")
	fl.StringVar(&opts.max, "max", "", "maximum amount")
	fl.StringVar(&opts.address, "address", "", "match either address")
	fl.StringVar(&opts.from, "from", "", "earliest date, YYYY-MM-DD")
	fl.StringVar(&opts.to, "to", "", "latest date, YYYY-MM-DD")
	fl.StringVar(&opts.sort, "sort", string(client.SortNewest), "newest, oldest, highest or lowest")
	fl.IntVarP(&opts.limit, "limit", "l", 0, "show at most this many records")
	fl.BoolVar(&opts.gifs, "gifs", false, "look up a GIF for each keyword")
	return cmd
}

func lookupGifs(ctx context.Context, g *gif.Client, records []client.DisplayRecord) map[string]string {
	out := make(map[string]string)
	for _, r := range records {
		if _, ok := out[r.Keyword]; ok {
			continue
		}
		out[r.Keyword] = g.Lookup(ctx, r.Keyword)
	}
	return out
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of transfer records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cached, hadCache := a.client.CachedCount()
			n, err := a.client.LoadCount(cmd.Context())
			if err != nil {
				return err
			}
			pterm.Info.Printfln("Records: %d", n)
			if hadCache && cached != n {
				pterm.Info.Printfln("Cached count was %d", cached)
			}
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload every record and show the most recent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Refresh(cmd.Context()); err != nil {
				return err
			}
			pterm.Success.Printfln("Loaded %d records", a.client.TransactionCount())

			newest := a.client.Newest()
			if len(newest) > recent {
				newest = newest[:recent]
			}
			if len(newest) == 0 {
				return nil
			}
			return renderTable(recordRows(newest, nil))
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 5, "number of recent records to show")
	return cmd
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show a native balance; defaults to the connected account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var addr common.Address
			if len(args) == 1 {
				if !common.IsHexAddress(args[0]) {
					return apperrors.ValidationFailed(fmt.Sprintf("invalid address %q", args[0]))
				}
				addr = common.HexToAddress(args[0])
			} else {
				account, err := a.client.Connect(ctx)
				if err != nil {
					return err
				}
				addr = account
			}

			balance, err := a.wallet.Balance(ctx, addr)
			if err != nil {
				return apperrors.Parse(err, "balance")
			}
			pterm.Info.Printfln("%s: %s", addr.Hex(), units.FormatAmount(balance))
			return nil
		},
	}
}

func newFeesCmd(a *app) *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Estimate the fees of a send",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.client.Connect(ctx); err != nil {
				return err
			}

			fees, err := a.client.EstimateFees(ctx, opts.request())
			if err != nil {
				return err
			}

			pterm.DefaultSection.Println("Value transfer")
			if err := renderTable(feeRows(fees.Value)); err != nil {
				return err
			}
			pterm.DefaultSection.Println("Ledger record")
			if err := renderTable(feeRows(fees.Record)); err != nil {
				return err
			}
			pterm.Info.Printfln("Recommended gas limits: %d (value), %d (record)",
				fees.Value.RecommendedGasLimit, fees.Record.RecommendedGasLimit)
			return nil
		},
	}
	addSendFlags(cmd, &opts)
	return cmd
}
