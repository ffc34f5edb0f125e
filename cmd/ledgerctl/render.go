package main

import (
	"errors"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/sheikh-saqib/transfer-ledger/internal/client"
	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/units"
)

func printError(err error) {
	var partial *client.PartialSubmitError
	if errors.As(err, &partial) {
		pterm.Warning.Printfln("Value transfer %s went through but its record was not written.", partial.ValueTxHash.Hex())
	}
	d := apperrors.Display(err)
	pterm.Error.Printfln("%s: %s", d.Title, d.Message)
}

// recordRows builds a table with a header row. gifs, when non-nil, adds a
// GIF column keyed by record keyword.
func recordRows(records []client.DisplayRecord, gifs map[string]string) [][]string {
	header := []string{"#", "From", "To", "Amount", "Message", "Keyword", "Time"}
	if gifs != nil {
		header = append(header, "GIF")
	}

	rows := [][]string{header}
	for _, r := range records {
		row := []string{
			strconv.FormatUint(r.Index, 10),
			client.ShortenAddress(r.AddressFrom),
			client.ShortenAddress(r.AddressTo),
			r.Amount.String(),
			r.Message,
			r.Keyword,
			r.Timestamp,
		}
		if gifs != nil {
			row = append(row, gifs[r.Keyword])
		}
		rows = append(rows, row)
	}
	return rows
}

func feeRows(est client.FeeEstimate) [][]string {
	rows := [][]string{{"Tier", "Gas price (gwei)", "Gas limit", "Max fee", "ETA"}}
	for _, t := range est.Tiers {
		rows = append(rows, []string{
			t.Name,
			formatGwei(t.GasPrice),
			strconv.FormatUint(t.GasLimit, 10),
			units.FormatAmount(t.TotalCost),
			t.EstimatedTime,
		})
	}
	return rows
}

func renderTable(rows [][]string) error {
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(rows).Render()
}
