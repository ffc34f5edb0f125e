package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transfer-ledger/internal/units"
	"github.com/sheikh-saqib/transfer-ledger/internal/wallet"
)

// promptApprover asks at the terminal before the wallet connects or signs.
type promptApprover struct{}

func (promptApprover) ApproveConnect(ctx context.Context, accounts []common.Address) (bool, error) {
	lines := make([]string, len(accounts))
	for i, a := range accounts {
		lines[i] = a.Hex()
	}
	pterm.DefaultBox.WithTitle("Connect wallet").Println(strings.Join(lines, "\n"))
	return confirm("Share these accounts with ledgerctl?")
}

func (promptApprover) ApproveTransaction(ctx context.Context, req wallet.TxRequest) (bool, error) {
	title := "Send value"
	if req.Method != "" {
		title = "Contract call"
	}
	pterm.DefaultBox.WithTitle(title).Println(strings.Join(describeTx(req), "\n"))
	return confirm("Sign and send this transaction?")
}

func confirm(question string) (bool, error) {
	ok, err := pterm.DefaultInteractiveConfirm.WithDefaultText(question).WithDefaultValue(false).Show()
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return ok, nil
}

// describeTx renders the fields of req a person should check before signing.
func describeTx(req wallet.TxRequest) []string {
	lines := []string{
		"From:      " + req.From.Hex(),
		"To:        " + req.To.Hex(),
	}
	if req.Method == "" {
		lines = append(lines, "Value:     "+units.FormatAmount(req.Value))
	} else {
		lines = append(lines, "Method:    "+req.Method)
	}
	if req.Gas > 0 {
		lines = append(lines, fmt.Sprintf("Gas limit: %d", req.Gas))
	}
	if req.GasPrice != nil {
		lines = append(lines, "Gas price: "+formatGwei(req.GasPrice)+" gwei")
		if req.Gas > 0 {
			fee := new(uint256.Int).Mul(req.GasPrice, uint256.NewInt(req.Gas))
			lines = append(lines, "Max fee:   "+units.FormatAmount(fee))
		}
	}
	return lines
}

func formatGwei(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei.ToBig(), -9).String()
}
