// Command ledgerctl submits and browses transfer records through a wallet
// connected to a ledger node.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.Close()
	stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}
