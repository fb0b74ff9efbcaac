// Command fetch retrieves the paywalled resource, paying the advertised
// 402 with a native ETH transfer when needed. The JSON result goes to
// stdout; lifecycle logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitwit/paygate"
	"github.com/vitwit/paygate/chain"
	"github.com/vitwit/paygate/config"
	"github.com/vitwit/paygate/executor"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/types"
)

func main() {
	location := flag.String("location", "London", "location to fetch weather for")
	balance := flag.Bool("balance", false, "print wallet status instead of fetching")
	flag.Parse()

	if err := run(*location, *balance); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(location string, balanceOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireSigningKey(); err != nil {
		return err
	}

	log := logger.NewZapLogger(cfg.LogLevel)
	if z, ok := log.(*logger.ZapLogger); ok {
		defer z.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.Dial(cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := executor.NewSession(ctx, client, cfg.PrivateKey,
		executor.WithLogger(log),
	)
	if err != nil {
		return err
	}

	log.Info("wallet ready", map[string]any{
		"address": session.Address(),
		"target":  cfg.PaidURL,
		"amount":  cfg.PaymentAmount,
	})

	if balanceOnly {
		status, err := session.WalletStatus(ctx, cfg.Amount())
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"address":             status.Address,
			"eth_balance":         types.FormatWei(status.Balance),
			"nonce":               status.Nonce,
			"affordable_payments": status.AffordablePayments,
		})
	}

	pg := paygate.New(session, cfg.Terms(), paygate.WithLogger(log))

	result, err := pg.FetchWithPayment(ctx, cfg.PaidURL, map[string]string{
		"location": location,
	})
	if err != nil {
		return err
	}

	return printJSON(result)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
