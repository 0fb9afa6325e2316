// Command hermesctl drives a running platform server: the deployment tasks
// (register, newround, buytoken, neworder, trade, closeorder, ethtoowner,
// transfertokenownershipback) plus read-only queries.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	account   string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "hermesctl",
	Short: "Command-line client for the Hermes platform",
	Long: `hermesctl talks to a Hermes platform server over HTTP.

Mutating commands act as --account (or HERMES_ACCOUNT). Amounts are given in
base units: wei for currency, 10^-18 of a unit for tokens.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("HERMES_URL", "http://localhost:8080"), "Platform server URL (or set HERMES_URL)")
	rootCmd.PersistentFlags().StringVarP(&account, "account", "a", os.Getenv("HERMES_ACCOUNT"), "Acting account address (or set HERMES_ACCOUNT)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	registerCmd.Flags().String("referrer", "", "Address of the referring account")
	newOrderCmd.Flags().Bool("approve", true, "Approve the platform to escrow the amount first")
	ordersCmd.Flags().String("seller", "", "Only orders from this seller")
	ordersCmd.Flags().String("status", "", "Only orders with this status (open, closed)")

	rootCmd.AddCommand(
		registerCmd,
		newRoundCmd,
		buyTokenCmd,
		newOrderCmd,
		tradeCmd,
		closeOrderCmd,
		ethToOwnerCmd,
		transferOwnershipBackCmd,
		approveCmd,
		faucetCmd,
		balanceCmd,
		priceCmd,
		roundCmd,
		ordersCmd,
		orderCmd,
		historyCmd,
		treasuryCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func apiClient() *client {
	return newClient(serverURL, account, &http.Client{Timeout: timeout})
}

func requireAccount() error {
	if account == "" {
		return fmt.Errorf("--account is required for this command")
	}
	return nil
}
