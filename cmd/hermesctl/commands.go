package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/api"
	"github.com/hermes/platform/internal/model"
	"github.com/hermes/platform/internal/platform"
)

// --- Deployment tasks ---

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the acting account, optionally under a referrer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		referrer, _ := cmd.Flags().GetString("referrer")
		body := map[string]string{}
		if referrer != "" {
			if _, err := address.Parse(referrer); err != nil {
				return err
			}
			body["referrer"] = referrer
		}
		var acct model.Account
		if err := apiClient().do(cmd.Context(), "POST", "/api/v1/accounts", body, &acct); err != nil {
			return err
		}
		return printJSON(cmd, acct)
	},
}

var newRoundCmd = &cobra.Command{
	Use:   "newround",
	Short: "Advance to the next round (chair person only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		var info platform.RoundInfo
		if err := apiClient().do(cmd.Context(), "POST", "/api/v1/rounds", nil, &info); err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var buyTokenCmd = &cobra.Command{
	Use:   "buytoken <wei>",
	Short: "Buy units in the current Sell round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		value, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		var res platform.BuyResult
		if err := apiClient().do(cmd.Context(), "POST", "/api/v1/buy", map[string]string{"value": value}, &res); err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var newOrderCmd = &cobra.Command{
	Use:   "neworder <units>",
	Short: "Place a sell order in the current Trade round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		c := apiClient()
		body := map[string]string{"amount": amount}
		if approve, _ := cmd.Flags().GetBool("approve"); approve {
			if err := c.do(cmd.Context(), "POST", "/api/v1/ledger/approve", body, nil); err != nil {
				return fmt.Errorf("approve: %w", err)
			}
		}
		var order model.Order
		if err := c.do(cmd.Context(), "POST", "/api/v1/orders", body, &order); err != nil {
			return err
		}
		return printJSON(cmd, order)
	},
}

var tradeCmd = &cobra.Command{
	Use:   "trade <order-id> <wei>",
	Short: "Buy units from an open order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		value, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		var res platform.TradeResult
		path := fmt.Sprintf("/api/v1/orders/%d/trade", id)
		if err := apiClient().do(cmd.Context(), "POST", path, map[string]string{"value": value}, &res); err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var closeOrderCmd = &cobra.Command{
	Use:   "closeorder <order-id>",
	Short: "Close one of your orders and recover the unsold units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		var order model.Order
		if err := apiClient().do(cmd.Context(), "DELETE", fmt.Sprintf("/api/v1/orders/%d", id), nil, &order); err != nil {
			return err
		}
		return printJSON(cmd, order)
	},
}

var ethToOwnerCmd = &cobra.Command{
	Use:   "ethtoowner <wei>",
	Short: "Withdraw treasury currency to the owner (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		var out map[string]decimal.Decimal
		if err := apiClient().do(cmd.Context(), "POST", "/api/v1/treasury/withdraw", map[string]string{"amount": amount}, &out); err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var transferOwnershipBackCmd = &cobra.Command{
	Use:   "transfertokenownershipback <new-owner>",
	Short: "Hand ownership of the unit ledger to another account (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		newOwner, err := address.Parse(args[0])
		if err != nil {
			return err
		}
		var out map[string]string
		if err := apiClient().do(cmd.Context(), "POST", "/api/v1/ledger/owner", map[string]string{"new_owner": newOwner}, &out); err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

// --- Ledger ---

var approveCmd = &cobra.Command{
	Use:   "approve <units>",
	Short: "Allow the platform to escrow up to <units> of your units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postAmount(cmd, "/api/v1/ledger/approve", args[0])
	},
}

var faucetCmd = &cobra.Command{
	Use:   "faucet <wei>",
	Short: "Credit currency to the acting account (development servers)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postAmount(cmd, "/api/v1/ledger/faucet", args[0])
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show unit and currency balances",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := account
		if len(args) == 1 {
			a = args[0]
		}
		a, err := address.Parse(a)
		if err != nil {
			return err
		}
		var bal api.BalanceResponse
		if err := apiClient().do(cmd.Context(), "GET", "/api/v1/ledger/balances/"+a, nil, &bal); err != nil {
			return err
		}
		return printJSON(cmd, bal)
	},
}

// --- Queries ---

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the current unit price",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(cmd, "/api/v1/price")
	},
}

var roundCmd = &cobra.Command{
	Use:   "round",
	Short: "Show the current round",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(cmd, "/api/v1/round")
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if seller, _ := cmd.Flags().GetString("seller"); seller != "" {
			q.Set("seller", seller)
		}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			q.Set("status", status)
		}
		path := "/api/v1/orders"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		return get(cmd, path)
	},
}

var orderCmd = &cobra.Command{
	Use:   "order <order-id>",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		return get(cmd, fmt.Sprintf("/api/v1/orders/%d", id))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [address]",
	Short: "Show the journal entries of an account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := account
		if len(args) == 1 {
			a = args[0]
		}
		a, err := address.Parse(a)
		if err != nil {
			return err
		}
		return get(cmd, "/api/v1/accounts/"+a+"/history")
	},
}

var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Show the withdrawable treasury balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return get(cmd, "/api/v1/treasury")
	},
}

// --- Helpers ---

func get(cmd *cobra.Command, path string) error {
	var out json.RawMessage
	if err := apiClient().do(cmd.Context(), "GET", path, nil, &out); err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func postAmount(cmd *cobra.Command, path, raw string) error {
	if err := requireAccount(); err != nil {
		return err
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return err
	}
	var bal api.BalanceResponse
	if err := apiClient().do(cmd.Context(), "POST", path, map[string]string{"amount": amount}, &bal); err != nil {
		return err
	}
	return printJSON(cmd, bal)
}

// parseAmount accepts a non-negative integer in base units.
func parseAmount(raw string) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return "", fmt.Errorf("invalid amount %q: want a non-negative integer in base units", raw)
	}
	return d.String(), nil
}

func parseOrderID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
