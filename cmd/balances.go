package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"teleport/pkg/amount"
	"teleport/pkg/balance"
	"teleport/pkg/types"
	"teleport/pkg/wallet"
)

var showAllBalances bool

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show bridgeable balances on every supported chain",
	Long: `Read the configured account's balances on every supported source chain.

Examples:
  teleport balances
  teleport balances --all`,
	RunE: runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().BoolVar(&showAllBalances, "all", false, "Include empty balances")
}

func runBalances(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	account, ok := a.aggCfg.Account()
	if !ok {
		return fmt.Errorf("%w: set TELEPORT_PRIVATE_KEY or private_key in .teleport.yaml", wallet.ErrNotConnected)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading balances..."
		s.Start()
	}

	balances, err := balance.Collect(cmd.Context(), a.balances, cfg.Chains(), account)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		out := balances
		if !showAllBalances {
			out = balance.Positive(balances)
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Printf("\nAccount: %s\n", color.CyanString(account.Hex()))
	displayBalances(balances, showAllBalances)
	return nil
}

// displayBalances prints funded balances numbered for selection, or every
// balance when all is set, followed by per-symbol totals
func displayBalances(balances []types.TokenBalance, all bool) {
	shown := balances
	if !all {
		shown = balance.Positive(balances)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      BALANCES")
	fmt.Println(strings.Repeat("=", 60))

	if len(shown) == 0 {
		fmt.Println("\n  No funded balances on the supported chains.")
		fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
		return
	}

	fmt.Println()
	var symbols []string
	seen := make(map[string]bool)
	for i, b := range shown {
		fmt.Printf("  %2d. %-10s %20s %s\n", i+1, b.ChainName,
			amount.Format(b.FormattedBalance, amount.DisplayPlaces(b.Decimals)),
			color.YellowString(b.Symbol))

		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			symbols = append(symbols, b.Symbol)
		}
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	for _, symbol := range symbols {
		total := balance.Total(shown, symbol)
		fmt.Printf("  Total %-8s %22s\n", symbol, amount.Format(total, len(total)-strings.Index(total, ".")-1))
	}
	fmt.Println(strings.Repeat("=", 60) + "\n")
}
