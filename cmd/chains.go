package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"teleport/pkg/types"
)

var (
	filterChain  string
	filterSymbol string
)

var chainsCmd = &cobra.Command{
	Use:     "chains",
	Aliases: []string{"tokens", "ls"},
	Short:   "List supported source chains and tokens",
	Long: `List the source chains and tokens that can be bridged, and the
destination they are bridged to.

You can filter by chain or symbol.

Examples:
  teleport chains
  teleport chains --chain base
  teleport chains --symbol USDC`,
	RunE: runListChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)

	chainsCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain name")
	chainsCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListChains(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	filtered := filterChains(cfg.Chains(), filterChain, filterSymbol)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]any{
			"destination":   cfg.Destination,
			"source_chains": filtered,
		}, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	displayChains(filtered, cfg.Destination)
	return nil
}

// filterChains keeps chains matching name and, within them, tokens whose
// symbol contains symbol. Chains left without tokens are dropped.
func filterChains(chains types.ChainSet, name, symbol string) types.ChainSet {
	var out types.ChainSet
	for _, chain := range chains {
		if name != "" && !strings.EqualFold(chain.Name, name) && !strings.EqualFold(chain.AggregatorKey, name) {
			continue
		}

		var tokens []types.SourceToken
		for _, token := range chain.Tokens {
			if symbol == "" || strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(symbol)) {
				tokens = append(tokens, token)
			}
		}
		if len(tokens) == 0 {
			continue
		}

		chain.Tokens = tokens
		out = append(out, chain)
	}
	return out
}

func displayChains(chains types.ChainSet, dest types.DestinationConfig) {
	if len(chains) == 0 {
		fmt.Println("\nNo chains found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED CHAINS")
	fmt.Println(strings.Repeat("=", 90))

	tokenCount := 0
	for _, chain := range chains {
		color.Cyan("\n%s (%d)", strings.ToUpper(chain.Name), chain.ID)
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range chain.Tokens {
			address := token.Address
			if token.IsNative() {
				address = "native"
			}

			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(token.Symbol),
				token.Decimals,
				color.HiBlackString(address))
			tokenCount++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d chains, bridged to %s on %s (%d)\n\n",
		tokenCount, len(chains), color.YellowString(dest.Symbol), dest.Name, dest.ChainID)
}
