package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"teleport/pkg/aggregator"
)

var (
	statusFromChain string
	watchStatus     bool
	watchInterval   int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash | deposit-address>",
	Short: "Check the status of a bridge transfer",
	Long: `Check the destination status of a bridge transfer.

With the LI.FI aggregator pass the source transaction hash and its chain.
With the 1Click aggregator pass the deposit address from the quote.

Examples:
  teleport status 0x5e1f...1100 --from-chain base
  teleport status 0x5e1f...1100 --from-chain base --watch
  teleport status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusFromChain, "from-chain", "", "Source chain of the transaction (LI.FI)")
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the transfer settles")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

// statusFunc fetches the current status of one transfer
type statusFunc func(ctx context.Context) (*aggregator.StatusResponse, error)

func runStatus(cmd *cobra.Command, args []string) error {
	id := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	fetch, err := statusFetcher(a, id)
	if err != nil {
		return err
	}

	if watchStatus {
		if jsonOutput {
			return fmt.Errorf("watch mode not supported with JSON output")
		}
		return watchTransferStatus(ctx, fetch, id)
	}
	return checkTransferStatus(ctx, fetch, id, jsonOutput)
}

func statusFetcher(a *app, id string) (statusFunc, error) {
	if a.oneclick != nil {
		return func(ctx context.Context) (*aggregator.StatusResponse, error) {
			return a.oneclick.StatusByDeposit(ctx, id)
		}, nil
	}

	if statusFromChain == "" {
		return nil, fmt.Errorf("--from-chain is required to look up a transaction hash")
	}
	chain, ok := cfg.Chains().ByName(statusFromChain)
	if !ok {
		return nil, fmt.Errorf("unsupported source chain %q", statusFromChain)
	}

	req := aggregator.StatusRequest{
		TxHash:    id,
		FromChain: chain.ID,
		ToChain:   cfg.Destination.ChainID,
	}
	return func(ctx context.Context) (*aggregator.StatusResponse, error) {
		return a.client.GetStatus(ctx, req)
	}, nil
}

func checkTransferStatus(ctx context.Context, fetch statusFunc, id string, jsonOutput bool) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking bridge status..."
		s.Start()
	}

	status, err := fetch(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	displayStatus(status, id)
	return nil
}

func watchTransferStatus(ctx context.Context, fetch statusFunc, id string) error {
	fmt.Printf("\nWatching bridge status (%s)\n", color.CyanString(id))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		status, err := fetch(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			color.Red("Error: %v", err)
		default:
			displayStatus(status, id)
			if status.Status == aggregator.StatusDone || status.Status == aggregator.StatusFailed {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func displayStatus(status *aggregator.StatusResponse, id string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        BRIDGE STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transfer:        %s\n", color.CyanString(id))
	fmt.Printf("  Status:          %s\n", getColoredStatus(string(status.Status)))
	if status.Substatus != "" {
		fmt.Printf("  Detail:          %s\n", status.Substatus)
	}
	fmt.Printf("  Checked At:      %s\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch aggregator.Status(status) {
	case aggregator.StatusDone:
		return color.GreenString(status)
	case aggregator.StatusPending:
		return color.YellowString(status)
	case aggregator.StatusFailed:
		return color.RedString(status)
	case aggregator.StatusNotFound:
		return color.MagentaString(status)
	default:
		return status
	}
}
