package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"teleport/pkg/amount"
	"teleport/pkg/balance"
	"teleport/pkg/bridge"
	"teleport/pkg/bridgeerr"
	"teleport/pkg/dialog"
	"teleport/pkg/parser"
	"teleport/pkg/types"
	"teleport/pkg/wallet"
)

var skipConfirm bool

var stageLabels = map[bridge.Stage]string{
	bridge.StageApproving: " Approving token spend...",
	bridge.StageBridging:  " Submitting bridge transaction...",
	bridge.StageWaiting:   " Waiting for funds to arrive on the destination chain...",
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge [<amount> <token> from <chain>]",
	Short: "Bridge a balance to Monad",
	Long: `Bridge a token balance from a supported EVM chain to Monad.

Without arguments the command lists your funded balances and walks you
through choosing a source, an amount and confirming the quote. Every
transaction is shown for approval before it is signed unless --yes is set.

Amounts accept a number or a preset: 25%, 50% or max.

Examples:
  teleport bridge
  teleport bridge 50 USDC from base
  teleport bridge 0.1 ETH from arbitrum --yes`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip confirmation prompts")
}

func runBridge(cmd *cobra.Command, args []string) error {
	var req *types.BridgeRequest
	if len(args) > 0 {
		parsed, err := parser.ParseBridgeCommand(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if _, _, err := parser.ValidateBridgeRequest(parsed, cfg.Chains()); err != nil {
			return err
		}
		req = parsed
	}

	// The first interrupt stops status polling; a second one exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)

	a, err := newApp(ctx, func(chainID int64, tx wallet.TxRequest) bool {
		if skipConfirm {
			return true
		}

		active := s.Active()
		s.Stop()
		if active {
			defer s.Start()
		}

		displayTxRequest(chainID, tx)
		return confirmPrompt("\nSign this transaction?")
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl := dialog.NewController(dialog.Deps{
		Balances: a.balances,
		Chains:   cfg.Chains(),
		Config:   a.aggCfg,
		Quotes:   a.quotes,
		Executor: a.executor,
		Metrics:  a.metrics,
	}, dialog.Callbacks{
		OnStage: func(stage bridge.Stage) {
			if label, ok := stageLabels[stage]; ok {
				s.Lock()
				s.Suffix = label
				s.Unlock()
			}
		},
	}, logger)

	s.Suffix = " Loading balances..."
	s.Start()
	sess := ctrl.Open(ctx)
	defer ctrl.Close()
	sess.Wait()
	s.Stop()

	st := sess.State()
	if st.View == dialog.ViewError {
		return errors.New(userMessage(st.Err))
	}

	displayBalances(st.Balances, false)
	funded := balance.Positive(st.Balances)
	if len(funded) == 0 {
		printSuccess("Nothing to bridge: no funded balances on the supported chains.")
		return nil
	}

	selected, err := chooseSource(st.Balances, funded, req)
	if err != nil {
		return err
	}
	if err := sess.SelectSource(selected.ChainID, selected.Asset); err != nil {
		return fmt.Errorf("cannot bridge from %s: no %s balance", selected.ChainName, selected.Symbol)
	}

	if err := enterAmount(sess, selected, req, s); err != nil {
		return err
	}

	q := sess.State().Quote
	displayQuote(q, selected)

	for {
		if !skipConfirm && !confirmPrompt("Proceed with bridge?") {
			fmt.Println("\nBridge cancelled.")
			return nil
		}

		s.Suffix = stageLabels[bridge.StageApproving]
		s.Start()
		if err := sess.Confirm(); err != nil {
			s.Stop()
			return err
		}
		sess.Wait()
		s.Stop()

		st = sess.State()
		switch st.View {
		case dialog.ViewSuccess:
			displaySuccess(st, selected)
			return nil
		case dialog.ViewProcessing:
			color.Yellow("\nStopped watching the bridge.")
			if st.TxHash != "" {
				fmt.Println("You can monitor it using:")
				color.Cyan("  teleport status %s --from-chain %s\n", st.TxHash, strings.ToLower(selected.ChainName))
			}
			return nil
		case dialog.ViewCancelled:
			color.Yellow("\n%s", userMessage(st.Err))
		default:
			color.Red("\n%s", userMessage(st.Err))
			if st.TxHash != "" {
				fmt.Printf("  Transaction: %s\n", color.CyanString(cfg.Chains().ExplorerTxURL(selected.ChainID, st.TxHash)))
			}
		}

		if skipConfirm || !confirmPrompt("\nRetry with the same quote?") {
			return errors.New(userMessage(st.Err))
		}
		if err := sess.Retry(); err != nil {
			return err
		}
	}
}

func chooseSource(all, funded []types.TokenBalance, req *types.BridgeRequest) (types.TokenBalance, error) {
	if req != nil {
		chain, _ := cfg.Chains().ByName(req.SourceChain)
		b, ok := balance.Find(all, chain.ID, req.Symbol)
		if !ok {
			return types.TokenBalance{}, fmt.Errorf("%s is not offered on %s", req.Symbol, chain.Name)
		}
		return b, nil
	}

	for {
		choice, err := prompt(fmt.Sprintf("Select a balance to bridge [1-%d]: ", len(funded)))
		if err != nil {
			return types.TokenBalance{}, err
		}

		n, err := strconv.Atoi(choice)
		if err == nil && n >= 1 && n <= len(funded) {
			return funded[n-1], nil
		}
		color.Red("  Please enter a number between 1 and %d", len(funded))
	}
}

// enterAmount sets the amount and requests a quote until one is accepted.
// A command-line amount gets a single attempt.
func enterAmount(sess *dialog.Session, selected types.TokenBalance, req *types.BridgeRequest, s *spinner.Spinner) error {
	for {
		value := ""
		if req != nil {
			value = req.Amount
		} else {
			var err error
			value, err = prompt(fmt.Sprintf("\nAmount of %s to bridge (available %s; 25%%, 50%% or max): ",
				selected.Symbol, selected.FormattedBalance))
			if err != nil {
				return err
			}
		}

		if err := setAmount(sess, value); err != nil {
			if req != nil {
				return err
			}
			color.Red("  %s", dialog.ErrInvalidAmount)
			continue
		}

		s.Suffix = " Fetching quote..."
		s.Start()
		err := sess.RequestQuote()
		s.Stop()

		if err == nil {
			return nil
		}
		if req != nil {
			return errors.New(userMessage(err))
		}
		color.Red("  %s", userMessage(err))
	}
}

func setAmount(sess *dialog.Session, value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "25%":
		return sess.SetAmountFraction(dialog.Quarter)
	case "50%":
		return sess.SetAmountFraction(dialog.Half)
	case "max", "100%":
		return sess.SetAmountFraction(dialog.Max)
	default:
		return sess.SetAmount(strings.TrimSpace(value))
	}
}

func userMessage(err error) string {
	if err == nil {
		return bridgeerr.MessageUnknown
	}

	var be *bridgeerr.Error
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func displayTxRequest(chainID int64, tx wallet.TxRequest) {
	chainName := strconv.FormatInt(chainID, 10)
	if chain, ok := cfg.Chains().ByID(chainID); ok {
		chainName = chain.Name
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	color.Yellow("  Signature request on %s", chainName)
	fmt.Printf("  To:      %s\n", color.CyanString(tx.To.Hex()))
	if tx.Value != nil && tx.Value.Sign() > 0 {
		fmt.Printf("  Value:   %s\n", amount.FromBaseUnits(tx.Value, 18))
	}
	fmt.Printf("  Data:    %d bytes\n", len(tx.Data))
	fmt.Println(strings.Repeat("-", 60))
}

func displayQuote(q *types.Quote, selected types.TokenBalance) {
	places := amount.DisplayPlaces(q.DestDecimals)

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     BRIDGE QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s on %s\n", amount.Format(q.SourceAmount, amount.DisplayPlaces(selected.Decimals)),
		color.YellowString(selected.Symbol), selected.ChainName)
	fmt.Printf("  To:                ~%s %s on %s\n", amount.Format(amount.FromBaseUnitsString(q.DestAmount, q.DestDecimals), places),
		color.YellowString(q.DestSymbol), cfg.Destination.Name)
	fmt.Printf("  Minimum Received:  %s %s\n", amount.Format(amount.FromBaseUnitsString(q.DestAmountMin, q.DestDecimals), places),
		color.YellowString(q.DestSymbol))
	fmt.Printf("  Estimated Gas:     %s\n", amount.Format(amount.FromBaseUnitsString(q.EstimatedGasCost, 18), 6))
	fmt.Printf("  Estimated Time:    ~%d min\n", q.EstimatedMinutes())
	if q.ProviderName != "" {
		fmt.Printf("  Route:             %s\n", q.ProviderName)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displaySuccess(st dialog.State, selected types.TokenBalance) {
	color.Green("\n✓ Bridge complete!")
	fmt.Printf("  Sent:        %s %s from %s\n", st.Amount, selected.Symbol, selected.ChainName)
	fmt.Printf("  Transaction: %s\n\n", color.CyanString(cfg.Chains().ExplorerTxURL(selected.ChainID, st.TxHash)))
}
