package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"teleport/config"
	"teleport/pkg/metrics"
)

var (
	cfg           *config.Config
	logger        *logrus.Logger
	metricsServer *metrics.Server
)

var rootCmd = &cobra.Command{
	Use:   "teleport",
	Short: "A CLI for bridging EVM balances to Monad",
	Long: `teleport is a command-line tool that moves token balances from Ethereum,
Optimism, Arbitrum and Base to Monad through a cross-chain aggregator.
Pick a funded balance, choose an amount, review the quote and sign.

Examples:
  teleport balances
  teleport bridge
  teleport bridge 50 USDC from base
  teleport chains
  teleport status <tx-hash> --from-chain base`,
	Version:            "0.1.0",
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json or color-text (overrides config)")
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	format := cfg.Log.Format
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		format = f
	}

	logger, err = config.ConfigureLogger(level, format)
	if err != nil {
		return err
	}

	metrics.RegisterMetrics(logger)
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, logger)
		metricsServer.Start()
	}

	return nil
}

func teardown(*cobra.Command, []string) error {
	if metricsServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := metricsServer.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
