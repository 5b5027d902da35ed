package cmd

import (
	"context"
	"fmt"

	"teleport/config"
	"teleport/pkg/aggregator"
	"teleport/pkg/aggregator/lifi"
	"teleport/pkg/aggregator/oneclick"
	"teleport/pkg/balance"
	"teleport/pkg/bridge"
	"teleport/pkg/metrics"
	"teleport/pkg/quote"
	"teleport/pkg/wallet"
)

// app is the object graph every command shares
type app struct {
	aggCfg   *aggregator.Config
	keys     *wallet.KeyProvider
	client   aggregator.Client
	oneclick *oneclick.Client
	balances balance.Provider
	quotes   *quote.Service
	executor *bridge.Executor
	metrics  *metrics.BridgeMetrics
}

// newApp wires the configured aggregator and wallet. confirm may be nil
// when the command never signs.
func newApp(ctx context.Context, confirm wallet.ConfirmFunc) (*app, error) {
	a := &app{
		aggCfg:   aggregator.NewConfig(cfg.Integrator, cfg.APIKey),
		balances: balance.NewRPCProvider(cfg.Chains(), balance.DialEthclient, logger),
		metrics:  metrics.NewBridgeMetrics(),
	}

	switch cfg.Aggregator {
	case config.AggregatorOneClick:
		a.oneclick = oneclick.NewClient(a.aggCfg, cfg.OneClickBaseURL, cfg.OneClickJWTToken, cfg.Chains(), cfg.Destination, logger)
		a.client = a.oneclick
	default:
		a.client = lifi.NewClient(a.aggCfg, cfg.LiFiBaseURL, nil, logger)
	}

	a.quotes = quote.NewService(a.client, a.aggCfg, cfg.Destination, a.metrics, logger)
	a.executor = bridge.NewExecutor(a.client, a.aggCfg, bridge.Options{
		PollInterval: cfg.Poll.Interval,
		MaxAttempts:  cfg.Poll.MaxAttempts,
	}, a.metrics, logger)

	if cfg.PrivateKey == "" {
		return a, nil
	}

	keys, err := wallet.NewKeyProvider(cfg.PrivateKey, cfg.RPCURLs(), cfg.SourceChains[0].ID, wallet.DialEthclient, logger)
	if err != nil {
		return nil, err
	}
	a.keys = keys

	var provider wallet.Provider = keys
	if confirm != nil {
		provider = wallet.NewConfirmingProvider(keys, confirm)
	}
	if err := a.aggCfg.Connect(ctx, provider); err != nil {
		keys.Close()
		return nil, fmt.Errorf("failed to connect wallet: %w", err)
	}

	logger.WithField("account", keys.Address().Hex()).Debug("wallet connected")
	return a, nil
}

func (a *app) Close() {
	a.aggCfg.Disconnect()
	if a.keys != nil {
		a.keys.Close()
	}
}
