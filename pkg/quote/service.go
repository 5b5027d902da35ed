package quote

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"teleport/pkg/aggregator"
	"teleport/pkg/amount"
	"teleport/pkg/bridgeerr"
	"teleport/pkg/metrics"
	"teleport/pkg/types"
)

// Service turns a user amount on a source chain into a priced Quote to the
// destination asset
type Service struct {
	client  aggregator.Client
	cfg     *aggregator.Config
	dest    types.DestinationConfig
	metrics *metrics.BridgeMetrics
	log     logrus.FieldLogger
}

func NewService(client aggregator.Client, cfg *aggregator.Config, dest types.DestinationConfig, m *metrics.BridgeMetrics, log logrus.FieldLogger) *Service {
	return &Service{
		client:  client,
		cfg:     cfg,
		dest:    dest,
		metrics: m,
		log:     log,
	}
}

// RequestQuote prices sourceAmount (a decimal string) of the token at
// tokenAddress. The connected account is both sender and recipient.
func (s *Service) RequestQuote(ctx context.Context, sourceChainID int64, sourceAmount, tokenAddress string, tokenDecimals int) (*types.Quote, error) {
	account, ok := s.cfg.Account()
	if !ok {
		return nil, bridgeerr.WalletNotConnectedf("Wallet not connected")
	}

	baseUnits := amount.ToBaseUnits(sourceAmount, tokenDecimals)

	log := s.log.WithFields(logrus.Fields{
		"chain_id":   sourceChainID,
		"amount":     sourceAmount,
		"aggregator": s.client.Name(),
	})

	start := time.Now()
	est, err := s.client.GetQuote(ctx, aggregator.QuoteRequest{
		FromChain:   sourceChainID,
		ToChain:     s.dest.ChainID,
		FromToken:   tokenAddress,
		ToToken:     s.dest.TokenAddress,
		FromAmount:  baseUnits.String(),
		FromAddress: account.Hex(),
		ToAddress:   account.Hex(),
	})
	s.metrics.RecordQuote(sourceChainID, err == nil, time.Since(start))

	if err != nil {
		log.WithError(err).Warn("quote request failed")
		return nil, bridgeerr.QuoteUnavailableWrap(err)
	}

	log.WithFields(logrus.Fields{
		"to_amount": est.ToAmount,
		"tool":      est.Tool,
	}).Debug("quote received")

	return &types.Quote{
		SourceChainID:            sourceChainID,
		DestChainID:              s.dest.ChainID,
		SourceAmount:             sourceAmount,
		DestAmount:               est.ToAmount,
		DestAmountMin:            est.ToAmountMin,
		DestDecimals:             s.dest.Decimals,
		DestSymbol:               s.dest.Symbol,
		EstimatedGasCost:         est.GasCost,
		EstimatedDurationSeconds: est.Duration,
		ProviderName:             est.Tool,
		RouteHandle:              est.Route,
	}, nil
}
