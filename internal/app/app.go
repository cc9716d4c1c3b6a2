// Package app assembles a Resolver from configuration for the binaries.
package app

import (
	"time"

	"go.uber.org/zap"

	"unifiedprice/internal/config"
	"unifiedprice/internal/fx"
	"unifiedprice/internal/httpx"
	"unifiedprice/internal/provider"
	"unifiedprice/internal/provider/crypto"
	"unifiedprice/internal/provider/equity"
	"unifiedprice/internal/provider/fund"
	"unifiedprice/internal/resolve"
)

// NewHTTPClient returns the upstream client shared by every source.
func NewHTTPClient(cfg config.HTTP) *httpx.Client {
	hc := httpx.New(time.Duration(cfg.TimeoutSec) * time.Second)
	if cfg.UserAgent != "" {
		hc.Headers["User-Agent"] = cfg.UserAgent
	}
	return hc
}

// NewResolver wires the three sources and, when enabled, the converter.
func NewResolver(cfg config.Config, hc *httpx.Client, logger *zap.Logger) *resolve.Resolver {
	sources := map[resolve.Class]provider.Source{
		resolve.Stock: equity.New(equity.Config{URL: cfg.Equity.Endpoint}, hc),
		resolve.Fund: fund.New(fund.Config{
			RealtimeURL: cfg.Fund.RealtimeEndpoint,
			HistoryURL:  cfg.Fund.HistoryEndpoint,
			Referer:     cfg.Fund.Referer,
		}, hc),
		resolve.Crypto: crypto.New(crypto.Config{URL: cfg.Crypto.Endpoint}, hc),
	}

	var rates resolve.RateSource
	if cfg.FX.Enabled {
		rates = fx.New(fx.Config{URL: cfg.FX.Endpoint}, hc)
	} else {
		logger.Info("currency conversion disabled")
	}

	logger.Debug("resolver ready",
		zap.String("equity", cfg.Equity.Endpoint),
		zap.String("fund_realtime", cfg.Fund.RealtimeEndpoint),
		zap.String("fund_history", cfg.Fund.HistoryEndpoint),
		zap.String("crypto", cfg.Crypto.Endpoint),
		zap.Bool("fx", cfg.FX.Enabled))

	return resolve.New(sources, rates, resolve.WithLogger(logger))
}
