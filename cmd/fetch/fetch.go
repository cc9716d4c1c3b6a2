package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unifiedprice/internal/config"
	"unifiedprice/internal/logx"
	"unifiedprice/internal/resolve"
)

type priceResolver interface {
	Resolve(ctx context.Context, req resolve.Request) *resolve.UnifiedPrice
}

type buildFunc func(cfg config.Config, logger *zap.Logger) priceResolver

func newRootCmd(build buildFunc) *cobra.Command {
	var (
		date        string
		currency    string
		configPath  string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:          "fetch CODE [CODE...]",
		Short:        "Resolve prices for stock, fund and crypto codes and print them as JSON",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return errors.New("--concurrency must be >= 1")
			}
			if configPath == "" {
				configPath = os.Getenv("CONFIG_FILE")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logx.New(cfg.Log.Level, cfg.Log.JSON)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
			defer cancel()

			out := fetchAll(ctx, build(cfg, logger), args, date, currency, concurrency)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "historical date YYYY-MM-DD (default: current price)")
	cmd.Flags().StringVar(&currency, "currency", "", "target currency, e.g. USD (default: native currency)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json or config.yaml (default: $CONFIG_FILE)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum codes resolved at once")

	return cmd
}

// fetchAll resolves every code, at most limit at a time. Unresolvable codes
// map to nil. Duplicate codes are resolved once.
func fetchAll(ctx context.Context, res priceResolver, codes []string, date, currency string, limit int) map[string]*resolve.UnifiedPrice {
	var (
		mu  sync.Mutex
		out = make(map[string]*resolve.UnifiedPrice, len(codes))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, code := range codes {
		mu.Lock()
		if _, seen := out[code]; seen {
			mu.Unlock()
			continue
		}
		out[code] = nil
		mu.Unlock()
		g.Go(func() error {
			p := res.Resolve(ctx, resolve.Request{Code: code, Date: date, TargetCurrency: currency})
			mu.Lock()
			out[code] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
