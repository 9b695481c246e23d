package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/forecast"
	"github.com/qwerty2498888/maxpowertrading/internal/notify"
)

func analyzeCmd() *cobra.Command {
	var (
		expirations []string
		format      string
		send        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze TICKER...",
		Short: "Compute levels, gamma flip and regime for one or more tickers",
		Long: `Fetch the option chain and print support/resistance levels with confidence,
the gamma flip zone and the market regime.

Without --expirations the nearest expiration on or after today is used.

Examples:
  # Text forecast for SPX
  maxpower analyze SPX

  # Several expirations, JSON output
  maxpower analyze SPY --expirations 2025-01-17,2025-01-24 --format json

  # Replay a recording and push the forecast to the configured channels
  maxpower analyze SPX --replay data/2025-01-17 --notify`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := validateFormat(format); err != nil {
				return err
			}

			svc, closeCache, err := newAnalyzer(ctx)
			if err != nil {
				return err
			}
			defer closeCache()

			var notifier notify.Notifier = &notify.NoopNotifier{}
			if send {
				ncfg, err := notify.LoadConfig()
				if err != nil {
					return err
				}
				if err := ncfg.Validate(); err != nil {
					return err
				}
				if notifier, err = notify.New(ncfg, logger); err != nil {
					return err
				}
			}

			var failed int
			results := make([]*analytics.AnalysisResult, 0, len(args))
			for _, ticker := range args {
				result, err := svc.Analyze(ctx, ticker, expirations)
				if err != nil {
					failed++
					logger.Error("analysis failed", zap.String("ticker", ticker), zap.Error(err))
					if nerr := notifier.SendFailure(ctx, ticker, err); nerr != nil {
						logger.Warn("failure notification not sent", zap.Error(nerr))
					}
					continue
				}
				results = append(results, result)

				if err := notifier.SendForecast(ctx, result); err != nil {
					logger.Warn("forecast notification not sent", zap.String("ticker", ticker), zap.Error(err))
				}
			}

			if strings.ToLower(format) == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for i, r := range results {
					if i > 0 {
						fmt.Println()
					}
					fmt.Print(forecast.Render(r))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d analyses failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&expirations, "expirations", nil, "expiration dates (YYYY-MM-DD) to aggregate")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().BoolVar(&send, "notify", false, "send the forecast to the configured ntfy/Telegram channels")

	return cmd
}

func expirationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expirations TICKER",
		Short: "List the expirations the provider offers for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeCache, err := newAnalyzer(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			exps, err := svc.Expirations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range exps {
				fmt.Println(e)
			}
			return nil
		},
	}
}

func tickersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tickers",
		Short: "List the configured tickers and their instrument class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := effectiveTickers(nil)
			if err != nil {
				return err
			}
			for _, t := range tickers {
				class, ic := cfg.ClassFor(t)
				fmt.Printf("%-6s %-10s window ±%.0f%%\n", analytics.DisplayTicker(t), class, ic.WindowBand*100)
			}
			return nil
		},
	}
}
