package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/market"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
	"github.com/qwerty2498888/maxpowertrading/internal/recorder"
	"github.com/qwerty2498888/maxpowertrading/internal/staging"
)

func recordCmd() *cobra.Command {
	var (
		outputDir      string
		tickers        []string
		maxExpirations int
		force          bool
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record today's quotes, chains and candles for later replay",
		Long: `Capture the live provider data for the configured tickers into
{output}/{YYYY-MM-DD}/{TICKER}.jsonl. Recordings can be replayed with --replay
or served with PROVIDER_MODE=file.

Examples:
  # Record the configured tickers, three nearest expirations each
  maxpower record --max-expirations 3

  # Override tickers from config
  maxpower record --tickers SPX,QQQ`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			effective, err := effectiveTickers(tickers)
			if err != nil {
				return err
			}

			session := market.NewSession()
			today := session.Today(time.Now())
			if !session.IsMarketDay(today) && !force {
				return fmt.Errorf("%s is not a market day (use --force to record anyway)", today)
			}

			if dryRun {
				for _, t := range effective {
					fmt.Printf("Would record: %s -> %s/%s/\n", t, outputDir, today)
				}
				return nil
			}

			client := provider.NewClient(provider.OptionsFromConfig(cfg.Provider), logger)
			rec := recorder.New(client, staging.NewManager(outputDir), cfg, logger)

			start := time.Now()
			result, err := rec.Record(ctx, effective, maxExpirations)
			if err != nil {
				return err
			}

			// Print summary
			logger.Info("recording complete",
				zap.String("date", result.Date),
				zap.Int("total", result.Total),
				zap.Int("recorded", result.Recorded),
				zap.Int("failed", result.Failed),
				zap.Int("expirations", result.Expirations),
				zap.String("size", humanize.Bytes(uint64(result.Bytes))),
				zap.Duration("duration", time.Since(start)),
			)

			if result.Failed > 0 {
				for _, e := range result.Errors {
					logger.Error("record error", zap.String("error", e))
				}
				return fmt.Errorf("%d recordings failed", result.Failed)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "data", "recording root directory")
	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "override tickers from config")
	cmd.Flags().IntVar(&maxExpirations, "max-expirations", 0, "nearest expirations to record per ticker (0 = all)")
	cmd.Flags().BoolVar(&force, "force", false, "record on non-market days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be recorded")

	return cmd
}
