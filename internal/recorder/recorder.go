// Package recorder captures provider quotes, chains and candles into JSONL
// session files that the file provider can replay.
package recorder

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
	"github.com/qwerty2498888/maxpowertrading/internal/fetch"
	"github.com/qwerty2498888/maxpowertrading/internal/market"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
	"github.com/qwerty2498888/maxpowertrading/internal/staging"
)

type Recorder struct {
	client  provider.Client
	fetcher *fetch.Manager
	staging *staging.Manager
	session *market.Session
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time
}

// Result summarises one recording run.
type Result struct {
	Date        string
	Total       int
	Recorded    int
	Failed      int
	Expirations int
	Bytes       int64
	Errors      []string
}

func New(client provider.Client, stg *staging.Manager, cfg *config.Config, logger *zap.Logger) *Recorder {
	return &Recorder{
		client:  client,
		fetcher: fetch.NewManager(client, cfg.Fetch.Workers, logger),
		staging: stg,
		session: market.NewSession(),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Record captures every ticker into {data}/{today}/{TICKER}.jsonl. maxExpirations
// limits each ticker to its nearest upcoming expirations; 0 records all of them.
// Files are committed only when at least one ticker was recorded.
func (r *Recorder) Record(ctx context.Context, tickers []string, maxExpirations int) (*Result, error) {
	date := r.session.Today(r.now())
	result := &Result{Date: date, Total: len(tickers)}

	if err := r.staging.PrepareStaging(date); err != nil {
		return result, fmt.Errorf("preparing staging: %w", err)
	}
	defer func() {
		if err := r.staging.CleanupStaging(date); err != nil {
			r.logger.Warn("failed to cleanup staging", zap.String("date", date), zap.Error(err))
		}
	}()

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, exps, err := r.recordTicker(ctx, date, analytics.NormalizeTicker(ticker), maxExpirations)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ticker, err))
			r.logger.Warn("recording failed", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		result.Recorded++
		result.Expirations += exps
		result.Bytes += n
	}

	if result.Recorded > 0 {
		if err := r.staging.CommitStaging(date); err != nil {
			return result, fmt.Errorf("committing recordings: %w", err)
		}
	}

	return result, nil
}

func (r *Recorder) recordTicker(ctx context.Context, date, symbol string, maxExpirations int) (int64, int, error) {
	q, err := r.client.Quote(ctx, symbol)
	if err != nil {
		return 0, 0, fmt.Errorf("fetching quote: %w", err)
	}

	exps := upcoming(q.Expirations, date, maxExpirations)
	if len(exps) == 0 {
		return 0, 0, fmt.Errorf("no upcoming expirations")
	}

	chains, batch, err := r.fetcher.Execute(ctx, symbol, exps)
	if err != nil {
		return 0, 0, fmt.Errorf("fetching chains: %w", err)
	}
	if batch.Success == 0 {
		return 0, 0, fmt.Errorf("no chain could be fetched (%d not found, %d failed)", batch.NotFound, batch.Failed)
	}

	var candles []provider.Candle
	if r.cfg.Indicators.Enabled {
		candles, err = r.client.Candles(ctx, symbol, r.cfg.Indicators.Interval, r.cfg.Indicators.Range)
		if err != nil {
			r.logger.Warn("candles unavailable", zap.String("ticker", symbol), zap.Error(err))
		}
	}

	name := analytics.DisplayTicker(symbol) + ".jsonl"
	n, err := r.staging.WriteToStaging(date, name, func(w io.Writer) error {
		rw := provider.NewRecordWriter(w)
		if err := rw.WriteQuote(q); err != nil {
			return err
		}
		for _, exp := range exps {
			chain, ok := chains[exp]
			if !ok || chain.Err != nil {
				continue
			}
			if err := rw.WriteChain(chain); err != nil {
				return err
			}
		}
		for _, c := range candles {
			if err := rw.WriteCandle(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	r.logger.Info("recorded ticker",
		zap.String("ticker", symbol),
		zap.Int("expirations", batch.Success),
		zap.Int("candles", len(candles)),
		zap.Int64("bytes", n),
	)
	return n, batch.Success, nil
}

// upcoming returns the sorted expirations on or after date, at most limit of them.
func upcoming(expirations []string, date string, limit int) []string {
	sorted := append([]string(nil), expirations...)
	sort.Strings(sorted)

	var out []string
	for _, exp := range sorted {
		if exp < date {
			continue
		}
		out = append(out, exp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
