// Package analyzer wires the provider, fetch pool, cache and market context
// around the pure analytics engine.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/cache"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
	"github.com/qwerty2498888/maxpowertrading/internal/fetch"
	"github.com/qwerty2498888/maxpowertrading/internal/market"
	"github.com/qwerty2498888/maxpowertrading/internal/metrics"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
)

// Analyzer interface for testability
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, expirations []string) (*analytics.AnalysisResult, error)
	Expirations(ctx context.Context, ticker string) ([]string, error)
	ResetCache(ctx context.Context, ticker string) (int, error)
}

// Service is the production Analyzer.
type Service struct {
	client  provider.Client
	fetcher *fetch.Manager
	cache   cache.Cache
	session *market.Session
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time
}

var _ Analyzer = (*Service)(nil)

func NewService(client provider.Client, c cache.Cache, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		client:  client,
		fetcher: fetch.NewManager(client, cfg.Fetch.Workers, logger),
		cache:   c,
		session: market.NewSession(),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// snapshot is the cached provider data for one request key.
type snapshot struct {
	Quote      provider.Quote                       `json:"quote"`
	Chains     map[string]analytics.ExpirationChain `json:"chains"`
	Indicators analytics.Indicators                 `json:"indicators"`
}

func (s *Service) Expirations(ctx context.Context, ticker string) ([]string, error) {
	q, err := s.client.Quote(ctx, analytics.NormalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
		}
		return nil, fmt.Errorf("fetching quote: %w", err)
	}
	return q.Expirations, nil
}

func (s *Service) Analyze(ctx context.Context, ticker string, expirations []string) (*analytics.AnalysisResult, error) {
	started := time.Now()
	symbol := analytics.NormalizeTicker(ticker)

	for _, exp := range expirations {
		if _, err := provider.ParseExpiration(exp); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidExpiration, exp)
		}
	}

	now := s.now()
	snap, err := s.load(ctx, symbol, expirations, now)
	if err != nil {
		status := "error"
		if errors.Is(err, ErrUnknownTicker) || errors.Is(err, ErrNoExpirations) {
			status = "no_data"
		}
		metrics.ObserveAnalysis(symbol, status, started, 0)
		return nil, err
	}

	className, class := s.cfg.ClassFor(symbol)
	result, err := analytics.Analyze(analytics.Input{
		Ticker:       symbol,
		Expirations:  requested(expirations, snap),
		Chains:       snap.Chains,
		Spot:         snap.Quote.Spot,
		Now:          s.session.NowContext(now),
		Class:        class,
		Constants:    s.cfg.Constants,
		Indicators:   snap.Indicators,
		ProximityPct: s.cfg.Scoring.ProximityPct,
	})
	if err != nil {
		metrics.ObserveAnalysis(symbol, "error", started, 0)
		return nil, fmt.Errorf("analyzing %s: %w", symbol, err)
	}

	status := "success"
	if result.Snapshot.Empty() {
		status = "no_data"
	}
	metrics.ObserveAnalysis(symbol, status, started, len(result.ScoredLevels))

	s.logger.Info("analysis complete",
		zap.String("ticker", symbol),
		zap.String("class", string(className)),
		zap.Strings("expirations", result.Snapshot.Expirations),
		zap.Int("strikes", len(result.Snapshot.Rows)),
		zap.Int("levels", len(result.ScoredLevels)),
		zap.String("regime", string(result.Regime)),
		zap.Duration("elapsed", time.Since(started)))

	return result, nil
}

func (s *Service) ResetCache(ctx context.Context, ticker string) (int, error) {
	if ticker != "" {
		ticker = analytics.NormalizeTicker(ticker)
	}
	return s.cache.Reset(ctx, ticker)
}

// load returns the provider data for the request, from cache when possible.
func (s *Service) load(ctx context.Context, symbol string, expirations []string, now time.Time) (*snapshot, error) {
	key := cache.Key(symbol, expirations, now, time.Duration(s.cfg.Cache.BucketSec)*time.Second)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var snap snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			s.logger.Debug("cache hit", zap.String("key", key))
			return &snap, nil
		}
		s.logger.Warn("discarding unreadable cache entry", zap.String("key", key))
		metrics.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
	}

	snap, err := s.fetchSnapshot(ctx, symbol, expirations, now)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(snap); err == nil {
		ttl := time.Duration(s.cfg.Cache.TTLSec) * time.Second
		if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
			s.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return snap, nil
}

func (s *Service) fetchSnapshot(ctx context.Context, symbol string, expirations []string, now time.Time) (*snapshot, error) {
	q, err := s.client.Quote(ctx, symbol)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, symbol)
		}
		return nil, fmt.Errorf("fetching quote: %w", err)
	}

	targets := expirations
	if len(targets) == 0 {
		nearest := s.session.NearestExpiration(q.Expirations, now)
		if nearest == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoExpirations, symbol)
		}
		targets = []string{nearest}
	}

	chains, batch, err := s.fetcher.Execute(ctx, symbol, targets)
	if err != nil {
		return nil, fmt.Errorf("fetching chains: %w", err)
	}
	metrics.ChainFetches.WithLabelValues(symbol, "success").Add(float64(batch.Success))
	metrics.ChainFetches.WithLabelValues(symbol, "not_found").Add(float64(batch.NotFound))
	metrics.ChainFetches.WithLabelValues(symbol, "error").Add(float64(batch.Failed))
	if batch.Failed > 0 {
		s.logger.Warn("some expirations failed",
			zap.String("ticker", symbol),
			zap.Int("failed", batch.Failed),
			zap.Strings("errors", batch.Errors))
	}

	snap := &snapshot{Quote: *q, Chains: chains}
	if s.cfg.Indicators.Enabled {
		snap.Indicators = s.indicators(ctx, symbol)
	}
	return snap, nil
}

// indicators are optional confirmations; a chart failure only loses them.
func (s *Service) indicators(ctx context.Context, symbol string) analytics.Indicators {
	ic := s.cfg.Indicators
	candles, err := s.client.Candles(ctx, symbol, ic.Interval, ic.Range)
	if err != nil {
		s.logger.Warn("indicator candles unavailable", zap.String("ticker", symbol), zap.Error(err))
		return analytics.Indicators{}
	}
	return market.Indicators(candles, ic.MovingAverage, ic.RSIPeriod)
}

// requested is the expiration filter passed to the engine: the caller's list,
// or every expiration the snapshot was fetched for.
func requested(expirations []string, snap *snapshot) []string {
	if len(expirations) > 0 {
		return expirations
	}
	out := make([]string, 0, len(snap.Chains))
	for date := range snap.Chains {
		out = append(out, date)
	}
	return out
}
