package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
	"github.com/qwerty2498888/maxpowertrading/internal/cache"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
)

// newClient returns the live provider, or the recording in --replay.
func newClient() (provider.Client, error) {
	if replayDir != "" {
		return provider.NewFileClient(replayDir, logger)
	}
	return provider.NewClient(provider.OptionsFromConfig(cfg.Provider), logger), nil
}

// newAnalyzer builds the analyzer service. The returned close func releases the cache.
func newAnalyzer(ctx context.Context) (*analyzer.Service, func(), error) {
	client, err := newClient()
	if err != nil {
		return nil, nil, err
	}

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	return analyzer.NewService(client, c, cfg, logger), func() { _ = c.Close() }, nil
}

// effectiveTickers applies a --tickers override to the configured tickers and validates them.
func effectiveTickers(override []string) ([]string, error) {
	tickers := cfg.Tickers
	if len(override) > 0 {
		tickers = override
	}
	if len(tickers) == 0 {
		tickers = config.DefaultTickers
	}

	if err := config.ValidateInstruments(tickers, cfg.Classes, cfg.TickerMap); err != nil {
		return nil, err
	}
	return tickers, nil
}

func validateFormat(format string) error {
	switch strings.ToLower(format) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format %q (use text or json)", format)
	}
}
