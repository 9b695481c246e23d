package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://query2.finance.yahoo.com", cfg.Provider.BaseURL)
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 0.001, cfg.Constants.NetGexScale)
	assert.Equal(t, 0.005, cfg.Constants.AbsoluteGammaScale)
	assert.Len(t, cfg.Classes, 4)
	assert.Equal(t, 0.02, cfg.Classes["index"].WindowBand)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAXPOWER_FETCH_WORKERS", "9")
	t.Setenv("MAXPOWER_CLASSES_EQUITY_WINDOW_BAND", "0.2")
	t.Setenv("MAXPOWER_REDIS_PASSWORD", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Fetch.Workers)
	assert.Equal(t, 0.2, cfg.Classes["equity"].WindowBand)
	assert.Equal(t, "secret", cfg.Cache.RedisPassword)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tickers: [SPX, AAPL]
cache:
  backend: redis
classes:
  index:
    window_band: 0.05
ticker_classes:
  aapl: etf
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Tickers, 2)
	assert.Equal(t, "redis", cfg.Cache.Backend)

	class, settings := cfg.ClassFor("spx")
	assert.Equal(t, ClassIndex, class)
	assert.Equal(t, 0.05, settings.WindowBand)
	// untouched fields keep their defaults
	assert.Equal(t, 20.0, settings.MergeTolerance)

	class, _ = cfg.ClassFor("AAPL")
	assert.Equal(t, ClassETF, class, "file mapping overrides the built-in class")
}

func TestLoadInvalidBackend(t *testing.T) {
	t.Setenv("MAXPOWER_CACHE_BACKEND", "memcached")

	_, err := Load("")
	require.Error(t, err)
}

func TestClassFor(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		ticker string
		want   Class
	}{
		{"SPX", ClassIndex},
		{"^NDX", ClassIndex},
		{"qqq", ClassETF},
		{"VIX", ClassVolatility},
		{"TSLA", ClassEquity},
	}
	for _, tt := range tests {
		got, settings := cfg.ClassFor(tt.ticker)
		assert.Equal(t, tt.want, got, tt.ticker)
		assert.Equal(t, DefaultClasses[tt.want].WindowBand, settings.WindowBand, tt.ticker)
	}
}

func TestLoadServerConfig(t *testing.T) {
	dir := t.TempDir()
	for _, date := range []string{"2025-01-16", "2025-01-17", "2025-01-18"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, date), 0755))
	}
	// only non-empty recordings count
	for _, date := range []string{"2025-01-16", "2025-01-17"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, date, "SPX.jsonl"), []byte("{}\n"), 0644))
	}

	t.Setenv("PROVIDER_MODE", "file")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("WS_STREAM_INTERVAL", "bogus")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-17", cfg.DataDate, "latest non-empty date")
	assert.Equal(t, filepath.Join(dir, "2025-01-17"), cfg.RecordingDir())
	assert.Equal(t, 30.0, cfg.WSStreamInterval.Seconds(), "fallback interval")

	t.Setenv("PROVIDER_MODE", "carrier-pigeon")
	_, err = LoadServerConfig()
	assert.Error(t, err)
}
