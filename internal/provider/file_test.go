package provider

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

func writeRecording(t *testing.T, dir, name string) {
	t.Helper()

	var buf bytes.Buffer
	w := NewRecordWriter(&buf)
	spot := 5000.0
	require.NoError(t, w.WriteQuote(&Quote{Ticker: "^SPX", Spot: &spot, Expirations: []string{"2025-01-17", "2025-01-24", "2025-01-31"}}))
	chains := []analytics.ExpirationChain{
		{Expiration: "2025-01-24", Calls: []analytics.OptionQuote{{Strike: 5050, OpenInterest: 10}}},
		{Expiration: "2025-01-17", Puts: []analytics.OptionQuote{{Strike: 4950, OpenInterest: 20, Volume: 3}}},
	}
	for _, c := range chains {
		require.NoError(t, w.WriteChain(c))
	}
	require.NoError(t, w.WriteCandle(Candle{Time: time.Unix(1737122400, 0).UTC(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644))
}

func TestFileClient_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "SPX.jsonl")

	client, err := NewFileClient(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"^SPX"}, client.Tickers())

	q, err := client.Quote(context.Background(), "spx")
	require.NoError(t, err)
	require.NotNil(t, q.Spot)
	assert.Equal(t, 5000.0, *q.Spot)
	// only recorded expirations are offered
	assert.Equal(t, []string{"2025-01-17", "2025-01-24"}, q.Expirations)

	chain, err := client.Chain(context.Background(), "^SPX", "2025-01-17")
	require.NoError(t, err)
	require.Len(t, chain.Puts, 1)
	assert.Equal(t, int64(20), chain.Puts[0].OpenInterest)

	_, err = client.Chain(context.Background(), "^SPX", "2025-01-31")
	assert.ErrorIs(t, err, ErrNotFound)

	candles, err := client.Candles(context.Background(), "SPX", "5m", "1d")
	require.NoError(t, err)
	assert.Len(t, candles, 1)

	_, err = client.Quote(context.Background(), "QQQ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileClient_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "SPX.jsonl")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "QQQ.jsonl"), []byte("{not json}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	client, err := NewFileClient(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, client.Tickers(), 1, "broken recording should be skipped")
}

func TestFileClient_EmptyDir(t *testing.T) {
	_, err := NewFileClient(t.TempDir(), zap.NewNop())
	assert.Error(t, err)
}
