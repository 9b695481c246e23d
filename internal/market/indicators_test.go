package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwerty2498888/maxpowertrading/internal/provider"
)

func bars(closes ...float64) []provider.Candle {
	start := time.Date(2025, 1, 17, 14, 30, 0, 0, time.UTC)
	out := make([]provider.Candle, len(closes))
	for i, c := range closes {
		out[i] = provider.Candle{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

func TestVWAP(t *testing.T) {
	candles := []provider.Candle{
		{High: 11, Low: 9, Close: 10, Volume: 100},
		{High: 22, Low: 18, Close: 20, Volume: 300},
		{High: 50, Low: 50, Close: 50, Volume: 0},
	}
	v := VWAP(candles)
	require.NotNil(t, v)
	assert.InDelta(t, 17.5, *v, 1e-9)

	assert.Nil(t, VWAP([]provider.Candle{{High: 1, Low: 1, Close: 1}}))
}

func TestIndicators(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}

	ind := Indicators(bars(closes...), 20, 14)
	require.NotNil(t, ind.MovingAverage)
	assert.InDelta(t, 10.5, *ind.MovingAverage, 1e-9)
	require.NotNil(t, ind.RSI)
	assert.InDelta(t, 100, *ind.RSI, 1e-9)
	require.NotNil(t, ind.VWAP)
	assert.InDelta(t, 10.5, *ind.VWAP, 1e-9)
}

func TestIndicators_FallingMarket(t *testing.T) {
	closes := make([]float64, 16)
	for i := range closes {
		closes[i] = float64(100 - i)
	}
	ind := Indicators(bars(closes...), 20, 14)
	assert.Nil(t, ind.MovingAverage)
	require.NotNil(t, ind.RSI)
	assert.InDelta(t, 0, *ind.RSI, 1e-9)
}

func TestIndicators_NotEnoughBars(t *testing.T) {
	ind := Indicators(bars(1, 2, 3), 20, 14)
	assert.Nil(t, ind.MovingAverage)
	assert.Nil(t, ind.RSI)
	assert.NotNil(t, ind.VWAP)

	empty := Indicators(nil, 20, 14)
	assert.Nil(t, empty.VWAP)
}
