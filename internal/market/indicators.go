package market

import (
	"github.com/markcheno/go-talib"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/provider"
)

// Indicators derives VWAP, a simple moving average and RSI from intraday bars.
// Each value is nil when there are not enough bars for it.
func Indicators(candles []provider.Candle, maPeriod, rsiPeriod int) analytics.Indicators {
	var out analytics.Indicators
	if len(candles) == 0 {
		return out
	}

	out.VWAP = VWAP(candles)

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	if maPeriod > 0 && len(closes) >= maPeriod {
		sma := talib.Sma(closes, maPeriod)
		v := sma[len(sma)-1]
		out.MovingAverage = &v
	}
	if rsiPeriod > 0 && len(closes) > rsiPeriod {
		rsi := talib.Rsi(closes, rsiPeriod)
		v := rsi[len(rsi)-1]
		out.RSI = &v
	}
	return out
}

// VWAP is the volume weighted typical price (high+low+close)/3 over the bars.
func VWAP(candles []provider.Candle) *float64 {
	var pv, vol float64
	for _, c := range candles {
		if c.Volume <= 0 {
			continue
		}
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * float64(c.Volume)
		vol += float64(c.Volume)
	}
	if vol == 0 {
		return nil
	}
	v := pv / vol
	return &v
}
