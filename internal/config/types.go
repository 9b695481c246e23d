package config

import "github.com/qwerty2498888/maxpowertrading/internal/analytics"

// Class names an instrument class with its own window and zone tunables
type Class string

const (
	ClassIndex      Class = "index"
	ClassETF        Class = "etf"
	ClassVolatility Class = "volatility"
	ClassEquity     Class = "equity"
)

// DefaultClasses holds the stock tunables per class
var DefaultClasses = map[Class]analytics.InstrumentClassConfig{
	ClassIndex: {
		WindowBand:             0.02,
		ResistanceZoneLowerPct: 0.001,
		ResistanceZoneUpperPct: 0.002,
		SupportZoneLowerPct:    0.002,
		SupportZoneUpperPct:    0.001,
		MergeTolerance:         analytics.DefaultMergeTolerance,
	},
	ClassETF: {
		WindowBand:             0.03,
		ResistanceZoneLowerPct: 0.001,
		ResistanceZoneUpperPct: 0.003,
		SupportZoneLowerPct:    0.003,
		SupportZoneUpperPct:    0.001,
		MergeTolerance:         analytics.DefaultMergeTolerance,
	},
	ClassVolatility: {
		WindowBand:             0.50,
		ResistanceZoneLowerPct: 0.002,
		ResistanceZoneUpperPct: 0.003,
		SupportZoneLowerPct:    0.003,
		SupportZoneUpperPct:    0.002,
		MergeTolerance:         analytics.DefaultMergeTolerance,
	},
	ClassEquity: {
		WindowBand:             0.12,
		ResistanceZoneLowerPct: 0.001,
		ResistanceZoneUpperPct: 0.003,
		SupportZoneLowerPct:    0.003,
		SupportZoneUpperPct:    0.001,
		MergeTolerance:         analytics.DefaultMergeTolerance,
	},
}

// DefaultTickerClasses maps display tickers to their class. Anything not
// listed is treated as an equity.
var DefaultTickerClasses = map[string]Class{
	"SPX":  ClassIndex,
	"NDX":  ClassIndex,
	"RUT":  ClassIndex,
	"XSP":  ClassIndex,
	"DJX":  ClassIndex,
	"SPY":  ClassETF,
	"QQQ":  ClassETF,
	"IWM":  ClassETF,
	"DIA":  ClassETF,
	"VIX":  ClassVolatility,
	"UVXY": ClassVolatility,
	"VXX":  ClassVolatility,
}

// DefaultTickers lists the tickers analysed when none are configured
var DefaultTickers = []string{
	"SPX", "NDX", "RUT", "SPY", "QQQ", "IWM",
	"VIX", "UVXY", "AAPL", "TSLA", "NVDA", "META",
	"AMZN", "GOOG", "GOOGL", "NFLX", "AMD", "ORCL", "BABA",
}

// validClasses is the set of known class names
var validClasses = map[Class]bool{
	ClassIndex:      true,
	ClassETF:        true,
	ClassVolatility: true,
	ClassEquity:     true,
}
