package provider

import (
	"context"
	"time"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

// Client interface for testability
type Client interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
	Chain(ctx context.Context, ticker, expiration string) (analytics.ExpirationChain, error)
	Candles(ctx context.Context, ticker, interval, rng string) ([]Candle, error)
}

// Quote is the underlying price together with the listed expirations.
type Quote struct {
	Ticker      string    `json:"ticker"`
	Spot        *float64  `json:"spot,omitempty"`
	MarketTime  time.Time `json:"market_time"`
	Expirations []string  `json:"expirations"`
}

// Candle is one intraday bar.
type Candle struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume int64     `json:"v"`
}

const dateLayout = "2006-01-02"

// ExpirationDate formats a provider unix timestamp as an expiration date.
func ExpirationDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(dateLayout)
}

// ParseExpiration parses a YYYY-MM-DD expiration into the provider's unix timestamp.
func ParseExpiration(date string) (int64, error) {
	t, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
