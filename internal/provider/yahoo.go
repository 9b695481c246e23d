package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
)

// HTTPClient talks to the Yahoo-style v7 options and v8 chart endpoints.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	fallbackURL string
	userAgent   string
	limiter     *rate.Limiter
	retryCount  int
	retryDelay  time.Duration
	logger      *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

type Options struct {
	BaseURL       string
	FallbackURL   string
	UserAgent     string
	RatePerSecond int
	Timeout       time.Duration
	RetryDelay    time.Duration
	RetryCount    int
}

func NewClient(opts Options, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	ratePerSec := opts.RatePerSecond
	if ratePerSec < 1 {
		ratePerSec = 1
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		baseURL:     opts.BaseURL,
		fallbackURL: opts.FallbackURL,
		userAgent:   opts.UserAgent,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount:  opts.RetryCount,
		retryDelay:  opts.RetryDelay,
		logger:      logger,
	}
}

type optionContract struct {
	Strike       float64 `json:"strike"`
	OpenInterest *int64  `json:"openInterest"`
	Volume       *int64  `json:"volume"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Quote            struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
			} `json:"quote"`
			Options []struct {
				ExpirationDate int64            `json:"expirationDate"`
				Calls          []optionContract `json:"calls"`
				Puts           []optionContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"optionChain"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (c *HTTPClient) Quote(ctx context.Context, ticker string) (*Quote, error) {
	var resp optionsResponse
	if err := c.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(ticker), nil, &resp); err != nil {
		return nil, err
	}
	if resp.OptionChain.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, resp.OptionChain.Error.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, ErrNotFound
	}

	r := resp.OptionChain.Result[0]
	q := &Quote{
		Ticker:      ticker,
		Spot:        r.Quote.RegularMarketPrice,
		Expirations: make([]string, 0, len(r.ExpirationDates)),
	}
	if r.Quote.RegularMarketTime > 0 {
		q.MarketTime = time.Unix(r.Quote.RegularMarketTime, 0).UTC()
	}
	for _, ts := range r.ExpirationDates {
		q.Expirations = append(q.Expirations, ExpirationDate(ts))
	}
	return q, nil
}

func (c *HTTPClient) Chain(ctx context.Context, ticker, expiration string) (analytics.ExpirationChain, error) {
	chain := analytics.ExpirationChain{Expiration: expiration}

	ts, err := ParseExpiration(expiration)
	if err != nil {
		return chain, fmt.Errorf("%w: %s", ErrBadExpiration, expiration)
	}

	query := url.Values{}
	query.Set("date", fmt.Sprintf("%d", ts))

	var resp optionsResponse
	if err := c.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(ticker), query, &resp); err != nil {
		return chain, err
	}
	if resp.OptionChain.Error != nil {
		return chain, fmt.Errorf("%w: %s", ErrBadResponse, resp.OptionChain.Error.Description)
	}
	if len(resp.OptionChain.Result) == 0 || len(resp.OptionChain.Result[0].Options) == 0 {
		return chain, ErrNotFound
	}

	opts := resp.OptionChain.Result[0].Options[0]
	chain.Calls = toQuotes(opts.Calls)
	chain.Puts = toQuotes(opts.Puts)
	return chain, nil
}

func (c *HTTPClient) Candles(ctx context.Context, ticker, interval, rng string) ([]Candle, error) {
	query := url.Values{}
	query.Set("interval", interval)
	query.Set("range", rng)

	var resp chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), query, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNotFound
	}

	r := resp.Chart.Result[0]
	q := r.Indicators.Quote[0]
	candles := make([]Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, high, low, closePx := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		// Bars with missing prices are gaps in the feed
		if open == nil || high == nil || low == nil || closePx == nil {
			continue
		}
		var vol int64
		if v := at(q.Volume, i); v != nil {
			vol = *v
		}
		candles = append(candles, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePx,
			Volume: vol,
		})
	}
	return candles, nil
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

// toQuotes drops the contract detail the analytics never read. Missing OI or
// volume is reported by the provider as an absent field and counts as zero.
func toQuotes(contracts []optionContract) []analytics.OptionQuote {
	out := make([]analytics.OptionQuote, 0, len(contracts))
	for _, c := range contracts {
		q := analytics.OptionQuote{Strike: c.Strike}
		if c.OpenInterest != nil {
			q.OpenInterest = *c.OpenInterest
		}
		if c.Volume != nil {
			q.Volume = *c.Volume
		}
		out = append(out, q)
	}
	return out
}

// getJSON fetches path from the primary host and falls back to the secondary
// host once the primary is exhausted.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	err := c.getJSONFrom(ctx, c.baseURL, path, query, out)
	if err == nil || c.fallbackURL == "" || err == ErrNotFound || ctx.Err() != nil {
		return err
	}

	c.logger.Info("retrying with fallback host",
		zap.String("primary", c.baseURL),
		zap.String("fallback", c.fallbackURL),
		zap.String("path", path),
		zap.Error(err))

	return c.getJSONFrom(ctx, c.fallbackURL, path, query, out)
}

func (c *HTTPClient) getJSONFrom(ctx context.Context, base, path string, query url.Values, out any) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	c.logger.Debug("requesting", zap.String("url", target))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// OptionsFromConfig maps the provider section of the config file to client options.
func OptionsFromConfig(cfg config.ProviderConfig) Options {
	return Options{
		BaseURL:       cfg.BaseURL,
		FallbackURL:   cfg.FallbackURL,
		UserAgent:     cfg.UserAgent,
		RatePerSecond: cfg.RatePerSecond,
		Timeout:       time.Duration(cfg.TimeoutSec) * time.Second,
		RetryDelay:    time.Duration(cfg.RetryDelay) * time.Second,
		RetryCount:    cfg.RetryCount,
	}
}
