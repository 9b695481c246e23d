// Package notify delivers rendered forecasts to ntfy topics and Telegram channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/metrics"
)

// Notifier is the interface for sending forecast notifications.
type Notifier interface {
	SendForecast(ctx context.Context, result *analytics.AnalysisResult) error
	SendFailure(ctx context.Context, ticker string, err error) error
}

// NtfyClient implements the ntfy notification client.
type NtfyClient struct {
	httpClient *http.Client
	config     *NtfyConfig
	logger     *zap.Logger
}

// NewNtfyClient creates a new ntfy client.
func NewNtfyClient(cfg *NtfyConfig, logger *zap.Logger) *NtfyClient {
	return &NtfyClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// SendForecast publishes a forecast.
func (c *NtfyClient) SendForecast(ctx context.Context, result *analytics.AnalysisResult) error {
	if !c.config.Enabled {
		return nil
	}

	tags := c.config.Tags
	switch result.Regime {
	case analytics.RegimeBullish:
		tags += ",green_circle"
	case analytics.RegimeBearish:
		tags += ",red_circle"
	}

	return c.send(ctx, FormatForecastTitle(result), FormatForecastMessage(result), tags, c.config.Priority)
}

// SendFailure publishes a failed forecast run.
func (c *NtfyClient) SendFailure(ctx context.Context, ticker string, err error) error {
	if !c.config.Enabled {
		return nil
	}

	tags := c.config.Tags + ",x"
	priority := "high" // Override to high priority for failures

	return c.send(ctx, FormatFailureTitle(ticker), FormatFailureMessage(ticker, err), tags, priority)
}

func (c *NtfyClient) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is a no-op implementation for when notifications are disabled.
type NoopNotifier struct{}

// SendForecast is a no-op.
func (n *NoopNotifier) SendForecast(_ context.Context, _ *analytics.AnalysisResult) error {
	return nil
}

// SendFailure is a no-op.
func (n *NoopNotifier) SendFailure(_ context.Context, _ string, _ error) error {
	return nil
}

type channel struct {
	name     string
	notifier Notifier
}

// MultiNotifier fans a notification out to every configured channel.
// A failing channel does not stop delivery to the others.
type MultiNotifier struct {
	channels []channel
}

// Add registers a channel under name, used as the metrics label.
func (m *MultiNotifier) Add(name string, n Notifier) {
	m.channels = append(m.channels, channel{name: name, notifier: n})
}

// Len returns the number of registered channels.
func (m *MultiNotifier) Len() int {
	return len(m.channels)
}

func (m *MultiNotifier) SendForecast(ctx context.Context, result *analytics.AnalysisResult) error {
	return m.each(func(n Notifier) error { return n.SendForecast(ctx, result) })
}

func (m *MultiNotifier) SendFailure(ctx context.Context, ticker string, err error) error {
	return m.each(func(n Notifier) error { return n.SendFailure(ctx, ticker, err) })
}

func (m *MultiNotifier) each(fn func(Notifier) error) error {
	var errs []error
	for _, ch := range m.channels {
		if err := fn(ch.notifier); err != nil {
			metrics.Notifications.WithLabelValues(ch.name, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
			continue
		}
		metrics.Notifications.WithLabelValues(ch.name, "success").Inc()
	}
	return errors.Join(errs...)
}

// New creates the appropriate notifier based on config.
func New(cfg *Config, logger *zap.Logger) (Notifier, error) {
	if !cfg.Enabled() {
		return &NoopNotifier{}, nil
	}

	multi := &MultiNotifier{}
	if cfg.Ntfy.Enabled {
		multi.Add("ntfy", NewNtfyClient(&cfg.Ntfy, logger))
	}
	if cfg.Telegram.Enabled {
		tg, err := NewTelegramNotifier(&cfg.Telegram, logger)
		if err != nil {
			return nil, err
		}
		multi.Add("telegram", tg)
	}
	return multi, nil
}
