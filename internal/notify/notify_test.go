package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

func testResult() *analytics.AnalysisResult {
	spot := 5002.0
	support := analytics.ScoredLevel{
		Level:      analytics.ConsolidatedLevel{Low: 4995, High: 4995, Side: analytics.SideSupport},
		Confidence: 95,
		Strength:   analytics.StrengthStrong,
		ZoneLow:    4990,
		ZoneHigh:   5000,
	}
	return &analytics.AnalysisResult{
		Ticker:       "^SPX",
		Snapshot:     analytics.ChainSnapshot{Ticker: "^SPX", Rows: []analytics.StrikeRow{{Strike: 4995}}, Spot: &spot},
		ScoredLevels: []analytics.ScoredLevel{support},
		Regime:       analytics.RegimeBullish,
		KeySupport:   &support,
	}
}

func TestNtfyClient_SendForecast(t *testing.T) {
	var gotTitle, gotTags, gotAuth, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &NtfyConfig{Enabled: true, Server: server.URL + "/", Topic: "levels", Priority: "default", Tags: "chart", Token: "tk"}
	client := NewNtfyClient(cfg, zap.NewNop())

	require.NoError(t, client.SendForecast(context.Background(), testResult()))

	assert.Equal(t, "/levels", gotPath)
	assert.Equal(t, "SPX | bullish, stabilizing | S 4,995", gotTitle)
	assert.Equal(t, "chart,green_circle", gotTags)
	assert.Equal(t, "Bearer tk", gotAuth)
	assert.Contains(t, gotBody, "Key support: 4,995")
}

func TestNtfyClient_FailureStatus(t *testing.T) {
	var gotPriority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("Priority")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := &NtfyConfig{Enabled: true, Server: server.URL, Topic: "levels", Priority: "low", Tags: "chart"}
	client := NewNtfyClient(cfg, zap.NewNop())

	assert.Error(t, client.SendFailure(context.Background(), "SPX", errors.New("boom")), "403 response")
	assert.Equal(t, "high", gotPriority, "failures go out with high priority")
}

func TestNtfyClient_Disabled(t *testing.T) {
	client := NewNtfyClient(&NtfyConfig{Enabled: false, Server: "http://127.0.0.1:0"}, zap.NewNop())
	assert.NoError(t, client.SendForecast(context.Background(), testResult()))
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifier_SendForecast(t *testing.T) {
	sender := &fakeSender{}
	n := newTelegramNotifier(sender, -100123, zap.NewNop())

	require.NoError(t, n.SendForecast(context.Background(), testResult()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.True(t, strings.HasPrefix(msg.Text, "<b>SPX | bullish, stabilizing | S 4,995</b>\n<pre>SPX forecast"), msg.Text)
	assert.True(t, strings.HasSuffix(msg.Text, "</pre>"), "pre block must be closed")
}

func TestTelegramNotifier_EscapesFailure(t *testing.T) {
	sender := &fakeSender{}
	n := newTelegramNotifier(sender, 1, zap.NewNop())

	require.NoError(t, n.SendFailure(context.Background(), "SPY", errors.New("status <502> & retry")))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "status &lt;502&gt; &amp; retry")
}

type countingNotifier struct {
	forecasts int
	err       error
}

func (c *countingNotifier) SendForecast(_ context.Context, _ *analytics.AnalysisResult) error {
	c.forecasts++
	return c.err
}

func (c *countingNotifier) SendFailure(_ context.Context, _ string, _ error) error {
	return c.err
}

func TestMultiNotifier_ContinuesAfterFailure(t *testing.T) {
	broken := &countingNotifier{err: errors.New("down")}
	healthy := &countingNotifier{}

	multi := &MultiNotifier{}
	multi.Add("ntfy", broken)
	multi.Add("telegram", healthy)

	err := multi.SendForecast(context.Background(), testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ntfy: down")
	assert.Equal(t, 1, healthy.forecasts, "healthy channel still receives the forecast")
}

func TestNew_Disabled(t *testing.T) {
	n, err := New(&Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &NoopNotifier{}, n)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"ntfy without topic", Config{Ntfy: NtfyConfig{Enabled: true, Priority: "default"}}, true},
		{"ntfy bad priority", Config{Ntfy: NtfyConfig{Enabled: true, Topic: "t", Priority: "loud"}}, true},
		{"ntfy ok", Config{Ntfy: NtfyConfig{Enabled: true, Topic: "t", Priority: "urgent"}}, false},
		{"telegram without token", Config{Telegram: TelegramConfig{Enabled: true, ChatID: 1}}, true},
		{"telegram without chat", Config{Telegram: TelegramConfig{Enabled: true, Token: "x"}}, true},
		{"telegram ok", Config{Telegram: TelegramConfig{Enabled: true, Token: "x", ChatID: -5}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_ChatID(t *testing.T) {
	t.Setenv("TELEGRAM_ENABLED", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, int64(-1001234), cfg.Telegram.ChatID)

	t.Setenv("TELEGRAM_CHAT_ID", "channel")
	_, err = LoadConfig()
	assert.Error(t, err, "non-numeric chat id")
}
