package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

// Telegram rejects messages longer than 4096 characters; the title and
// markup need some room on top of the body.
const telegramMaxBody = 3800

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts forecasts to a Telegram chat.
type TelegramNotifier struct {
	api     telegramSender
	chatID  int64
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegramNotifier authorizes the bot and returns a notifier for cfg.ChatID.
func NewTelegramNotifier(cfg *TelegramConfig, logger *zap.Logger) (*TelegramNotifier, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return newTelegramNotifier(api, cfg.ChatID, logger), nil
}

func newTelegramNotifier(api telegramSender, chatID int64, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(1), 3), // one message per second to a single chat
		logger:  logger,
	}
}

// SendForecast posts the forecast as a preformatted block so the level table stays aligned.
func (t *TelegramNotifier) SendForecast(ctx context.Context, result *analytics.AnalysisResult) error {
	body := FormatForecastMessage(result)
	if len(body) > telegramMaxBody {
		body = body[:telegramMaxBody]
	}
	return t.send(ctx, "<b>"+escapeHTML(FormatForecastTitle(result))+"</b>\n<pre>"+escapeHTML(body)+"</pre>")
}

func (t *TelegramNotifier) SendFailure(ctx context.Context, ticker string, err error) error {
	return t.send(ctx, "<b>"+escapeHTML(FormatFailureTitle(ticker))+"</b>\n"+escapeHTML(FormatFailureMessage(ticker, err)))
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	start := time.Now()
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn("failed to send telegram message",
			zap.Int64("chat_id", t.chatID),
			zap.Error(err),
		)
		return fmt.Errorf("sending telegram message: %w", err)
	}

	t.logger.Debug("telegram message sent",
		zap.Int64("chat_id", t.chatID),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
