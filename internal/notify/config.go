package notify

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds notification configuration for every channel.
type Config struct {
	Ntfy     NtfyConfig
	Telegram TelegramConfig
}

// NtfyConfig holds ntfy notification configuration.
type NtfyConfig struct {
	Enabled  bool   // Whether ntfy notifications are enabled
	Server   string // ntfy server URL (default: https://ntfy.sh)
	Topic    string // Topic name (required if enabled)
	Priority string // Message priority: min, low, default, high, urgent
	Tags     string // Comma-separated emoji tags (e.g., "chart_with_upwards_trend")
	Token    string // Optional access token for private topics
}

// TelegramConfig holds Telegram channel configuration.
type TelegramConfig struct {
	Enabled bool
	Token   string // Bot token from @BotFather
	ChatID  int64  // Channel or group the forecasts are posted to
}

// LoadConfig loads notification config from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Ntfy: NtfyConfig{
			Enabled:  getEnvBoolOrDefault("NTFY_ENABLED", false),
			Server:   getEnvOrDefault("NTFY_SERVER", "https://ntfy.sh"),
			Topic:    os.Getenv("NTFY_TOPIC"),
			Priority: getEnvOrDefault("NTFY_PRIORITY", "default"),
			Tags:     getEnvOrDefault("NTFY_TAGS", "chart_with_upwards_trend"),
			Token:    os.Getenv("NTFY_TOKEN"),
		},
		Telegram: TelegramConfig{
			Enabled: getEnvBoolOrDefault("TELEGRAM_ENABLED", false),
			Token:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %s", raw)
		}
		cfg.Telegram.ChatID = id
	}

	return cfg, nil
}

// Enabled reports whether any channel is switched on.
func (c *Config) Enabled() bool {
	return c.Ntfy.Enabled || c.Telegram.Enabled
}

// Validate checks configuration is valid for the enabled channels.
func (c *Config) Validate() error {
	if c.Ntfy.Enabled {
		if c.Ntfy.Topic == "" {
			return errors.New("NTFY_TOPIC is required when NTFY_ENABLED=true")
		}

		validPriorities := map[string]bool{
			"min": true, "low": true, "default": true, "high": true, "urgent": true,
		}
		if !validPriorities[c.Ntfy.Priority] {
			return fmt.Errorf("invalid NTFY_PRIORITY: %s (valid: min, low, default, high, urgent)", c.Ntfy.Priority)
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return errors.New("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED=true")
		}
		if c.Telegram.ChatID == 0 {
			return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_ENABLED=true")
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
