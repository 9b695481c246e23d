package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DaemonConfig holds daemon-specific configuration
type DaemonConfig struct {
	ConfigPath     string   // Path to analytics config YAML
	ForecastTimes  []string // HH:MM slots in Timezone (default: 09:45,12:00,15:30)
	Timezone       string   // Timezone (default: America/New_York)
	StateFile      string   // File to track the last completed slot
	RunOnStartup   bool     // Send a missed slot of today on startup
	RecordTime     string   // HH:MM to record the session, empty disables
	RecordDir      string   // Recording root directory
	MaxExpirations int      // Nearest expirations recorded per ticker (0 = all)
}

// LoadDaemonConfig loads configuration from environment variables
func LoadDaemonConfig() (*DaemonConfig, error) {
	cfg := &DaemonConfig{
		ConfigPath:     getEnvOrDefault("DAEMON_CONFIG_PATH", "/app/configs/default.yaml"),
		ForecastTimes:  splitList(getEnvOrDefault("DAEMON_FORECAST_TIMES", "09:45,12:00,15:30")),
		Timezone:       getEnvOrDefault("DAEMON_TIMEZONE", "America/New_York"),
		StateFile:      getEnvOrDefault("DAEMON_STATE_FILE", "/app/data/.daemon-state"),
		RunOnStartup:   getEnvBoolOrDefault("DAEMON_RUN_ON_STARTUP", true),
		RecordTime:     os.Getenv("DAEMON_RECORD_TIME"),
		RecordDir:      getEnvOrDefault("DAEMON_RECORD_DIR", "/app/data"),
		MaxExpirations: getEnvIntOrDefault("DAEMON_MAX_EXPIRATIONS", 5),
	}

	for _, slot := range cfg.ForecastTimes {
		if _, _, err := parseClock(slot); err != nil {
			return nil, fmt.Errorf("DAEMON_FORECAST_TIMES: %w", err)
		}
	}
	if cfg.RecordTime != "" {
		if _, _, err := parseClock(cfg.RecordTime); err != nil {
			return nil, fmt.Errorf("DAEMON_RECORD_TIME: %w", err)
		}
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
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
