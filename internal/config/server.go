package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

type ServerConfig struct {
	Port       string
	ConfigPath string
	// ProviderMode selects live provider requests ("live") or recorded chains ("file")
	ProviderMode string
	DataDir      string
	DataDate     string
	// WebSocket configuration
	WSEnabled        bool
	WSStreamInterval time.Duration
	WSGroupPrefix    string
	// Server-sent regime watch stream
	WatchEnabled   bool
	WatchInterval  time.Duration
	WatchID        string
	MetricsEnabled bool
}

func LoadServerConfig() (*ServerConfig, error) {
	mode := getEnvOrDefault("PROVIDER_MODE", "live")
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	dataDate := getEnvOrDefault("DATA_DATE", "")

	if mode != "live" && mode != "file" {
		return nil, fmt.Errorf("invalid PROVIDER_MODE: %s (must be 'live' or 'file')", mode)
	}

	// Auto-detect latest recording if DATA_DATE is empty or "latest"
	if mode == "file" && (dataDate == "" || dataDate == "latest") {
		detected, err := detectLatestDate(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to detect latest date in %s: %w", dataDir, err)
		}
		dataDate = detected
	}

	wsInterval, err := time.ParseDuration(getEnvOrDefault("WS_STREAM_INTERVAL", "30s"))
	if err != nil {
		wsInterval = 30 * time.Second
	}

	watchInterval, err := time.ParseDuration(getEnvOrDefault("WATCH_INTERVAL", "60s"))
	if err != nil {
		watchInterval = 60 * time.Second
	}

	cfg := &ServerConfig{
		Port:             getEnvOrDefault("PORT", "8080"),
		ConfigPath:       getEnvOrDefault("CONFIG_PATH", ""),
		ProviderMode:     mode,
		DataDir:          dataDir,
		DataDate:         dataDate,
		WSEnabled:        getEnvOrDefault("WS_ENABLED", "true") == "true",
		WSStreamInterval: wsInterval,
		WSGroupPrefix:    getEnvOrDefault("WS_GROUP_PREFIX", "levels"),
		WatchEnabled:     getEnvOrDefault("WATCH_ENABLED", "true") == "true",
		WatchInterval:    watchInterval,
		WatchID:          getEnvOrDefault("WATCH_ID", "maxpower"),
		MetricsEnabled:   getEnvOrDefault("METRICS_ENABLED", "true") == "true",
	}

	return cfg, nil
}

// RecordingDir is the directory holding the recorded chains for DataDate
func (c *ServerConfig) RecordingDir() string {
	return filepath.Join(c.DataDir, c.DataDate)
}

// detectLatestDate scans the data directory for date folders and returns the most recent one
func detectLatestDate(dataDir string) (string, error) {
	datePattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", fmt.Errorf("reading data directory: %w", err)
	}

	var dates []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if datePattern.MatchString(name) {
			// Skip empty recordings
			subEntries, err := os.ReadDir(filepath.Join(dataDir, name))
			if err == nil && len(subEntries) > 0 {
				dates = append(dates, name)
			}
		}
	}

	if len(dates) == 0 {
		return "", fmt.Errorf("no date folders found in %s", dataDir)
	}

	// YYYY-MM-DD sorts lexicographically
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return dates[0], nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
