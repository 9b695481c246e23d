package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

type Config struct {
	Provider   ProviderConfig                             `mapstructure:"provider"`
	Fetch      FetchConfig                                `mapstructure:"fetch"`
	Cache      CacheConfig                                `mapstructure:"cache"`
	Tickers    []string                                   `mapstructure:"tickers"`
	Classes    map[string]analytics.InstrumentClassConfig `mapstructure:"classes"`
	TickerMap  map[string]string                          `mapstructure:"ticker_classes"`
	Constants  analytics.Constants                        `mapstructure:"constants"`
	Scoring    ScoringConfig                              `mapstructure:"scoring"`
	Indicators IndicatorConfig                            `mapstructure:"indicators"`
	Logging    LoggingConfig                              `mapstructure:"logging"`
}

type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	FallbackURL   string `mapstructure:"fallback_url"`
	UserAgent     string `mapstructure:"user_agent"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelay    int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type FetchConfig struct {
	Workers int `mapstructure:"workers"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"` // "memory" or "redis"
	TTLSec        int    `mapstructure:"ttl_sec"`
	BucketSec     int    `mapstructure:"bucket_sec"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type ScoringConfig struct {
	ProximityPct float64 `mapstructure:"proximity_pct"`
}

type IndicatorConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Interval      string `mapstructure:"interval"`
	Range         string `mapstructure:"range"`
	MovingAverage int    `mapstructure:"moving_average_period"`
	RSIPeriod     int    `mapstructure:"rsi_period"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("provider.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("provider.fallback_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.user_agent", "Mozilla/5.0 (compatible; maxpower/1.0)")
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("provider.retry_count", 3)
	v.SetDefault("provider.retry_delay_sec", 1)
	v.SetDefault("provider.rate_per_second", 4)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_sec", 300)
	v.SetDefault("cache.bucket_sec", 60)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("tickers", DefaultTickers)
	v.SetDefault("constants.net_gex_scale", analytics.DefaultNetGexScale)
	v.SetDefault("constants.absolute_gamma_scale", analytics.DefaultAbsoluteGammaScale)
	v.SetDefault("scoring.proximity_pct", analytics.DefaultProximityPct)
	v.SetDefault("indicators.enabled", true)
	v.SetDefault("indicators.interval", "5m")
	v.SetDefault("indicators.range", "1d")
	v.SetDefault("indicators.moving_average_period", 20)
	v.SetDefault("indicators.rsi_period", 14)
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	for name, class := range DefaultClasses {
		prefix := "classes." + string(name) + "."
		v.SetDefault(prefix+"window_band", class.WindowBand)
		v.SetDefault(prefix+"resistance_zone_lower_pct", class.ResistanceZoneLowerPct)
		v.SetDefault(prefix+"resistance_zone_upper_pct", class.ResistanceZoneUpperPct)
		v.SetDefault(prefix+"support_zone_lower_pct", class.SupportZoneLowerPct)
		v.SetDefault(prefix+"support_zone_upper_pct", class.SupportZoneUpperPct)
		v.SetDefault(prefix+"merge_tolerance", class.MergeTolerance)
	}
	for ticker, class := range DefaultTickerClasses {
		v.SetDefault("ticker_classes."+strings.ToLower(ticker), string(class))
	}

	// Environment variable support
	v.SetEnvPrefix("MAXPOWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind secrets to env vars
	_ = v.BindEnv("cache.redis_password", "MAXPOWER_REDIS_PASSWORD")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.Provider.RatePerSecond < 1 {
		return fmt.Errorf("rate_per_second must be >= 1")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %s (must be 'memory' or 'redis')", c.Cache.Backend)
	}
	return ValidateInstruments(c.Tickers, c.Classes, c.TickerMap)
}

// ClassFor resolves the instrument class of a ticker. Unmapped tickers are equities.
func (c *Config) ClassFor(ticker string) (Class, analytics.InstrumentClassConfig) {
	name := ClassEquity
	if mapped, ok := c.TickerMap[strings.ToLower(analytics.DisplayTicker(ticker))]; ok {
		name = Class(mapped)
	}
	if class, ok := c.Classes[string(name)]; ok {
		return name, class
	}
	return name, DefaultClasses[name]
}
