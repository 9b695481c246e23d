// Package cache memoises provider chain data per (ticker, expirations, time bucket).
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qwerty2498888/maxpowertrading/internal/config"
)

var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "maxpower:chain"

// Cache stores opaque values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Reset drops every entry for ticker, or all entries when ticker is empty.
	// It returns the number of entries removed.
	Reset(ctx context.Context, ticker string) (int, error)
	Close() error
}

// Key builds the memo key. Expirations are expected in request order; an empty
// list means the default expiration. now is truncated to bucket so that
// requests within the same bucket share an entry.
func Key(ticker string, expirations []string, now time.Time, bucket time.Duration) string {
	exps := "default"
	if len(expirations) > 0 {
		exps = strings.Join(expirations, ",")
	}
	var slot int64
	if bucket > 0 {
		slot = now.Truncate(bucket).Unix()
	} else {
		slot = now.Unix()
	}
	return fmt.Sprintf("%s:%s:%s:%d", keyPrefix, ticker, exps, slot)
}

func tickerPrefix(ticker string) string {
	if ticker == "" {
		return keyPrefix + ":"
	}
	return keyPrefix + ":" + ticker + ":"
}

// Open builds the cache backend selected by cfg.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "memory", "":
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
