package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares memo entries between processes. Values are stored
// zstd-compressed; option chains compress well.
type RedisCache struct {
	rdb     *redis.Client
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ Cache = (*RedisCache)(nil)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Verify connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	return newRedisCache(rdb)
}

func newRedisCache(rdb *redis.Client) (*RedisCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &RedisCache{rdb: rdb, encoder: enc, decoder: dec}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	value, err := c.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	compressed := c.encoder.EncodeAll(value, make([]byte, 0, len(value)/4))
	if err := c.rdb.Set(ctx, key, compressed, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Reset(ctx context.Context, ticker string) (int, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, tickerPrefix(ticker)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("deleting cache keys: %w", err)
	}
	return int(n), nil
}

func (c *RedisCache) Close() error {
	c.decoder.Close()
	_ = c.encoder.Close()
	return c.rdb.Close()
}
