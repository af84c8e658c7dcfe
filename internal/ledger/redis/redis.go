// Package redis implements the ledger Client on a Redis server.
//
// Redis GET/SET are atomic per key, which is exactly the contract the
// registry needs. Values are plain byte strings; absence maps to redis.Nil.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

func init() {
	ledger.Register(ledger.TypeRedis, func(cfg ledger.Config) (ledger.Client, error) {
		return New(cfg.Redis)
	})
}

// Client is a Redis-backed ledger client.
type Client struct {
	rdb *goredis.Client
}

// New connects to the Redis server described by cfg. The connection is
// lazy; the first call (or IsAvailable) performs the actual dial.
func New(cfg ledger.RedisConfig) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis ledger requires an address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{rdb: rdb}, nil
}

// Name returns the backend type.
func (c *Client) Name() ledger.Type {
	return ledger.TypeRedis
}

// IsAvailable pings the server.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

// GetData fetches the value under key. A missing key yields nil, nil.
func (c *Client) GetData(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %v: %w", key, err, ledger.ErrUnavailable)
	}
	if len(val) == 0 {
		return nil, nil
	}
	return val, nil
}

// SetData overwrites the value under key with no expiry.
func (c *Client) SetData(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %v: %w", key, err, ledger.ErrUnavailable)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
