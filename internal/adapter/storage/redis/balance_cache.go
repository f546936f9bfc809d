package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BalanceCache implements ports.BalanceCache using Redis. It only serves the
// non-locking read path; committed mutations invalidate the entry, so a
// stale value survives at most the TTL.
type BalanceCache struct {
	client *goredis.Client
	prefix string
}

// NewBalanceCache creates a new Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:",
	}
}

// Get retrieves a cached balance. Returns nil, nil on cache miss.
func (c *BalanceCache) Get(ctx context.Context, walletID uuid.UUID) (*decimal.Decimal, error) {
	val, err := c.client.Get(ctx, c.prefix+walletID.String()).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	balance, err := decimal.NewFromString(val)
	if err != nil {
		return nil, fmt.Errorf("parse cached balance: %w", err)
	}
	return &balance, nil
}

// Set stores a balance with TTL.
func (c *BalanceCache) Set(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+walletID.String(), balance.StringFixed(2), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}

// Invalidate removes a cached balance.
func (c *BalanceCache) Invalidate(ctx context.Context, walletID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+walletID.String()).Err(); err != nil {
		return fmt.Errorf("redis balance del: %w", err)
	}
	return nil
}
