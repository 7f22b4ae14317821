// services/fee_guard.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const feeKeyPrefix = "coindesk:fee:"

// FeeGuard records which fee intervals were already charged so a retried
// request cannot debit the same boundary twice.
type FeeGuard interface {
	// Claim reserves key and reports false if it was already taken.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisFeeGuard is a FeeGuard backed by SETNX. A nil guard or a guard without
// a client claims every key.
type RedisFeeGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisFeeGuard(rdb *redis.Client, ttl time.Duration) *RedisFeeGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisFeeGuard{
		rdb: rdb,
		ttl: ttl,
	}
}

func (g *RedisFeeGuard) Claim(ctx context.Context, key string) (bool, error) {
	if g == nil || g.rdb == nil || key == "" {
		return true, nil
	}
	ok, err := g.rdb.SetNX(ctx, feeKeyPrefix+key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("fee guard setnx: %w", err)
	}
	return ok, nil
}

func (g *RedisFeeGuard) Release(ctx context.Context, key string) error {
	if g == nil || g.rdb == nil || key == "" {
		return nil
	}
	if err := g.rdb.Del(ctx, feeKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("fee guard del: %w", err)
	}
	return nil
}
