package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateWindow = time.Hour

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// RateCounter counts requests per source address in fixed hourly windows.
type RateCounter struct {
	rdb *redis.Client
}

func NewRateCounter(rdb *redis.Client) *RateCounter {
	return &RateCounter{rdb: rdb}
}

// Incr bumps and returns the request count for the address. The counter key
// expires with the window, resetting the budget.
func (c *RateCounter) Incr(ctx context.Context, addr string) (int64, error) {
	key := "ratelimit:" + addr
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		c.rdb.Expire(ctx, key, rateWindow)
	}
	return n, nil
}
