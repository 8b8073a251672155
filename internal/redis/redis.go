package redis

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Client wraps a redis connection used as a distributed lock, so that two
// runner replicas never deliver the same result concurrently.
type Client struct {
	redisClient *redis.Client
}

func NewClient(dsn string) (*Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	return &Client{redisClient: redis.NewClient(opts)}, nil
}

// Lock takes the key via SetNX; false means someone else holds it.
func (c *Client) Lock(ctx context.Context, lockKey string, lockTimeDuration time.Duration) (result bool, err error) {
	result, err = c.redisClient.SetNX(ctx, lockKey, 1, lockTimeDuration).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

func (c *Client) Unlock(ctx context.Context, lockKey string) (err error) {
	return c.redisClient.Del(ctx, lockKey).Err()
}

func (c *Client) Close() (err error) {
	return c.redisClient.Close()
}

func (c *Client) Ping(ctx context.Context) (err error) {
	return c.redisClient.Ping(ctx).Err()
}
