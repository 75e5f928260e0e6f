package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/supportchat/backend/pkg/logger"
)

// Cache keeps recently assembled response packages keyed by message
// hash, so an identical turn within the TTL skips the whole pipeline.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Response cache initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) SetPackage(ctx context.Context, key string, pkg interface{}) error {
	data, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("failed to marshal package: %w", err)
	}

	if err = c.client.Set(ctx, fmt.Sprintf("turn:%s", key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set package cache: %w", err)
	}

	logger.Debug("Response package cached", zap.String("key", key))
	return nil
}

func (c *Cache) GetPackage(ctx context.Context, key string, pkg interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("turn:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get package cache: %w", err)
	}

	if err = json.Unmarshal(data, pkg); err != nil {
		return false, fmt.Errorf("failed to unmarshal package: %w", err)
	}

	logger.Debug("Response package cache hit", zap.String("key", key))
	return true, nil
}

// IncrementCounter tracks operational tallies (handoffs per reason and
// the like) that outlive a single process.
func (c *Cache) IncrementCounter(ctx context.Context, name string) error {
	return c.client.Incr(ctx, fmt.Sprintf("counter:%s", name)).Err()
}

func (c *Cache) GetCounter(ctx context.Context, name string) (int64, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("counter:%s", name)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
