package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"event-ticketing/internal/models"

	"github.com/go-redis/redis/v8"
)

const insightsKeyPrefix = "insights:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, eventID string) (*models.EventInsights, error) {
	data, err := c.client.Get(ctx, insightsKeyPrefix+eventID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var insights models.EventInsights
	if err := json.Unmarshal(data, &insights); err != nil {
		return nil, err
	}
	return &insights, nil
}

func (c *RedisCache) Set(ctx context.Context, eventID string, insights *models.EventInsights) error {
	data, err := json.Marshal(insights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, insightsKeyPrefix+eventID, data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, insightsKeyPrefix+eventID).Err()
}
