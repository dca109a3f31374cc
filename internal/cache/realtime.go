package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// RealtimeCache keeps the latest reading per (plant, sensorType) in Redis
// with a short TTL, so dashboards can show current values without touching
// the time-series store.
type RealtimeCache struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewRealtimeCache creates the cache manager.
func NewRealtimeCache(redisClient *redis.Client, keyPrefix string, ttlSeconds int, logger *zap.Logger) *RealtimeCache {
	return &RealtimeCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         time.Duration(ttlSeconds) * time.Second,
		logger:      logger,
	}
}

// key builds the cache key, e.g. "greendata:latest:plant-1:humidity".
func (c *RealtimeCache) key(plantID, sensorType string) string {
	return fmt.Sprintf("%s%s:%s", c.keyPrefix, plantID, sensorType)
}

// SetLatest stores the latest data point for a plant/sensor-type channel.
func (c *RealtimeCache) SetLatest(ctx context.Context, event models.SensorDataEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime data: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.key(event.PlantID, event.Sensor), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set realtime data: %w", err)
	}

	return nil
}

// GetLatest returns the latest data point, or an error when none is cached
// (expired TTL means the channel has gone quiet).
func (c *RealtimeCache) GetLatest(ctx context.Context, plantID, sensorType string) (*models.SensorDataEvent, error) {
	val, err := c.redisClient.Get(ctx, c.key(plantID, sensorType)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("realtime data not found: %s:%s", plantID, sensorType)
		}
		return nil, fmt.Errorf("failed to get realtime data: %w", err)
	}

	var event models.SensorDataEvent
	if err := json.Unmarshal([]byte(val), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime data: %w", err)
	}

	return &event, nil
}
