package service

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
	pkgredis "github.com/vicente3000/Sistema-de-sensores/pkg/redis"
)

// RedisAlertPublisher publishes new alerts to a Redis Stream so other
// services (notification pipelines, auditing) can consume them.
type RedisAlertPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisAlertPublisher creates the publisher.
func NewRedisAlertPublisher(client *redis.Client, stream string) *RedisAlertPublisher {
	return &RedisAlertPublisher{
		client: client,
		stream: stream,
	}
}

var _ AlertPublisher = (*RedisAlertPublisher)(nil)

// PublishAlert appends the alert event to the stream.
func (p *RedisAlertPublisher) PublishAlert(ctx context.Context, event models.AlertEvent) error {
	_, err := pkgredis.PublishJSONToStream(ctx, p.client, p.stream, event)
	return err
}
