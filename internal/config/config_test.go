package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "greendata", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "greendata-monitor", cfg.MQTT.ClientID)

	assert.Equal(t, ":3000", cfg.HTTP.Addr)

	assert.Equal(t, 1000, cfg.Ingest.MaxBatchSize)
	assert.False(t, cfg.Ingest.MQTTEnabled)
	assert.Equal(t, "greendata/+/readings", cfg.Ingest.MQTTTopic)

	assert.Equal(t, 60, cfg.Alerts.DedupSeconds)
	assert.Equal(t, "greendata:alerts", cfg.Alerts.Stream)
	assert.Empty(t, cfg.Alerts.WebhookURL)

	assert.Equal(t, "greendata:latest:", cfg.Cache.RealtimeKeyPrefix)
	assert.Equal(t, 60, cfg.Cache.RealtimeTTL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("INGEST_MAX_BATCH", "250")
	t.Setenv("INGEST_MQTT_ENABLED", "1")
	t.Setenv("ALERTS_DEDUP_SECONDS", "120")
	t.Setenv("ALERTS_WEBHOOK_URL", "https://hooks.example.com/alerts")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 250, cfg.Ingest.MaxBatchSize)
	assert.True(t, cfg.Ingest.MQTTEnabled)
	assert.Equal(t, 120, cfg.Alerts.DedupSeconds)
	assert.Equal(t, "https://hooks.example.com/alerts", cfg.Alerts.WebhookURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MalformedIntFallsBack(t *testing.T) {
	t.Setenv("INGEST_MAX_BATCH", "lots")
	t.Setenv("ALERTS_DEDUP_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Ingest.MaxBatchSize)
	assert.Equal(t, 60, cfg.Alerts.DedupSeconds)
}
