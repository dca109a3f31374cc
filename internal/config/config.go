package config

import (
	"os"
	"strconv"

	"github.com/vicente3000/Sistema-de-sensores/pkg/database"
	"github.com/vicente3000/Sistema-de-sensores/pkg/mqtt"
	"github.com/vicente3000/Sistema-de-sensores/pkg/redis"
)

// Config holds the monitor service configuration.
type Config struct {
	Database database.Config
	Redis    redis.Config
	MQTT     mqtt.Config

	HTTP struct {
		Addr string
	}

	Ingest struct {
		MaxBatchSize int    // batch requests above this are rejected wholesale
		MQTTEnabled  bool   // subscribe to the readings topic when true
		MQTTTopic    string // e.g. "greendata/+/readings"
	}

	Alerts struct {
		DedupSeconds int    // window for updating an alert in place
		Stream       string // Redis Stream for new alerts
		WebhookURL   string // optional, critica alerts only
	}

	Cache struct {
		RealtimeKeyPrefix string // latest-value key prefix, e.g. "greendata:latest:"
		RealtimeTTL       int    // seconds
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults that
// work for local development.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "greendata")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "greendata-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":3000")

	cfg.Ingest.MaxBatchSize = getEnvInt("INGEST_MAX_BATCH", 1000)
	cfg.Ingest.MQTTEnabled = getEnv("INGEST_MQTT_ENABLED", "") == "1"
	cfg.Ingest.MQTTTopic = getEnv("INGEST_MQTT_TOPIC", "greendata/+/readings")

	cfg.Alerts.DedupSeconds = getEnvInt("ALERTS_DEDUP_SECONDS", 60)
	cfg.Alerts.Stream = getEnv("ALERTS_STREAM", "greendata:alerts")
	cfg.Alerts.WebhookURL = getEnv("ALERTS_WEBHOOK_URL", "")

	cfg.Cache.RealtimeKeyPrefix = getEnv("CACHE_REALTIME_PREFIX", "greendata:latest:")
	cfg.Cache.RealtimeTTL = getEnvInt("CACHE_REALTIME_TTL", 60)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
