package monitor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/aggregate"
	"github.com/vicente3000/Sistema-de-sensores/internal/broadcast"
	"github.com/vicente3000/Sistema-de-sensores/internal/cache"
	"github.com/vicente3000/Sistema-de-sensores/internal/config"
	"github.com/vicente3000/Sistema-de-sensores/internal/consumer"
	"github.com/vicente3000/Sistema-de-sensores/internal/httpapi"
	"github.com/vicente3000/Sistema-de-sensores/internal/notify"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
	"github.com/vicente3000/Sistema-de-sensores/internal/service"
	"github.com/vicente3000/Sistema-de-sensores/pkg/database"
	"github.com/vicente3000/Sistema-de-sensores/pkg/mqtt"
	pkgredis "github.com/vicente3000/Sistema-de-sensores/pkg/redis"
)

// Service wires the whole monitor together: storage, evaluation, alerting,
// aggregation, broadcast and the HTTP/MQTT edges. Connections are owned
// here and handed down, never held as package state.
type Service struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	hub          *broadcast.Hub
	ingest       *service.IngestService
	alerts       *service.AlertService
	engine       *aggregate.Engine
	httpServer   *httpapi.Server
	mqttClient   *mqtt.Client
	mqttConsumer *consumer.MQTTConsumer
}

// New connects to Postgres and Redis and builds the full service graph.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := pkgredis.NewClient(&cfg.Redis)
	if err := pkgredis.Ping(context.Background(), redisClient); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	readingsRepo := repository.NewPostgresReadingsRepository(db, logger)
	alertsRepo := repository.NewPostgresAlertsRepository(db, logger)
	rollupsRepo := repository.NewPostgresRollupsRepository(db, logger)
	catalogRepo := repository.NewPostgresCatalogRepository(db, logger)

	hub := broadcast.NewHub(logger)
	realtime := cache.NewRealtimeCache(redisClient, cfg.Cache.RealtimeKeyPrefix, cfg.Cache.RealtimeTTL, logger)
	publisher := service.NewRedisAlertPublisher(redisClient, cfg.Alerts.Stream)
	notifier := notify.NewWebhookNotifier(cfg.Alerts.WebhookURL, logger)

	alertService := service.NewAlertService(
		catalogRepo,
		alertsRepo,
		hub,
		publisher,
		notifier,
		cfg.Alerts.DedupSeconds,
		logger,
	)

	ingestService := service.NewIngestService(
		readingsRepo,
		alertService,
		hub,
		realtime,
		cfg.Ingest.MaxBatchSize,
		logger,
	)

	engine := aggregate.NewEngine(readingsRepo, rollupsRepo, logger)

	handler := httpapi.NewHandler(ingestService, engine, alertsRepo, realtime, hub, db, redisClient, logger)
	router := httpapi.NewRouter(logger)
	router.Register(handler)
	httpServer := httpapi.NewServer(cfg.HTTP.Addr, router, logger)

	s := &Service{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
		hub:         hub,
		ingest:      ingestService,
		alerts:      alertService,
		engine:      engine,
		httpServer:  httpServer,
	}

	if cfg.Ingest.MQTTEnabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			db.Close()
			redisClient.Close()
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		s.mqttClient = mqttClient
		s.mqttConsumer = consumer.NewMQTTConsumer(mqttClient, ingestService, cfg.Ingest.MQTTTopic, cfg.MQTT.QoS, logger)
	}

	return s, nil
}

// Start runs the hub, the optional MQTT consumer and the HTTP server. It
// blocks until the HTTP server stops.
func (s *Service) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	if s.mqttConsumer != nil {
		go func() {
			if err := s.mqttConsumer.Start(ctx); err != nil {
				s.logger.Error("MQTT consumer stopped", zap.Error(err))
			}
		}()
	}

	return s.httpServer.Start()
}

// Stop shuts everything down in reverse order.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.httpServer.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if s.mqttConsumer != nil {
		s.mqttConsumer.Stop()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}

	return nil
}
