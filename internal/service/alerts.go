package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/evaluator"
	"github.com/vicente3000/Sistema-de-sensores/internal/models"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
)

// Broadcaster delivers realtime events to live subscribers.
type Broadcaster interface {
	EmitSensorData(plantID, sensorType, tsISO string, value float64)
	EmitAlert(event models.AlertEvent)
}

// AlertPublisher pushes new alerts to downstream consumers (Redis Stream).
type AlertPublisher interface {
	PublishAlert(ctx context.Context, event models.AlertEvent) error
}

// Notifier delivers alerts to an external endpoint.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, event models.AlertEvent) error
}

// AlertSink is the boundary between ingestion and alerting. Process never
// reports failure to its caller: losing an alert is preferable to failing
// the measurement write that triggered it.
type AlertSink interface {
	Process(reading models.Reading)
}

// lockShards bounds the lock table; sensors hash onto a fixed set of
// mutexes, so memory stays constant no matter how many sensors report.
const lockShards = 64

// AlertService turns per-reading severity computations into at most one
// alert state change and at most one broadcast.
type AlertService struct {
	catalog   repository.CatalogRepository
	alerts    repository.AlertsRepository
	broadcast Broadcaster
	publisher AlertPublisher
	notifier  Notifier
	window    time.Duration
	logger    *zap.Logger

	locks [lockShards]sync.Mutex
}

// NewAlertService creates the alert service. publisher and notifier may be
// nil; dedupSeconds below zero falls back to the 60s default.
func NewAlertService(
	catalog repository.CatalogRepository,
	alerts repository.AlertsRepository,
	broadcast Broadcaster,
	publisher AlertPublisher,
	notifier Notifier,
	dedupSeconds int,
	logger *zap.Logger,
) *AlertService {
	if dedupSeconds <= 0 {
		dedupSeconds = 60
	}
	return &AlertService{
		catalog:   catalog,
		alerts:    alerts,
		broadcast: broadcast,
		publisher: publisher,
		notifier:  notifier,
		window:    time.Duration(dedupSeconds) * time.Second,
		logger:    logger,
	}
}

var _ AlertSink = (*AlertService)(nil)

// Process evaluates one reading. Every failure is swallowed here and only
// logged; ingestion must never block or fail on alerting.
func (s *AlertService) Process(reading models.Reading) {
	if err := s.process(context.Background(), reading); err != nil {
		s.logger.Warn("Alert evaluation failed",
			zap.String("sensor_id", reading.SensorID),
			zap.Float64("value", reading.Value),
			zap.Error(err),
		)
	}
}

func (s *AlertService) process(ctx context.Context, reading models.Reading) error {
	threshold, err := s.catalog.GetThreshold(ctx, reading.SensorID)
	if err != nil {
		return fmt.Errorf("threshold lookup: %w", err)
	}
	if threshold == nil {
		// no threshold configured, no alert possible
		return nil
	}

	level := evaluator.Severity(reading.Value, *threshold)
	if level == models.LevelNone {
		// in-range readings never auto-resolve existing alerts
		return nil
	}

	sensor, err := s.catalog.GetSensor(ctx, reading.SensorID)
	if err != nil {
		return fmt.Errorf("sensor lookup: %w", err)
	}

	// Serialize the check-then-act per (sensor, level) so two concurrent
	// readings cannot both create an alert inside the window. The refresh
	// statement carries the same window predicate as a second line of
	// defense at the storage layer.
	mu := s.lockFor(reading.SensorID, level)
	mu.Lock()
	defer mu.Unlock()

	refreshed, err := s.alerts.RefreshRecent(ctx, reading.SensorID, level, reading.Value, reading.Timestamp, s.window)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if refreshed {
		// continuation of an existing alert: updated in place, no broadcast
		s.logger.Debug("Alert refreshed within dedup window",
			zap.String("sensor_id", reading.SensorID),
			zap.String("level", string(level)),
		)
		return nil
	}

	alert := &models.Alert{
		AlertID:    uuid.New().String(),
		PlantID:    sensor.PlantID,
		SensorID:   reading.SensorID,
		SensorType: reading.SensorType,
		Value:      reading.Value,
		Level:      level,
		Status:     models.StatusPendiente,
		Message:    alertMessage(level),
		CreatedAt:  reading.Timestamp,
		UpdatedAt:  reading.Timestamp,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	event := models.AlertEvent{
		ID:         alert.AlertID,
		PlantID:    alert.PlantID,
		SensorID:   alert.SensorID,
		SensorType: alert.SensorType,
		Value:      alert.Value,
		Ts:         reading.Timestamp.UTC().Format(time.RFC3339Nano),
		Threshold: models.ThresholdSnapshot{
			Min:        threshold.Min,
			Max:        threshold.Max,
			Hysteresis: threshold.Hysteresis,
		},
		Level:  level,
		Status: alert.Status,
	}

	s.broadcast.EmitAlert(event)

	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, event); err != nil {
			s.logger.Warn("Failed to publish alert to stream",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil && s.notifier.Enabled() && level == models.LevelCritica {
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Warn("Failed to deliver alert webhook",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("plant_id", alert.PlantID),
		zap.String("sensor_id", alert.SensorID),
		zap.String("level", string(level)),
		zap.Float64("value", alert.Value),
	)

	return nil
}

func (s *AlertService) lockFor(sensorID string, level models.Level) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sensorID))
	h.Write([]byte{0})
	h.Write([]byte(level))
	return &s.locks[h.Sum32()%lockShards]
}

func alertMessage(level models.Level) string {
	if level == models.LevelCritica {
		return "Value outside threshold"
	}
	return "Value near threshold"
}
