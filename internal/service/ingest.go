package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
)

// ErrValidation marks rejections the caller should report as a bad request
// rather than a server failure.
var ErrValidation = errors.New("invalid reading")

// RealtimeSetter caches the newest data point per channel.
type RealtimeSetter interface {
	SetLatest(ctx context.Context, event models.SensorDataEvent) error
}

// ReadingInput is a raw ingest payload. Ts accepts an ISO string, an epoch
// number, or nothing (defaults to now).
type ReadingInput struct {
	Plant      string      `json:"plant"`
	SensorType string      `json:"sensorType"`
	SensorID   string      `json:"sensorId"`
	Value      float64     `json:"value"`
	Ts         interface{} `json:"ts,omitempty"`
}

// IngestService validates readings, writes them to the time-series store,
// and dispatches the post-write side effects: realtime broadcast, latest
// value cache, and detached alert evaluation.
type IngestService struct {
	readings  repository.ReadingsRepository
	sink      AlertSink
	broadcast Broadcaster
	realtime  RealtimeSetter
	maxBatch  int
	logger    *zap.Logger

	now func() time.Time
}

// NewIngestService creates the ingest service. realtime may be nil.
func NewIngestService(
	readings repository.ReadingsRepository,
	sink AlertSink,
	broadcast Broadcaster,
	realtime RealtimeSetter,
	maxBatchSize int,
	logger *zap.Logger,
) *IngestService {
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	return &IngestService{
		readings:  readings,
		sink:      sink,
		broadcast: broadcast,
		realtime:  realtime,
		maxBatch:  maxBatchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest validates and writes one reading. A storage failure is returned
// loudly; alerting runs detached afterwards and cannot fail the write.
func (s *IngestService) Ingest(ctx context.Context, input ReadingInput) (*models.Reading, error) {
	reading, err := s.toReading(input)
	if err != nil {
		return nil, err
	}

	if err := s.readings.Append(ctx, *reading); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, *reading)
	return reading, nil
}

// IngestBatch validates and writes a batch. Oversized or partially invalid
// batches are rejected wholesale with zero points written.
func (s *IngestService) IngestBatch(ctx context.Context, inputs []ReadingInput) (int, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: readings are required", ErrValidation)
	}
	if len(inputs) > s.maxBatch {
		return 0, fmt.Errorf("%w: batch size %d exceeds maximum %d", ErrValidation, len(inputs), s.maxBatch)
	}

	readings := make([]models.Reading, 0, len(inputs))
	for i, input := range inputs {
		reading, err := s.toReading(input)
		if err != nil {
			return 0, fmt.Errorf("reading %d: %w", i, err)
		}
		readings = append(readings, *reading)
	}

	if err := s.readings.AppendBatch(ctx, readings); err != nil {
		return 0, err
	}

	for _, reading := range readings {
		s.afterWrite(ctx, reading)
	}
	return len(readings), nil
}

// afterWrite runs the best-effort side effects for a persisted reading.
func (s *IngestService) afterWrite(ctx context.Context, reading models.Reading) {
	event := models.SensorDataEvent{
		PlantID: reading.PlantID,
		Sensor:  reading.SensorType,
		TsISO:   reading.Timestamp.UTC().Format(time.RFC3339Nano),
		Value:   reading.Value,
	}

	if s.broadcast != nil {
		s.broadcast.EmitSensorData(event.PlantID, event.Sensor, event.TsISO, event.Value)
	}

	if s.realtime != nil {
		if err := s.realtime.SetLatest(ctx, event); err != nil {
			s.logger.Warn("Failed to cache latest reading",
				zap.String("plant_id", reading.PlantID),
				zap.String("sensor_type", reading.SensorType),
				zap.Error(err),
			)
		}
	}

	if s.sink != nil {
		// detached: the write already succeeded, alerting may fail freely
		go s.sink.Process(reading)
	}
}

func (s *IngestService) toReading(input ReadingInput) (*models.Reading, error) {
	if input.Plant == "" {
		return nil, fmt.Errorf("%w: plant is required", ErrValidation)
	}
	if input.SensorID == "" {
		return nil, fmt.Errorf("%w: sensorId is required", ErrValidation)
	}
	if !models.IsValidSensorType(input.SensorType) {
		return nil, fmt.Errorf("%w: unknown sensor type %q", ErrValidation, input.SensorType)
	}
	if math.IsNaN(input.Value) || math.IsInf(input.Value, 0) {
		return nil, fmt.Errorf("%w: value must be a finite number", ErrValidation)
	}

	ts, err := ParseTimestamp(input.Ts, s.now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return &models.Reading{
		PlantID:    input.Plant,
		SensorType: input.SensorType,
		SensorID:   input.SensorID,
		Value:      input.Value,
		Timestamp:  ts,
	}, nil
}

// ParseTimestamp resolves an optional ingest timestamp. A numeric value
// below 1e12 is taken as epoch seconds, otherwise epoch milliseconds; the
// heuristic is kept as-is for wire compatibility with existing producers.
func ParseTimestamp(ts interface{}, now func() time.Time) (time.Time, error) {
	switch v := ts.(type) {
	case nil:
		return now().UTC(), nil
	case float64:
		if v < 1e12 {
			return time.Unix(int64(v), 0).UTC(), nil
		}
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		if v < 1e12 {
			return time.Unix(v, 0).UTC(), nil
		}
		return time.UnixMilli(v).UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", ts)
	}
}
