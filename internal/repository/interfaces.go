package repository

import (
	"context"
	"time"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// ReadingsRepository is the append-only time-series store. Readings are
// partitioned by UTC calendar day; ranged reads walk the day partitions.
type ReadingsRepository interface {
	// Append writes a single point.
	Append(ctx context.Context, r models.Reading) error
	// AppendBatch writes all points in one transaction. With exactly one
	// point it behaves as Append. On failure the error covers the batch.
	AppendBatch(ctx context.Context, readings []models.Reading) error
	// ReadPartition returns all points for one UTC day, unordered.
	ReadPartition(ctx context.Context, plantID, sensorType string, day time.Time) ([]models.Reading, error)
	// ReadRange reads the day partitions overlapping [from, to] (capped at
	// maxDays, truncated not rejected) and filters points to the range,
	// inclusive on both ends.
	ReadRange(ctx context.Context, plantID, sensorType string, from, to time.Time, maxDays int) ([]models.Reading, error)
}

// AlertFilters narrows alert listing.
type AlertFilters struct {
	PlantID  string
	SensorID string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// AlertsRepository persists threshold-breach alerts.
type AlertsRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	// RefreshRecent updates the most recent alert for (sensorID, level) in
	// place, but only when its created_at falls inside the dedup window
	// ending at ts. Returns true when an alert was refreshed.
	RefreshRecent(ctx context.Context, sensorID string, level models.Level, value float64, ts time.Time, window time.Duration) (bool, error)
	List(ctx context.Context, filters AlertFilters) ([]models.Alert, error)
	UpdateStatus(ctx context.Context, alertID, status string) error
}

// RollupsRepository caches computed daily summaries.
type RollupsRepository interface {
	// Get returns (nil, nil) when no rollup is persisted for the day.
	Get(ctx context.Context, plantID, sensorType, day string) (*models.DailyRollup, error)
	// Put upserts a rollup; a concurrent double-compute is last-write-wins.
	Put(ctx context.Context, rollup *models.DailyRollup) error
}

// CatalogRepository resolves sensors and their configured thresholds.
// This service only ever reads the catalog.
type CatalogRepository interface {
	GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error)
	// GetThreshold returns (nil, nil) when the sensor has no threshold
	// configured; no threshold means no alert is ever possible.
	GetThreshold(ctx context.Context, sensorID string) (*models.Threshold, error)
}
