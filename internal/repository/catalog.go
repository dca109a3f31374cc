package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// PostgresCatalogRepository reads the sensor directory and threshold store.
// Plant/sensor/threshold CRUD is owned by another service; this side only
// ever looks rows up.
type PostgresCatalogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresCatalogRepository creates the catalog repository.
func NewPostgresCatalogRepository(db *sql.DB, logger *zap.Logger) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db:     db,
		logger: logger,
	}
}

var _ CatalogRepository = (*PostgresCatalogRepository)(nil)

// GetSensor resolves a sensor to its owning plant and type.
func (r *PostgresCatalogRepository) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("sensor_id is required")
	}

	query := `
		SELECT sensor_id, plant_id, type, COALESCE(unit, '')
		FROM sensors
		WHERE sensor_id = $1
	`

	var sensor models.Sensor
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(
		&sensor.SensorID,
		&sensor.PlantID,
		&sensor.Type,
		&sensor.Unit,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sensor not found: %s", sensorID)
		}
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}

	return &sensor, nil
}

// GetThreshold returns the sensor's threshold, or (nil, nil) when none is
// configured.
func (r *PostgresCatalogRepository) GetThreshold(ctx context.Context, sensorID string) (*models.Threshold, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("sensor_id is required")
	}

	query := `
		SELECT sensor_id, min_value, max_value, COALESCE(hysteresis, 0)
		FROM thresholds
		WHERE sensor_id = $1
	`

	var threshold models.Threshold
	var minV, maxV sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(
		&threshold.SensorID,
		&minV,
		&maxV,
		&threshold.Hysteresis,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}

	if minV.Valid {
		threshold.Min = &minV.Float64
	}
	if maxV.Valid {
		threshold.Max = &maxV.Float64
	}

	return &threshold, nil
}
