package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// PostgresRollupsRepository persists daily rollups (daily_rollups table).
type PostgresRollupsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresRollupsRepository creates the rollups repository.
func NewPostgresRollupsRepository(db *sql.DB, logger *zap.Logger) *PostgresRollupsRepository {
	return &PostgresRollupsRepository{
		db:     db,
		logger: logger,
	}
}

var _ RollupsRepository = (*PostgresRollupsRepository)(nil)

// Get returns the persisted rollup for a day, or (nil, nil) on a cache miss.
func (r *PostgresRollupsRepository) Get(ctx context.Context, plantID, sensorType, day string) (*models.DailyRollup, error) {
	query := `
		SELECT plant_id, sensor_type, day, min_value, avg_value, max_value, point_count
		FROM daily_rollups
		WHERE plant_id = $1 AND sensor_type = $2 AND day = $3
	`

	var rollup models.DailyRollup
	var minV, avgV, maxV sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, plantID, sensorType, day).Scan(
		&rollup.PlantID,
		&rollup.SensorType,
		&rollup.Day,
		&minV,
		&avgV,
		&maxV,
		&rollup.Count,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rollup for %s: %w", day, err)
	}

	if minV.Valid {
		rollup.Min = &minV.Float64
	}
	if avgV.Valid {
		rollup.Avg = &avgV.Float64
	}
	if maxV.Valid {
		rollup.Max = &maxV.Float64
	}

	return &rollup, nil
}

// Put upserts a rollup. Two concurrent computations of the same day write
// the same values; last-write-wins is safe here.
func (r *PostgresRollupsRepository) Put(ctx context.Context, rollup *models.DailyRollup) error {
	if rollup == nil {
		return fmt.Errorf("rollup is required")
	}

	query := `
		INSERT INTO daily_rollups (plant_id, sensor_type, day, min_value, avg_value, max_value, point_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (plant_id, sensor_type, day) DO UPDATE
		SET min_value = EXCLUDED.min_value,
		    avg_value = EXCLUDED.avg_value,
		    max_value = EXCLUDED.max_value,
		    point_count = EXCLUDED.point_count
	`

	_, err := r.db.ExecContext(ctx, query,
		rollup.PlantID,
		rollup.SensorType,
		rollup.Day,
		nullableFloat(rollup.Min),
		nullableFloat(rollup.Avg),
		nullableFloat(rollup.Max),
		rollup.Count,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rollup for %s: %w", rollup.Day, err)
	}

	return nil
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
