package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

const dayLayout = "2006-01-02"

// PostgresReadingsRepository stores readings in a day-partitioned table:
// readings(plant_id, sensor_type, ymd, ts, sensor_id, value).
type PostgresReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresReadingsRepository creates the readings repository.
func NewPostgresReadingsRepository(db *sql.DB, logger *zap.Logger) *PostgresReadingsRepository {
	return &PostgresReadingsRepository{
		db:     db,
		logger: logger,
	}
}

var _ ReadingsRepository = (*PostgresReadingsRepository)(nil)

const insertReadingQuery = `
	INSERT INTO readings (plant_id, sensor_type, ymd, ts, sensor_id, value)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Append writes a single point.
func (r *PostgresReadingsRepository) Append(ctx context.Context, reading models.Reading) error {
	if reading.PlantID == "" {
		return fmt.Errorf("plant_id is required")
	}
	if reading.SensorID == "" {
		return fmt.Errorf("sensor_id is required")
	}

	ymd := utcDay(reading.Timestamp).Format(dayLayout)
	_, err := r.db.ExecContext(ctx, insertReadingQuery,
		reading.PlantID,
		reading.SensorType,
		ymd,
		reading.Timestamp,
		reading.SensorID,
		reading.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// AppendBatch writes all points in a single transaction. A failure rolls
// the whole batch back; partial application is never reported as success.
func (r *PostgresReadingsRepository) AppendBatch(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	if len(readings) == 1 {
		return r.Append(ctx, readings[0])
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertReadingQuery)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, reading := range readings {
		ymd := utcDay(reading.Timestamp).Format(dayLayout)
		if _, err := stmt.ExecContext(ctx,
			reading.PlantID,
			reading.SensorType,
			ymd,
			reading.Timestamp,
			reading.SensorID,
			reading.Value,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert batch of %d readings: %w", len(readings), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch of %d readings: %w", len(readings), err)
	}

	return nil
}

// ReadPartition returns all points for one UTC day, unordered.
func (r *PostgresReadingsRepository) ReadPartition(ctx context.Context, plantID, sensorType string, day time.Time) ([]models.Reading, error) {
	query := `
		SELECT ts, sensor_id, value
		FROM readings
		WHERE plant_id = $1 AND sensor_type = $2 AND ymd = $3
	`

	rows, err := r.db.QueryContext(ctx, query, plantID, sensorType, utcDay(day).Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", utcDay(day).Format(dayLayout), err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		reading := models.Reading{PlantID: plantID, SensorType: sensorType}
		if err := rows.Scan(&reading.Timestamp, &reading.SensorID, &reading.Value); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partition: %w", err)
	}

	return readings, nil
}

// ReadRange walks the day partitions overlapping [from, to] and filters
// points to the range. Both ends are inclusive. The partition list is
// capped at maxDays; a longer range is truncated, never rejected.
func (r *PostgresReadingsRepository) ReadRange(ctx context.Context, plantID, sensorType string, from, to time.Time, maxDays int) ([]models.Reading, error) {
	var out []models.Reading
	for _, day := range partitionDays(from, to, maxDays) {
		points, err := r.ReadPartition(ctx, plantID, sensorType, day)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			if p.Timestamp.Before(from) || p.Timestamp.After(to) {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// utcDay truncates a timestamp to its UTC calendar day.
func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// partitionDays lists the UTC days overlapping [from, to], capped at maxDays.
func partitionDays(from, to time.Time, maxDays int) []time.Time {
	start := utcDay(from)
	end := utcDay(to)

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if maxDays > 0 && days > maxDays {
		days = maxDays
	}

	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}
