package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// PostgresAlertsRepository persists alerts (alerts table).
type PostgresAlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresAlertsRepository creates the alerts repository.
func NewPostgresAlertsRepository(db *sql.DB, logger *zap.Logger) *PostgresAlertsRepository {
	return &PostgresAlertsRepository{
		db:     db,
		logger: logger,
	}
}

var _ AlertsRepository = (*PostgresAlertsRepository)(nil)

// Create inserts a new alert.
func (r *PostgresAlertsRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if alert.SensorID == "" {
		return fmt.Errorf("sensor_id is required")
	}

	query := `
		INSERT INTO alerts (
			alert_id, plant_id, sensor_id, sensor_type,
			value, level, status, message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.PlantID,
		alert.SensorID,
		alert.SensorType,
		alert.Value,
		string(alert.Level),
		alert.Status,
		alert.Message,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// RefreshRecent updates the most recent alert for (sensor_id, level) in
// place, conditioned on its created_at being inside the dedup window that
// ends at ts. The predicate lives in the statement itself so two racing
// readings cannot both observe "no recent alert" at this layer.
func (r *PostgresAlertsRepository) RefreshRecent(ctx context.Context, sensorID string, level models.Level, value float64, ts time.Time, window time.Duration) (bool, error) {
	if sensorID == "" {
		return false, fmt.Errorf("sensor_id is required")
	}

	query := `
		UPDATE alerts
		SET value = $3, updated_at = $4
		WHERE alert_id = (
			SELECT alert_id FROM alerts
			WHERE sensor_id = $1 AND level = $2
			ORDER BY created_at DESC
			LIMIT 1
		)
		AND created_at >= $5
	`

	result, err := r.db.ExecContext(ctx, query,
		sensorID,
		string(level),
		value,
		ts,
		ts.Add(-window),
	)
	if err != nil {
		return false, fmt.Errorf("failed to refresh alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read refresh result: %w", err)
	}

	return affected > 0, nil
}

// List returns alerts newest first, with optional plant/sensor/time filters.
// Limit defaults to 50 and is capped at 200.
func (r *PostgresAlertsRepository) List(ctx context.Context, filters AlertFilters) ([]models.Alert, error) {
	var where []string
	var args []interface{}
	argN := 1

	if filters.PlantID != "" {
		where = append(where, fmt.Sprintf("plant_id = $%d", argN))
		args = append(args, filters.PlantID)
		argN++
	}
	if filters.SensorID != "" {
		where = append(where, fmt.Sprintf("sensor_id = $%d", argN))
		args = append(args, filters.SensorID)
		argN++
	}
	if filters.From != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argN))
		args = append(args, *filters.From)
		argN++
	}
	if filters.To != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", argN))
		args = append(args, *filters.To)
		argN++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT alert_id, plant_id, sensor_id, sensor_type,
		       value, level, status, message, created_at, updated_at
		FROM alerts
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argN)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		var level string
		if err := rows.Scan(
			&alert.AlertID,
			&alert.PlantID,
			&alert.SensorID,
			&alert.SensorType,
			&alert.Value,
			&level,
			&alert.Status,
			&alert.Message,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alert.Level = models.Level(level)
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// statusTransitions maps a target status to the status it must come from.
var statusTransitions = map[string]string{
	models.StatusEnProgreso: models.StatusPendiente,
	models.StatusCompletado: models.StatusEnProgreso,
}

// UpdateStatus advances the alert workflow. Only the forward transitions
// pendiente -> en_progreso -> completado are allowed; the update is
// conditioned on the expected previous status so a stale client cannot
// skip or repeat a step.
func (r *PostgresAlertsRepository) UpdateStatus(ctx context.Context, alertID, status string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	previous, ok := statusTransitions[status]
	if !ok {
		return fmt.Errorf("invalid alert status: %s", status)
	}

	query := `
		UPDATE alerts
		SET status = $2, updated_at = $3
		WHERE alert_id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, alertID, status, time.Now().UTC(), previous)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read status update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert not found or not in status %s: %s", previous, alertID)
	}

	return nil
}
