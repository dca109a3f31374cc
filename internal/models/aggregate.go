package models

import "time"

// Step is the fixed bucket width for aggregation queries.
type Step string

const (
	Step1m Step = "1m"
	Step5m Step = "5m"
	Step1h Step = "1h"
)

// Duration returns the bucket width, or 0 for an unknown step.
func (s Step) Duration() time.Duration {
	switch s {
	case Step1m:
		return time.Minute
	case Step5m:
		return 5 * time.Minute
	case Step1h:
		return time.Hour
	}
	return 0
}

// Bucket is one fixed-step aggregation result. Buckets with zero points are
// never emitted, so Count is always >= 1.
type Bucket struct {
	Timestamp time.Time `json:"timestamp"`
	Avg       float64   `json:"avg"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Count     int64     `json:"count"`
}

// DailyRollup is a persisted per-day summary (daily_rollups table).
// Min/Avg/Max are nil for days with no points.
type DailyRollup struct {
	PlantID    string   `json:"plant_id" db:"plant_id"`
	SensorType string   `json:"sensor_type" db:"sensor_type"`
	Day        string   `json:"day" db:"day"` // UTC calendar day, YYYY-MM-DD
	Min        *float64 `json:"min" db:"min_value"`
	Avg        *float64 `json:"avg" db:"avg_value"`
	Max        *float64 `json:"max" db:"max_value"`
	Count      int64    `json:"count" db:"point_count"`
}
