package models

import "time"

// Level is the severity derived from comparing a reading to its threshold.
type Level string

const (
	LevelNone    Level = ""
	LevelGrave   Level = "grave"
	LevelCritica Level = "critica"
)

// Alert status lifecycle. New alerts are always created pendiente; the
// transition to en_progreso and completado is driven externally.
const (
	StatusPendiente  = "pendiente"
	StatusEnProgreso = "en_progreso"
	StatusCompletado = "completado"
)

// Alert is a persisted threshold breach (alerts table).
type Alert struct {
	AlertID    string    `json:"alert_id" db:"alert_id"`
	PlantID    string    `json:"plant_id" db:"plant_id"`
	SensorID   string    `json:"sensor_id" db:"sensor_id"`
	SensorType string    `json:"sensor_type" db:"sensor_type"`
	Value      float64   `json:"value" db:"value"`
	Level      Level     `json:"level" db:"level"`
	Status     string    `json:"status" db:"status"`
	Message    string    `json:"message" db:"message"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ThresholdSnapshot is the threshold state captured in a broadcast payload.
type ThresholdSnapshot struct {
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Hysteresis float64  `json:"hysteresis"`
}

// AlertEvent is the realtime payload emitted on alerts:new.
type AlertEvent struct {
	ID         string            `json:"id"`
	PlantID    string            `json:"plantId"`
	SensorID   string            `json:"sensorId"`
	SensorType string            `json:"sensorType"`
	Value      float64           `json:"value"`
	Ts         string            `json:"ts"`
	Threshold  ThresholdSnapshot `json:"threshold"`
	Level      Level             `json:"level"`
	Status     string            `json:"status"`
}

// SensorDataEvent is the realtime payload emitted on sensor:data.
type SensorDataEvent struct {
	PlantID string  `json:"plantId"`
	Sensor  string  `json:"sensor"`
	TsISO   string  `json:"tsISO"`
	Value   float64 `json:"value"`
}
