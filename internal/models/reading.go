package models

import "time"

// Sensor types accepted by ingestion (aligned with the dashboard schema).
const (
	SensorTypeHumidity = "humidity"
	SensorTypePH       = "ph"
	SensorTypeTemp     = "temp"
	SensorTypeLux      = "lux"
)

var sensorTypes = map[string]bool{
	SensorTypeHumidity: true,
	SensorTypePH:       true,
	SensorTypeTemp:     true,
	SensorTypeLux:      true,
}

// IsValidSensorType reports whether t is a known sensor type.
func IsValidSensorType(t string) bool {
	return sensorTypes[t]
}

// Reading is a single sensor measurement. It is a message, not an entity:
// it is written once to the time-series store and evaluated once for alerts.
type Reading struct {
	PlantID    string    `json:"plant"`
	SensorType string    `json:"sensorType"`
	SensorID   string    `json:"sensorId"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"ts"`
}

// Sensor is a catalog entry (read-only for this service).
type Sensor struct {
	SensorID string `json:"sensor_id" db:"sensor_id"`
	PlantID  string `json:"plant_id" db:"plant_id"`
	Type     string `json:"type" db:"type"`
	Unit     string `json:"unit,omitempty" db:"unit"`
}

// Threshold holds the configured bounds for a sensor. Min/Max are pointers
// because a sensor may have only one bound configured.
type Threshold struct {
	SensorID   string   `json:"sensor_id" db:"sensor_id"`
	Min        *float64 `json:"min,omitempty" db:"min_value"`
	Max        *float64 `json:"max,omitempty" db:"max_value"`
	Hysteresis float64  `json:"hysteresis" db:"hysteresis"`
}
