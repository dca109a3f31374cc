package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// MemoryCatalogRepository is an in-memory CatalogRepository, used in tests
// and local runs without a database.
type MemoryCatalogRepository struct {
	mu         sync.RWMutex
	sensors    map[string]models.Sensor
	thresholds map[string]models.Threshold
}

// NewMemoryCatalogRepository creates an empty in-memory catalog.
func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		sensors:    make(map[string]models.Sensor),
		thresholds: make(map[string]models.Threshold),
	}
}

var _ CatalogRepository = (*MemoryCatalogRepository)(nil)

// PutSensor registers a sensor.
func (r *MemoryCatalogRepository) PutSensor(sensor models.Sensor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[sensor.SensorID] = sensor
}

// PutThreshold registers a threshold.
func (r *MemoryCatalogRepository) PutThreshold(threshold models.Threshold) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thresholds[threshold.SensorID] = threshold
}

// GetSensor resolves a sensor by id.
func (r *MemoryCatalogRepository) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sensor, ok := r.sensors[sensorID]
	if !ok {
		return nil, fmt.Errorf("sensor not found: %s", sensorID)
	}
	return &sensor, nil
}

// GetThreshold resolves a threshold by sensor id, (nil, nil) when absent.
func (r *MemoryCatalogRepository) GetThreshold(ctx context.Context, sensorID string) (*models.Threshold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	threshold, ok := r.thresholds[sensorID]
	if !ok {
		return nil, nil
	}
	return &threshold, nil
}
