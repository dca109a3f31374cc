package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
)

// fakeAlertsRepo mirrors the conditional-refresh contract of the Postgres
// repository against an in-memory slice.
type fakeAlertsRepo struct {
	mu     sync.Mutex
	alerts []*models.Alert

	createErr  error
	refreshErr error
}

func (f *fakeAlertsRepo) Create(ctx context.Context, alert *models.Alert) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *alert
	f.alerts = append(f.alerts, &copied)
	return nil
}

func (f *fakeAlertsRepo) RefreshRecent(ctx context.Context, sensorID string, level models.Level, value float64, ts time.Time, window time.Duration) (bool, error) {
	if f.refreshErr != nil {
		return false, f.refreshErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.Alert
	for _, a := range f.alerts {
		if a.SensorID != sensorID || a.Level != level {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil || latest.CreatedAt.Before(ts.Add(-window)) {
		return false, nil
	}
	latest.Value = value
	latest.UpdatedAt = ts
	return true, nil
}

func (f *fakeAlertsRepo) List(ctx context.Context, filters repository.AlertFilters) ([]models.Alert, error) {
	return nil, nil
}

func (f *fakeAlertsRepo) UpdateStatus(ctx context.Context, alertID, status string) error {
	return nil
}

func (f *fakeAlertsRepo) count(sensorID string, level models.Level) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alerts {
		if a.SensorID == sensorID && a.Level == level {
			n++
		}
	}
	return n
}

// fakeBroadcaster records emitted events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	data   []models.SensorDataEvent
	alerts []models.AlertEvent
}

func (f *fakeBroadcaster) EmitSensorData(plantID, sensorType, tsISO string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, models.SensorDataEvent{PlantID: plantID, Sensor: sensorType, TsISO: tsISO, Value: value})
}

func (f *fakeBroadcaster) EmitAlert(event models.AlertEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, event)
}

func (f *fakeBroadcaster) alertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func floatPtr(f float64) *float64 { return &f }

func setupAlertService(t *testing.T, dedupSeconds int) (*AlertService, *fakeAlertsRepo, *fakeBroadcaster, *repository.MemoryCatalogRepository) {
	t.Helper()

	catalog := repository.NewMemoryCatalogRepository()
	catalog.PutSensor(models.Sensor{SensorID: "sensor-1", PlantID: "plant-1", Type: "humidity"})
	catalog.PutThreshold(models.Threshold{SensorID: "sensor-1", Min: floatPtr(30), Max: floatPtr(70), Hysteresis: 0})

	alerts := &fakeAlertsRepo{}
	broadcaster := &fakeBroadcaster{}
	svc := NewAlertService(catalog, alerts, broadcaster, nil, nil, dedupSeconds, zap.NewNop())
	return svc, alerts, broadcaster, catalog
}

func reading(sensorID string, value float64, ts time.Time) models.Reading {
	return models.Reading{
		PlantID:    "plant-1",
		SensorType: "humidity",
		SensorID:   sensorID,
		Value:      value,
		Timestamp:  ts,
	}
}

func TestAlertService_DedupWithinWindow(t *testing.T) {
	svc, alerts, broadcaster, _ := setupAlertService(t, 5)
	base := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	svc.Process(reading("sensor-1", 85, base))
	svc.Process(reading("sensor-1", 86, base.Add(3*time.Second)))

	assert.Equal(t, 1, alerts.count("sensor-1", models.LevelCritica))
	assert.Equal(t, 1, broadcaster.alertCount(), "refresh must not broadcast again")

	// the surviving alert carries the refreshed value and timestamp
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, 86.0, alerts.alerts[0].Value)
	assert.Equal(t, base.Add(3*time.Second), alerts.alerts[0].UpdatedAt)
	assert.Equal(t, base, alerts.alerts[0].CreatedAt)
}

func TestAlertService_NewAlertAfterWindow(t *testing.T) {
	svc, alerts, broadcaster, _ := setupAlertService(t, 5)
	base := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	svc.Process(reading("sensor-1", 85, base))
	svc.Process(reading("sensor-1", 86, base.Add(6*time.Second)))

	assert.Equal(t, 2, alerts.count("sensor-1", models.LevelCritica))
	assert.Equal(t, 2, broadcaster.alertCount())
}

func TestAlertService_DifferentLevelsDoNotDedup(t *testing.T) {
	svc, alerts, _, _ := setupAlertService(t, 60)
	base := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	// 71 is grave (hysteresis 0 would make it critica; widen the band)
	catalog := repository.NewMemoryCatalogRepository()
	catalog.PutSensor(models.Sensor{SensorID: "sensor-1", PlantID: "plant-1", Type: "humidity"})
	catalog.PutThreshold(models.Threshold{SensorID: "sensor-1", Min: floatPtr(30), Max: floatPtr(70), Hysteresis: 5})
	svc.catalog = catalog

	svc.Process(reading("sensor-1", 71, base))
	svc.Process(reading("sensor-1", 80, base.Add(time.Second)))

	assert.Equal(t, 1, alerts.count("sensor-1", models.LevelGrave))
	assert.Equal(t, 1, alerts.count("sensor-1", models.LevelCritica))
}

func TestAlertService_NoThresholdNoAlert(t *testing.T) {
	svc, alerts, broadcaster, catalog := setupAlertService(t, 60)
	catalog.PutSensor(models.Sensor{SensorID: "sensor-bare", PlantID: "plant-1", Type: "temp"})

	svc.Process(reading("sensor-bare", 99999, time.Now()))

	assert.Empty(t, alerts.alerts)
	assert.Zero(t, broadcaster.alertCount())
}

func TestAlertService_InRangeIsNoOp(t *testing.T) {
	svc, alerts, broadcaster, _ := setupAlertService(t, 60)

	svc.Process(reading("sensor-1", 50, time.Now()))

	assert.Empty(t, alerts.alerts)
	assert.Zero(t, broadcaster.alertCount())
}

func TestAlertService_AlertFields(t *testing.T) {
	svc, alerts, broadcaster, _ := setupAlertService(t, 60)
	ts := time.Date(2025, 11, 8, 12, 30, 0, 0, time.UTC)

	svc.Process(reading("sensor-1", 85, ts))

	require.Len(t, alerts.alerts, 1)
	alert := alerts.alerts[0]
	assert.NotEmpty(t, alert.AlertID)
	assert.Equal(t, "plant-1", alert.PlantID)
	assert.Equal(t, models.LevelCritica, alert.Level)
	assert.Equal(t, models.StatusPendiente, alert.Status)
	assert.Equal(t, "Value outside threshold", alert.Message)

	require.Equal(t, 1, broadcaster.alertCount())
	event := broadcaster.alerts[0]
	assert.Equal(t, alert.AlertID, event.ID)
	assert.Equal(t, "plant-1", event.PlantID)
	assert.Equal(t, "humidity", event.SensorType)
	assert.Equal(t, models.LevelCritica, event.Level)
	assert.Equal(t, models.StatusPendiente, event.Status)
	assert.Equal(t, floatPtr(70.0), event.Threshold.Max)
	assert.Equal(t, ts.Format(time.RFC3339Nano), event.Ts)
}

func TestAlertService_GraveMessage(t *testing.T) {
	svc, alerts, _, catalog := setupAlertService(t, 60)
	catalog.PutThreshold(models.Threshold{SensorID: "sensor-1", Min: floatPtr(30), Max: floatPtr(70), Hysteresis: 10})

	svc.Process(reading("sensor-1", 75, time.Now()))

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, models.LevelGrave, alerts.alerts[0].Level)
	assert.Equal(t, "Value near threshold", alerts.alerts[0].Message)
}

func TestAlertService_UnknownSensorSwallowed(t *testing.T) {
	svc, alerts, broadcaster, catalog := setupAlertService(t, 60)
	// threshold exists but the sensor is missing from the directory
	catalog.PutThreshold(models.Threshold{SensorID: "ghost", Max: floatPtr(10)})

	// must not panic and must not surface an error
	svc.Process(reading("ghost", 50, time.Now()))

	assert.Empty(t, alerts.alerts)
	assert.Zero(t, broadcaster.alertCount())
}

func TestAlertService_ConcurrentSameSensorSingleAlert(t *testing.T) {
	svc, alerts, _, _ := setupAlertService(t, 60)
	base := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Process(reading("sensor-1", 85, base.Add(time.Duration(i)*time.Millisecond)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, alerts.count("sensor-1", models.LevelCritica))
}
