package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

func testReading(sensorID string, value float64, ts time.Time) models.Reading {
	return models.Reading{
		PlantID:    "plant-1",
		SensorType: "humidity",
		SensorID:   sensorID,
		Value:      value,
		Timestamp:  ts,
	}
}

func newReadingsRepo(t *testing.T) (*PostgresReadingsRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewPostgresReadingsRepository(db, zap.NewNop())
	return repo, mock, func() { db.Close() }
}

func TestReadingsAppend(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	ts := time.Date(2025, 11, 8, 23, 59, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WithArgs("plant-1", "humidity", "2025-11-08", ts, "sensor-1", 42.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), testReading("sensor-1", 42.5, ts))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsAppend_PartitionKeyIsUTCDay(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	// 23:30 in UTC-2 is already the next UTC day
	loc := time.FixedZone("UTC-2", -2*3600)
	ts := time.Date(2025, 11, 8, 23, 30, 0, 0, loc)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WithArgs("plant-1", "humidity", "2025-11-09", ts, "sensor-1", 1.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), testReading("sensor-1", 1.0, ts))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsAppend_MissingIdentity(t *testing.T) {
	repo, _, done := newReadingsRepo(t)
	defer done()

	r := testReading("sensor-1", 1.0, time.Now())
	r.PlantID = ""
	assert.Error(t, repo.Append(context.Background(), r))

	r = testReading("", 1.0, time.Now())
	assert.Error(t, repo.Append(context.Background(), r))
}

func TestReadingsAppendBatch(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	ts := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO readings"))
	prep.ExpectExec().
		WithArgs("plant-1", "humidity", "2025-11-08", ts, "sensor-1", 10.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("plant-1", "humidity", "2025-11-08", ts.Add(time.Minute), "sensor-2", 20.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := []models.Reading{
		testReading("sensor-1", 10.0, ts),
		testReading("sensor-2", 20.0, ts.Add(time.Minute)),
	}
	err := repo.AppendBatch(context.Background(), batch)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsAppendBatch_FailureRollsBack(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	ts := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO readings"))
	prep.ExpectExec().
		WithArgs("plant-1", "humidity", "2025-11-08", ts, "sensor-1", 10.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("plant-1", "humidity", "2025-11-08", ts.Add(time.Minute), "sensor-2", 20.0).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	batch := []models.Reading{
		testReading("sensor-1", 10.0, ts),
		testReading("sensor-2", 20.0, ts.Add(time.Minute)),
	}
	err := repo.AppendBatch(context.Background(), batch)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsAppendBatch_SingleSkipsTransaction(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	ts := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO readings")).
		WithArgs("plant-1", "humidity", "2025-11-08", ts, "sensor-1", 10.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendBatch(context.Background(), []models.Reading{testReading("sensor-1", 10.0, ts)})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsReadPartition(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	ts1 := time.Date(2025, 11, 8, 6, 0, 0, 0, time.UTC)
	ts2 := time.Date(2025, 11, 8, 7, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"ts", "sensor_id", "value"}).
		AddRow(ts1, "sensor-1", 10.0).
		AddRow(ts2, "sensor-2", 20.0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM readings")).
		WithArgs("plant-1", "humidity", "2025-11-08").
		WillReturnRows(rows)

	readings, err := repo.ReadPartition(context.Background(), "plant-1", "humidity", ts1)

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "plant-1", readings[0].PlantID)
	assert.Equal(t, "humidity", readings[0].SensorType)
	assert.Equal(t, "sensor-1", readings[0].SensorID)
	assert.Equal(t, 10.0, readings[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingsReadRange_InclusiveAndFiltered(t *testing.T) {
	repo, mock, done := newReadingsRepo(t)
	defer done()

	from := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)
	to := time.Date(2025, 11, 9, 10, 0, 0, 0, time.UTC)

	day1 := sqlmock.NewRows([]string{"ts", "sensor_id", "value"}).
		AddRow(from.Add(-time.Second), "sensor-1", 1.0). // before from, dropped
		AddRow(from, "sensor-1", 2.0)                    // exactly from, kept
	day2 := sqlmock.NewRows([]string{"ts", "sensor_id", "value"}).
		AddRow(to, "sensor-1", 3.0).                  // exactly to, kept
		AddRow(to.Add(time.Second), "sensor-1", 4.0) // after to, dropped

	mock.ExpectQuery(regexp.QuoteMeta("FROM readings")).
		WithArgs("plant-1", "humidity", "2025-11-08").
		WillReturnRows(day1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM readings")).
		WithArgs("plant-1", "humidity", "2025-11-09").
		WillReturnRows(day2)

	readings, err := repo.ReadRange(context.Background(), "plant-1", "humidity", from, to, 31)

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 2.0, readings[0].Value)
	assert.Equal(t, 3.0, readings[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartitionDays(t *testing.T) {
	from := time.Date(2025, 11, 8, 23, 0, 0, 0, time.UTC)
	to := time.Date(2025, 11, 10, 1, 0, 0, 0, time.UTC)

	days := partitionDays(from, to, 31)

	require.Len(t, days, 3)
	assert.Equal(t, "2025-11-08", days[0].Format(dayLayout))
	assert.Equal(t, "2025-11-09", days[1].Format(dayLayout))
	assert.Equal(t, "2025-11-10", days[2].Format(dayLayout))
}

func TestPartitionDays_CapTruncates(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	days := partitionDays(from, to, 31)

	require.Len(t, days, 31)
	assert.Equal(t, from, days[0])
}

func TestPartitionDays_SameDay(t *testing.T) {
	day := time.Date(2025, 11, 8, 12, 0, 0, 0, time.UTC)

	days := partitionDays(day, day, 31)

	require.Len(t, days, 1)
	assert.Equal(t, "2025-11-08", days[0].Format(dayLayout))
}
