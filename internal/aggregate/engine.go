package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
	"github.com/vicente3000/Sistema-de-sensores/internal/repository"
)

const (
	// MaxRangeDays caps the partitions scanned by a fixed-step query.
	MaxRangeDays = 31
	// MaxDailyDays caps the days returned by a daily rollup query.
	MaxDailyDays = 90

	dayLayout = "2006-01-02"
)

// Engine builds query-time views over the raw time-series store: fixed-step
// buckets (never cached, range/step combinations vary too much) and daily
// rollups (persisted once a day is fully in the past).
type Engine struct {
	readings repository.ReadingsRepository
	rollups  repository.RollupsRepository
	logger   *zap.Logger

	now func() time.Time
}

// NewEngine creates the aggregation engine.
func NewEngine(readings repository.ReadingsRepository, rollups repository.RollupsRepository, logger *zap.Logger) *Engine {
	return &Engine{
		readings: readings,
		rollups:  rollups,
		logger:   logger,
		now:      time.Now,
	}
}

// resolveRange applies the defaulting rules: a single given bound mirrors
// onto the other, both absent defaults to the last hour, and an inverted
// range is swapped rather than rejected.
func (e *Engine) resolveRange(from, to *time.Time) (time.Time, time.Time) {
	now := e.now().UTC()

	var f, t time.Time
	switch {
	case from == nil && to == nil:
		t = now
		f = now.Add(-time.Hour)
	case from == nil:
		t = *to
		f = t
	case to == nil:
		f = *from
		t = f
	default:
		f = *from
		t = *to
	}

	if f.After(t) {
		f, t = t, f
	}
	return f, t
}

// Aggregate buckets raw points into fixed steps of 1m, 5m or 1h and returns
// {timestamp, avg, min, max, count} per non-empty bucket, ascending. Output
// is sparse: buckets without points are not emitted.
func (e *Engine) Aggregate(ctx context.Context, plantID, sensorType string, step models.Step, from, to *time.Time) ([]models.Bucket, error) {
	stepDur := step.Duration()
	if stepDur == 0 {
		return nil, fmt.Errorf("invalid step: %s", step)
	}

	f, t := e.resolveRange(from, to)

	points, err := e.readings.ReadRange(ctx, plantID, sensorType, f, t, MaxRangeDays)
	if err != nil {
		return nil, fmt.Errorf("failed to read range: %w", err)
	}

	type acc struct {
		sum      float64
		count    int64
		min, max float64
	}

	stepMs := stepDur.Milliseconds()
	buckets := make(map[int64]*acc)
	for _, p := range points {
		key := p.Timestamp.UnixMilli() / stepMs * stepMs
		a, ok := buckets[key]
		if !ok {
			buckets[key] = &acc{sum: p.Value, count: 1, min: p.Value, max: p.Value}
			continue
		}
		a.sum += p.Value
		a.count++
		if p.Value < a.min {
			a.min = p.Value
		}
		if p.Value > a.max {
			a.max = p.Value
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]models.Bucket, 0, len(keys))
	for _, k := range keys {
		a := buckets[k]
		out = append(out, models.Bucket{
			Timestamp: time.UnixMilli(k).UTC(),
			Avg:       a.sum / float64(a.count),
			Min:       a.min,
			Max:       a.max,
			Count:     a.count,
		})
	}
	return out, nil
}

// DailyAggregate returns one rollup per UTC calendar day in range, ascending,
// including empty days (nil min/avg/max, count 0). Persisted rollups are
// returned verbatim; missing days are computed from the raw partition and,
// when the day is fully in the past, persisted for reuse.
func (e *Engine) DailyAggregate(ctx context.Context, plantID, sensorType string, from, to *time.Time) ([]models.DailyRollup, error) {
	f, t := e.resolveRange(from, to)
	today := utcDay(e.now())

	out := make([]models.DailyRollup, 0)
	for _, day := range partitionDays(f, t, MaxDailyDays) {
		dayStr := day.Format(dayLayout)

		cached, err := e.rollups.Get(ctx, plantID, sensorType, dayStr)
		if err != nil {
			return nil, fmt.Errorf("failed to read rollup for %s: %w", dayStr, err)
		}
		if cached != nil {
			out = append(out, *cached)
			continue
		}

		rollup, err := e.computeDay(ctx, plantID, sensorType, day)
		if err != nil {
			return nil, err
		}

		// Only fully-past days are cached; persisting today would freeze an
		// incomplete rollup.
		if day.Before(today) {
			if err := e.rollups.Put(ctx, rollup); err != nil {
				e.logger.Warn("Failed to persist daily rollup",
					zap.String("plant_id", plantID),
					zap.String("sensor_type", sensorType),
					zap.String("day", dayStr),
					zap.Error(err),
				)
			}
		}

		out = append(out, *rollup)
	}
	return out, nil
}

// computeDay scans one raw partition and summarizes it.
func (e *Engine) computeDay(ctx context.Context, plantID, sensorType string, day time.Time) (*models.DailyRollup, error) {
	points, err := e.readings.ReadPartition(ctx, plantID, sensorType, day)
	if err != nil {
		return nil, fmt.Errorf("failed to scan partition %s: %w", day.Format(dayLayout), err)
	}

	rollup := &models.DailyRollup{
		PlantID:    plantID,
		SensorType: sensorType,
		Day:        day.Format(dayLayout),
	}
	if len(points) == 0 {
		return rollup, nil
	}

	minV := points[0].Value
	maxV := points[0].Value
	var sum float64
	for _, p := range points {
		sum += p.Value
		if p.Value < minV {
			minV = p.Value
		}
		if p.Value > maxV {
			maxV = p.Value
		}
	}
	avg := sum / float64(len(points))

	rollup.Min = &minV
	rollup.Avg = &avg
	rollup.Max = &maxV
	rollup.Count = int64(len(points))
	return rollup, nil
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

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
