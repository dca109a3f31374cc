package evaluator

import "github.com/vicente3000/Sistema-de-sensores/internal/models"

// Severity maps a reading value against a threshold to an alert level.
//
// The max bound is checked before the min bound: a sensor with both bounds
// configured reports the max-side breach if both would somehow trigger.
// Hysteresis widens the band beyond min/max before escalating from grave
// to critica; negative hysteresis is treated as zero.
func Severity(value float64, t models.Threshold) models.Level {
	h := t.Hysteresis
	if h < 0 {
		h = 0
	}

	if t.Max != nil {
		if value > *t.Max+h {
			return models.LevelCritica
		}
		if value > *t.Max {
			return models.LevelGrave
		}
	}
	if t.Min != nil {
		if value < *t.Min-h {
			return models.LevelCritica
		}
		if value < *t.Min {
			return models.LevelGrave
		}
	}
	return models.LevelNone
}
