package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestSeverity_BothBounds(t *testing.T) {
	th := models.Threshold{Min: floatPtr(30), Max: floatPtr(70), Hysteresis: 2}

	tests := []struct {
		name  string
		value float64
		want  models.Level
	}{
		{"inside range", 50, models.LevelNone},
		{"just above max", 71, models.LevelGrave},
		{"above max plus hysteresis", 73, models.LevelCritica},
		{"just below min", 29, models.LevelGrave},
		{"below min minus hysteresis", 27, models.LevelCritica},
		{"exactly max", 70, models.LevelNone},
		{"exactly min", 30, models.LevelNone},
		{"exactly max plus hysteresis", 72, models.LevelGrave},
		{"exactly min minus hysteresis", 28, models.LevelGrave},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Severity(tt.value, th))
		})
	}
}

func TestSeverity_MaxOnly(t *testing.T) {
	th := models.Threshold{Max: floatPtr(70)}

	assert.Equal(t, models.LevelNone, Severity(70, th))
	// no hysteresis: anything above max is immediately critica
	assert.Equal(t, models.LevelCritica, Severity(70.1, th))
	assert.Equal(t, models.LevelNone, Severity(-1000, th))
}

func TestSeverity_MinOnly(t *testing.T) {
	th := models.Threshold{Min: floatPtr(30), Hysteresis: 5}

	assert.Equal(t, models.LevelNone, Severity(30, th))
	assert.Equal(t, models.LevelGrave, Severity(26, th))
	assert.Equal(t, models.LevelCritica, Severity(24.9, th))
	assert.Equal(t, models.LevelNone, Severity(1000, th))
}

func TestSeverity_NegativeHysteresisClamped(t *testing.T) {
	th := models.Threshold{Min: floatPtr(30), Max: floatPtr(70), Hysteresis: -10}

	// behaves as hysteresis 0: any breach is critica
	assert.Equal(t, models.LevelCritica, Severity(71, th))
	assert.Equal(t, models.LevelCritica, Severity(29, th))
	assert.Equal(t, models.LevelNone, Severity(50, th))
}

func TestSeverity_NoBounds(t *testing.T) {
	assert.Equal(t, models.LevelNone, Severity(9999, models.Threshold{Hysteresis: 3}))
}
