package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLevel(t *testing.T) {
	cases := []struct {
		name     string
		reading  float64
		writing  float64
		expected Level
	}{
		{"both at proficient boundary", 80, 80, LevelProficient},
		{"both at developing boundary", 60, 60, LevelDeveloping},
		{"just below developing", 59, 59, LevelBeginner},
		{"floor", 0, 0, LevelBeginner},
		{"ceiling", 100, 100, LevelProficient},
		{"mixed averaging to proficient", 70, 90, LevelProficient},
		{"mixed averaging just under proficient", 70, 89, LevelDeveloping},
		{"mixed averaging just under developing", 50, 69, LevelBeginner},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyLevel(tc.reading, tc.writing))
		})
	}
}

func TestClassifyLevelThresholds(t *testing.T) {
	// Exhaustive integer sweep: tier is a pure function of the average.
	for reading := 0; reading <= 100; reading += 5 {
		for writing := 0; writing <= 100; writing += 5 {
			average := (float64(reading) + float64(writing)) / 2
			level := ClassifyLevel(float64(reading), float64(writing))
			switch {
			case average >= 80:
				assert.Equal(t, LevelProficient, level, "avg %.1f", average)
			case average >= 60:
				assert.Equal(t, LevelDeveloping, level, "avg %.1f", average)
			default:
				assert.Equal(t, LevelBeginner, level, "avg %.1f", average)
			}
		}
	}
}

func TestLevelValid(t *testing.T) {
	assert.True(t, LevelBeginner.Valid())
	assert.True(t, LevelDeveloping.Valid())
	assert.True(t, LevelProficient.Valid())
	assert.False(t, Level("advanced").Valid())
}
