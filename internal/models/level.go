package models

// Level represents a student's literacy proficiency tier.
type Level string

const (
	LevelBeginner   Level = "beginner"
	LevelDeveloping Level = "developing"
	LevelProficient Level = "proficient"
)

// Valid reports whether the level is one of the known tiers.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelDeveloping, LevelProficient:
		return true
	}
	return false
}

// ClassifyLevel derives the proficiency tier from a reading and writing score.
// The average of the two scores decides the tier; 80 and 60 belong to the
// higher tier.
func ClassifyLevel(reading, writing float64) Level {
	average := (reading + writing) / 2
	switch {
	case average >= 80:
		return LevelProficient
	case average >= 60:
		return LevelDeveloping
	default:
		return LevelBeginner
	}
}
