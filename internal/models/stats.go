package models

// Statistics aggregates a student population by proficiency tier.
// NeedSupportCount currently mirrors BeginnerCount: every beginner is flagged
// as needing support, no independent at-risk signal exists yet.
type Statistics struct {
	TotalStudents     int `json:"total_students"`
	BeginnerCount     int `json:"beginner_count"`
	DevelopingCount   int `json:"developing_count"`
	ProficientCount   int `json:"proficient_count"`
	NeedSupportCount  int `json:"need_support_count"`
	RecentAssessments int `json:"recent_assessments"`
}

// ClassStatistics extends Statistics with mean scores across the class,
// rounded to the nearest integer.
type ClassStatistics struct {
	Statistics
	AverageReadingScore int `json:"average_reading_score"`
	AverageWritingScore int `json:"average_writing_score"`
}

// ProgressPoint tallies levels for one month bucket of the current year.
type ProgressPoint struct {
	Month      string `json:"month"`
	Beginner   int    `json:"beginner"`
	Developing int    `json:"developing"`
	Proficient int    `json:"proficient"`
}

// StudentProgressPoint carries one student's representative scores for a
// month bucket.
type StudentProgressPoint struct {
	Month        string  `json:"month"`
	ReadingScore float64 `json:"reading_score"`
	WritingScore float64 `json:"writing_score"`
	Level        Level   `json:"level"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
