package models

import "time"

// Student is a learner tracked against a single class. CurrentLevel is the
// derived tier for the latest scores; the invariant
// CurrentLevel == ClassifyLevel(ReadingScore, WritingScore) holds after every
// recorded assessment.
type Student struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	ClassID        string     `db:"class_id" json:"class_id"`
	ClassName      string     `db:"class_name" json:"class_name"`
	CurrentLevel   Level      `db:"current_level" json:"current_level"`
	ReadingScore   float64    `db:"reading_score" json:"reading_score"`
	WritingScore   float64    `db:"writing_score" json:"writing_score"`
	LastAssessment *time.Time `db:"last_assessment" json:"last_assessment,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// History holds the append-only assessment snapshots in insertion
	// order. Insertion order is authoritative, not the date field.
	History []Assessment `db:"-" json:"assessment_history,omitempty"`
}

// Assessment is one dated score snapshot. Rows are immutable once inserted.
// ID is a monotonically increasing sequence, so ordering by ID reproduces
// insertion order regardless of the date field.
type Assessment struct {
	ID           int64     `db:"id" json:"-"`
	StudentID    string    `db:"student_id" json:"-"`
	Date         time.Time `db:"assessed_on" json:"date"`
	ReadingScore float64   `db:"reading_score" json:"reading_score"`
	WritingScore float64   `db:"writing_score" json:"writing_score"`
	Level        Level     `db:"level" json:"level"`
}

// StudentPatch is a merge-style partial update for students. Score fields are
// intentionally absent: score changes must go through the assessment
// recorder so the derived level and history stay consistent.
type StudentPatch struct {
	Name    *string `json:"name,omitempty"`
	ClassID *string `json:"class_id,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p StudentPatch) Empty() bool {
	return p.Name == nil && p.ClassID == nil
}

// Apply merges the patch into a copy of the student.
func (p StudentPatch) Apply(student Student) Student {
	if p.Name != nil {
		student.Name = *p.Name
	}
	if p.ClassID != nil {
		student.ClassID = *p.ClassID
	}
	return student
}

// StudentFilter defines criteria for listing students.
type StudentFilter struct {
	TeacherID string
	ClassID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
