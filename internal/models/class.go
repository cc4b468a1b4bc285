package models

import "time"

// Class is a teacher-owned grouping of students sharing a grade and subject.
// StudentCount caches the number of Student rows referencing the class and is
// maintained by the student lifecycle (floored at zero on decrement).
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name"`
	Grade        string    `db:"grade" json:"grade"`
	Subject      string    `db:"subject" json:"subject"`
	StudentCount int       `db:"student_count" json:"student_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassPatch is a merge-style partial update. Nil fields leave the stored
// value untouched; set fields win.
type ClassPatch struct {
	Name    *string `json:"name,omitempty"`
	Grade   *string `json:"grade,omitempty"`
	Subject *string `json:"subject,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p ClassPatch) Empty() bool {
	return p.Name == nil && p.Grade == nil && p.Subject == nil
}

// Apply merges the patch into a copy of the class.
func (p ClassPatch) Apply(class Class) Class {
	if p.Name != nil {
		class.Name = *p.Name
	}
	if p.Grade != nil {
		class.Grade = *p.Grade
	}
	if p.Subject != nil {
		class.Subject = *p.Subject
	}
	return class
}

// ClassFilter defines criteria for listing classes.
type ClassFilter struct {
	TeacherID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
