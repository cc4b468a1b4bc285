package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
)

// StudentRepository manages persistence for students and their append-only
// assessment history.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.name, s.class_id, s.class_name, s.current_level, s.reading_score, s.writing_score, s.last_assessment, s.created_at, s.updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.TeacherID != "" {
		base += " JOIN classes c ON c.id = s.class_id"
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"name":            "s.name",
		"current_level":   "s.current_level",
		"last_assessment": "s.last_assessment",
		"created_at":      "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListWithHistory returns the matching students with their assessment
// histories attached in insertion order. Pagination is ignored: aggregate
// views always work from the full population.
func (r *StudentRepository) ListWithHistory(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	unpaged := filter
	unpaged.Page = 1
	unpaged.PageSize = 100
	unpaged.SortBy = "created_at"
	unpaged.SortOrder = "ASC"

	var students []models.Student
	for {
		batch, total, err := r.List(ctx, unpaged)
		if err != nil {
			return nil, err
		}
		students = append(students, batch...)
		if len(students) >= total || len(batch) == 0 {
			break
		}
		unpaged.Page++
	}

	if err := r.attachHistories(ctx, students); err != nil {
		return nil, err
	}
	return students, nil
}

// FindByID fetches a student with full assessment history.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}

	students := []models.Student{student}
	if err := r.attachHistories(ctx, students); err != nil {
		return nil, err
	}
	return &students[0], nil
}

// ListByClass returns all students referencing the class, without histories.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.class_id = $1 ORDER BY s.created_at ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, class_id, class_name, current_level, reading_score, writing_score, last_assessment, created_at, updated_at)
        VALUES (:id, :name, :class_id, :class_name, :current_level, :reading_score, :writing_score, :last_assessment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ApplyPatch updates only the fields present in the patch. className, when
// non-nil, resynchronises the denormalized class name alongside a class
// move.
func (r *StudentRepository) ApplyPatch(ctx context.Context, id string, patch models.StudentPatch, className *string) error {
	sets := []string{}
	args := []interface{}{}

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *patch.Name)
	}
	if patch.ClassID != nil {
		sets = append(sets, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, *patch.ClassID)
	}
	if className != nil {
		sets = append(sets, fmt.Sprintf("class_name = $%d", len(args)+1))
		args = append(args, *className)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE students SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("patch student: %w", err)
	}
	return nil
}

// RecordAssessment appends the snapshot and updates the student's derived
// fields in one transaction.
func (r *StudentRepository) RecordAssessment(ctx context.Context, studentID string, snapshot models.Assessment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record assessment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO assessments (student_id, assessed_on, reading_score, writing_score, level)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertQuery, studentID, snapshot.Date, snapshot.ReadingScore, snapshot.WritingScore, snapshot.Level); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	const updateQuery = `UPDATE students SET current_level = $2, reading_score = $3, writing_score = $4, last_assessment = $5, updated_at = $6
        WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, studentID, snapshot.Level, snapshot.ReadingScore, snapshot.WritingScore, snapshot.Date, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student scores: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record assessment: %w", err)
	}
	return nil
}

// Delete removes a student row together with its history.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student history: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// attachHistories loads assessment rows for the given students ordered by
// insertion (serial id), not by date.
func (r *StudentRepository) attachHistories(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}

	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	query, args, err := sqlx.In(`SELECT id, student_id, assessed_on, reading_score, writing_score, level
        FROM assessments WHERE student_id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return fmt.Errorf("build history query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.Assessment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("load assessment history: %w", err)
	}

	byStudent := make(map[string][]models.Assessment, len(students))
	for _, row := range rows {
		byStudent[row.StudentID] = append(byStudent[row.StudentID], row)
	}
	for i := range students {
		students[i].History = byStudent[students[i].ID]
	}
	return nil
}
