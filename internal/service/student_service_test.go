package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
	appErrors "github.com/noah-isme/literacy-tracker-api/pkg/errors"
)

type mockStudentRepo struct {
	students  map[string]models.Student
	deleted   []string
	lastPatch models.StudentPatch
	lastName  *string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	out := make([]models.Student, 0)
	for _, s := range m.students {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) ApplyPatch(ctx context.Context, id string, patch models.StudentPatch, className *string) error {
	m.lastPatch = patch
	m.lastName = className
	if s, ok := m.students[id]; ok {
		s = patch.Apply(s)
		if className != nil {
			s.ClassName = *className
		}
		m.students[id] = s
	}
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.students, id)
	return nil
}

type mockStudentClasses struct {
	classes     map[string]models.Class
	adjustments []struct {
		ID    string
		Delta int
	}
}

func (m *mockStudentClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentClasses) AdjustStudentCount(ctx context.Context, id string, delta int) error {
	m.adjustments = append(m.adjustments, struct {
		ID    string
		Delta int
	}{id, delta})
	return nil
}

func newTestStudentService(repo *mockStudentRepo, classes *mockStudentClasses) *StudentService {
	return NewStudentService(repo, classes, nil, nil, validator.New(), zap.NewNop())
}

func TestStudentServiceCreate(t *testing.T) {
	classes := &mockStudentClasses{classes: map[string]models.Class{
		"c1": {ID: "c1", Name: "Reading Circle A", TeacherID: "t1"},
	}}
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, classes)

	student, err := svc.Create(context.Background(), "t1", CreateStudentRequest{Name: "Amara", ClassID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.LevelBeginner, student.CurrentLevel)
	assert.Zero(t, student.ReadingScore)
	assert.Zero(t, student.WritingScore)
	assert.Nil(t, student.LastAssessment)
	assert.Equal(t, "Reading Circle A", student.ClassName)

	require.Len(t, classes.adjustments, 1)
	assert.Equal(t, "c1", classes.adjustments[0].ID)
	assert.Equal(t, 1, classes.adjustments[0].Delta)
}

func TestStudentServiceCreateUnknownClass(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockStudentClasses{})

	_, err := svc.Create(context.Background(), "t1", CreateStudentRequest{Name: "Amara", ClassID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateRequiresClass(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockStudentClasses{})

	_, err := svc.Create(context.Background(), "t1", CreateStudentRequest{Name: "Amara"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateRename(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", Name: "Before", ClassID: "c1", ReadingScore: 77},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newTestStudentService(repo, classes)

	name := "After"
	student, err := svc.Update(context.Background(), "t1", "s1", models.StudentPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "After", student.Name)
	assert.Equal(t, 77.0, student.ReadingScore)
	assert.Empty(t, classes.adjustments)
}

func TestStudentServiceUpdateClassMove(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", Name: "Amara", ClassID: "c1", ClassName: "Old"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{
		"c1": {ID: "c1", Name: "Old", TeacherID: "t1"},
		"c2": {ID: "c2", Name: "New", TeacherID: "t1"},
	}}
	svc := newTestStudentService(repo, classes)

	target := "c2"
	student, err := svc.Update(context.Background(), "t1", "s1", models.StudentPatch{ClassID: &target})
	require.NoError(t, err)
	assert.Equal(t, "c2", student.ClassID)
	assert.Equal(t, "New", student.ClassName)

	require.Len(t, classes.adjustments, 2)
	assert.Equal(t, "c1", classes.adjustments[0].ID)
	assert.Equal(t, -1, classes.adjustments[0].Delta)
	assert.Equal(t, "c2", classes.adjustments[1].ID)
	assert.Equal(t, 1, classes.adjustments[1].Delta)
}

func TestStudentServiceUpdateMoveToUnknownClass(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", ClassID: "c1"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newTestStudentService(repo, classes)

	target := "ghost"
	_, err := svc.Update(context.Background(), "t1", "s1", models.StudentPatch{ClassID: &target})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.lastName)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", ClassID: "c1"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newTestStudentService(repo, classes)

	require.NoError(t, svc.Delete(context.Background(), "t1", "s1"))
	assert.Equal(t, []string{"s1"}, repo.deleted)
	require.Len(t, classes.adjustments, 1)
	assert.Equal(t, -1, classes.adjustments[0].Delta)
}

func TestStudentServiceGetForeignStudentForbidden(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", ClassID: "c1"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "someone-else"}}}
	svc := newTestStudentService(repo, classes)

	_, err := svc.Get(context.Background(), "t1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDeleteForeignStudentForbidden(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", ClassID: "c1"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "someone-else"}}}
	svc := newTestStudentService(repo, classes)

	err := svc.Delete(context.Background(), "t1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// The foreign student and their roster counter are untouched.
	assert.Empty(t, repo.deleted)
	assert.Contains(t, repo.students, "s1")
	assert.Empty(t, classes.adjustments)
}

func TestStudentServiceCreateInForeignClassForbidden(t *testing.T) {
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "someone-else"}}}
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, classes)

	_, err := svc.Create(context.Background(), "t1", CreateStudentRequest{Name: "Amara", ClassID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.students)
}

func TestStudentServiceUpdateMoveToForeignClassForbidden(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", ClassID: "c1"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{
		"c1": {ID: "c1", TeacherID: "t1"},
		"c2": {ID: "c2", TeacherID: "someone-else"},
	}}
	svc := newTestStudentService(repo, classes)

	target := "c2"
	_, err := svc.Update(context.Background(), "t1", "s1", models.StudentPatch{ClassID: &target})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.lastName)
	assert.Empty(t, classes.adjustments)
}

func TestStudentServiceAdminBypassesOwnership(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", ClassID: "c1"},
	}}
	classes := &mockStudentClasses{classes: map[string]models.Class{"c1": {ID: "c1", TeacherID: "someone-else"}}}
	svc := newTestStudentService(repo, classes)

	student, err := svc.Get(context.Background(), "", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
}

func TestStudentServiceListByClassUnknown(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockStudentClasses{})
	_, err := svc.ListByClass(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
