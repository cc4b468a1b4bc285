package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/literacy-tracker-api/internal/middleware"
	"github.com/noah-isme/literacy-tracker-api/internal/models"
	"github.com/noah-isme/literacy-tracker-api/internal/service"
)

// memStore is an in-memory stand-in for both repositories, good enough to
// drive the real services end to end through the HTTP layer.
type memStore struct {
	classes  map[string]models.Class
	students map[string]models.Student
	nextID   int
	seq      int64
}

func newMemStore() *memStore {
	return &memStore{
		classes:  make(map[string]models.Class),
		students: make(map[string]models.Student),
	}
}

func (m *memStore) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	out := make([]models.Class, 0, len(m.classes))
	for _, c := range m.classes {
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		m.nextID++
		class.ID = fmt.Sprintf("class-%d", m.nextID)
	}
	m.classes[class.ID] = *class
	return nil
}

func (m *memStore) ApplyPatch(ctx context.Context, id string, patch models.ClassPatch) error {
	if c, ok := m.classes[id]; ok {
		m.classes[id] = patch.Apply(c)
	}
	return nil
}

func (m *memStore) AdjustStudentCount(ctx context.Context, id string, delta int) error {
	if c, ok := m.classes[id]; ok {
		c.StudentCount += delta
		if c.StudentCount < 0 {
			c.StudentCount = 0
		}
		m.classes[id] = c
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	delete(m.classes, id)
	return nil
}

// studentStore adapts memStore to the student repository surface. Split out
// so both interface sets can coexist despite the overlapping method names.
type studentStore struct{ *memStore }

func (m studentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := m.filtered(filter)
	return out, len(out), nil
}

func (m studentStore) ListWithHistory(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	return m.filtered(filter), nil
}

func (m studentStore) filtered(filter models.StudentFilter) []models.Student {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		if filter.ClassID != "" && s.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID != "" {
			class, ok := m.classes[s.ClassID]
			if !ok || class.TeacherID != filter.TeacherID {
				continue
			}
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (m studentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m studentStore) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	return m.filtered(models.StudentFilter{ClassID: classID}), nil
}

func (m studentStore) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		m.nextID++
		student.ID = fmt.Sprintf("student-%d", m.nextID)
	}
	m.students[student.ID] = *student
	return nil
}

func (m studentStore) ApplyPatch(ctx context.Context, id string, patch models.StudentPatch, className *string) error {
	if s, ok := m.students[id]; ok {
		s = patch.Apply(s)
		if className != nil {
			s.ClassName = *className
		}
		m.students[id] = s
	}
	return nil
}

func (m studentStore) RecordAssessment(ctx context.Context, studentID string, snapshot models.Assessment) error {
	s, ok := m.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	m.seq++
	snapshot.ID = m.seq
	s.History = append(s.History, snapshot)
	s.CurrentLevel = snapshot.Level
	s.ReadingScore = snapshot.ReadingScore
	s.WritingScore = snapshot.WritingScore
	date := snapshot.Date
	s.LastAssessment = &date
	m.students[studentID] = s
	return nil
}

func (m studentStore) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	return nil
}

const testTeacherID = "teacher-1"

// newTestRouter wires the real services over the in-memory store behind an
// auth stub that injects claims for teacher-1.
func newTestRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	students := studentStore{store}

	classSvc := service.NewClassService(store, students, nil, nil, nil, nil)
	studentSvc := service.NewStudentService(students, store, nil, nil, nil, nil)
	assessmentSvc := service.NewAssessmentService(students, store, nil, nil, nil, nil)
	statsSvc := service.NewStatsService(students, store, nil, time.Minute, nil)
	progressSvc := service.NewProgressService(students, nil, time.Minute, nil)
	exportSvc := service.NewExportService(store, students, nil)

	classHandler := NewClassHandler(classSvc, studentSvc, statsSvc, progressSvc, exportSvc)
	studentHandler := NewStudentHandler(studentSvc, assessmentSvc, progressSvc)
	dashboardHandler := NewDashboardHandler(statsSvc, progressSvc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{
			UserID:   testTeacherID,
			FullName: "Ms. Rivera",
			Role:     models.RoleTeacher,
		})
	})

	classes := router.Group("/classes")
	{
		classes.GET("", classHandler.List)
		classes.POST("", classHandler.Create)
		classes.GET("/:id", classHandler.Get)
		classes.PATCH("/:id", classHandler.Update)
		classes.DELETE("/:id", classHandler.Delete)
		classes.GET("/:id/students", classHandler.Students)
		classes.GET("/:id/statistics", classHandler.Statistics)
		classes.GET("/:id/progress", classHandler.Progress)
		classes.GET("/:id/export", classHandler.Export)
	}
	studentsGroup := router.Group("/students")
	{
		studentsGroup.GET("", studentHandler.List)
		studentsGroup.POST("", studentHandler.Create)
		studentsGroup.GET("/:id", studentHandler.Get)
		studentsGroup.PATCH("/:id", studentHandler.Update)
		studentsGroup.DELETE("/:id", studentHandler.Delete)
		studentsGroup.POST("/:id/assessments", studentHandler.RecordAssessment)
		studentsGroup.GET("/:id/progress", studentHandler.Progress)
	}
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/statistics", dashboardHandler.Statistics)
		dashboard.GET("/progress", dashboardHandler.Progress)
	}
	return router
}

func performRequest(router *gin.Engine, method, path string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
