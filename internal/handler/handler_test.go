package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, body []byte) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func seedClass(store *memStore, id string) {
	store.classes[id] = models.Class{
		ID:        id,
		Name:      "Reading Circle A",
		TeacherID: testTeacherID,
		Grade:     "3",
		Subject:   "Literacy",
	}
}

func TestClassCreateStampsTeacher(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodPost, "/classes",
		strings.NewReader(`{"name":"Reading Circle A","grade":"3","subject":"Literacy"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var class models.Class
	require.NoError(t, json.Unmarshal(envelope.Data, &class))
	assert.Equal(t, testTeacherID, class.TeacherID)
	assert.Equal(t, "Ms. Rivera", class.TeacherName)
	assert.Zero(t, class.StudentCount)
}

func TestClassCreateRejectsMissingFields(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := performRequest(router, http.MethodPost, "/classes", strings.NewReader(`{"name":"No grade"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentEnrollmentAdjustsClassCount(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodPost, "/students",
		strings.NewReader(`{"name":"Amara","classId":"c1"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var student models.Student
	require.NoError(t, json.Unmarshal(envelope.Data, &student))
	assert.Equal(t, models.LevelBeginner, student.CurrentLevel)
	assert.Equal(t, "Reading Circle A", student.ClassName)
	assert.Equal(t, 1, store.classes["c1"].StudentCount)
}

func TestStudentEnrollmentUnknownClass(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := performRequest(router, http.MethodPost, "/students",
		strings.NewReader(`{"name":"Amara","classId":"ghost"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordAssessmentUpdatesLevel(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	store.students["s1"] = models.Student{ID: "s1", Name: "Amara", ClassID: "c1", CurrentLevel: models.LevelBeginner}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodPost, "/students/s1/assessments",
		strings.NewReader(`{"readingScore":82,"writingScore":79}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var student models.Student
	require.NoError(t, json.Unmarshal(envelope.Data, &student))
	assert.Equal(t, models.LevelProficient, student.CurrentLevel)
	require.Len(t, store.students["s1"].History, 1)
}

func TestRecordAssessmentRejectsOutOfRange(t *testing.T) {
	store := newMemStore()
	store.students["s1"] = models.Student{ID: "s1", CurrentLevel: models.LevelBeginner}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodPost, "/students/s1/assessments",
		strings.NewReader(`{"readingScore":120,"writingScore":50}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected attempt left no trace.
	assert.Empty(t, store.students["s1"].History)
	assert.Equal(t, models.LevelBeginner, store.students["s1"].CurrentLevel)
}

func TestClassDeleteCascades(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	store.students["s1"] = models.Student{ID: "s1", ClassID: "c1"}
	store.students["s2"] = models.Student{ID: "s2", ClassID: "c1"}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodDelete, "/classes/c1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.students)
	assert.NotContains(t, store.classes, "c1")
}

func TestClassDeleteForeignClassForbidden(t *testing.T) {
	store := newMemStore()
	store.classes["c1"] = models.Class{ID: "c1", TeacherID: "someone-else"}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodDelete, "/classes/c1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, store.classes, "c1")
}

func TestDashboardStatistics(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	recent := time.Now().UTC()
	store.students["s1"] = models.Student{ID: "s1", ClassID: "c1", CurrentLevel: models.LevelBeginner, LastAssessment: &recent}
	store.students["s2"] = models.Student{ID: "s2", ClassID: "c1", CurrentLevel: models.LevelProficient}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/dashboard/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var stats models.Statistics
	require.NoError(t, json.Unmarshal(envelope.Data, &stats))
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 1, stats.NeedSupportCount)
	assert.Equal(t, 1, stats.RecentAssessments)
	assert.Equal(t, false, envelope.Meta["cached"])
}

func TestClassProgressIncludeAllMonths(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	store.students["s1"] = models.Student{ID: "s1", ClassID: "c1"}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/classes/c1/progress?includeAllMonths=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var points []models.ProgressPoint
	require.NoError(t, json.Unmarshal(envelope.Data, &points))
	require.Len(t, points, 12)
	assert.Equal(t, "Jan", points[0].Month)
	assert.Equal(t, "Dec", points[11].Month)
}

func TestStudentProgressEndpoint(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	year := time.Now().UTC().Year()
	store.students["s1"] = models.Student{ID: "s1", ClassID: "c1", History: []models.Assessment{
		{Date: time.Date(year, time.February, 3, 0, 0, 0, 0, time.UTC), ReadingScore: 70, WritingScore: 72, Level: models.LevelDeveloping},
	}}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/students/s1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var points []models.StudentProgressPoint
	require.NoError(t, json.Unmarshal(envelope.Data, &points))
	require.Len(t, points, 1)
	assert.Equal(t, "Feb", points[0].Month)
	assert.Equal(t, models.LevelDeveloping, points[0].Level)
}

func TestClassExportCSV(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	store.students["s1"] = models.Student{ID: "s1", Name: "Amara", ClassID: "c1", CurrentLevel: models.LevelProficient, ReadingScore: 88, WritingScore: 91}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/classes/c1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Amara,proficient,88,91")
}

func TestClassExportUnsupportedFormat(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/classes/c1/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentClassMoveResyncsName(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	store.classes["c2"] = models.Class{ID: "c2", Name: "Reading Circle B", TeacherID: testTeacherID}
	store.students["s1"] = models.Student{ID: "s1", Name: "Amara", ClassID: "c1", ClassName: "Reading Circle A"}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodPatch, "/students/s1",
		strings.NewReader(`{"class_id":"c2"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	moved := store.students["s1"]
	assert.Equal(t, "c2", moved.ClassID)
	assert.Equal(t, "Reading Circle B", moved.ClassName)
	assert.Equal(t, 1, store.classes["c2"].StudentCount)
}

func TestStudentListScopedToTeacher(t *testing.T) {
	store := newMemStore()
	seedClass(store, "c1")
	store.classes["other"] = models.Class{ID: "other", TeacherID: "someone-else"}
	store.students["s1"] = models.Student{ID: "s1", ClassID: "c1"}
	store.students["s2"] = models.Student{ID: "s2", ClassID: "other"}
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec.Body.Bytes())
	var students []models.Student
	require.NoError(t, json.Unmarshal(envelope.Data, &students))
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)
}

func seedForeignClass(store *memStore) {
	store.classes["fc1"] = models.Class{ID: "fc1", Name: "Someone Else's Class", TeacherID: "someone-else"}
	store.students["fs1"] = models.Student{ID: "fs1", Name: "Noor", ClassID: "fc1", CurrentLevel: models.LevelBeginner}
}

func TestClassStatisticsForeignClassForbidden(t *testing.T) {
	store := newMemStore()
	seedForeignClass(store)
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/classes/fc1/statistics", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decodeEnvelope(t, rec.Body.Bytes())
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "FORBIDDEN", envelope.Error["code"])
}

func TestClassRosterForeignClassForbidden(t *testing.T) {
	store := newMemStore()
	seedForeignClass(store)
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/classes/fc1/students", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClassExportForeignClassForbidden(t *testing.T) {
	store := newMemStore()
	seedForeignClass(store)
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/classes/fc1/export?format=csv", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestStudentDeleteForeignStudentForbidden(t *testing.T) {
	store := newMemStore()
	seedForeignClass(store)
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodDelete, "/students/fs1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, store.students, "fs1")
}

func TestRecordAssessmentForeignStudentForbidden(t *testing.T) {
	store := newMemStore()
	seedForeignClass(store)
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodPost, "/students/fs1/assessments",
		strings.NewReader(`{"readingScore":90,"writingScore":90}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.students["fs1"].History)
	assert.Equal(t, models.LevelBeginner, store.students["fs1"].CurrentLevel)
}

func TestStudentProgressForeignStudentForbidden(t *testing.T) {
	store := newMemStore()
	seedForeignClass(store)
	router := newTestRouter(store)

	rec := performRequest(router, http.MethodGet, "/students/fs1/progress", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetUnknownStudentReturns404(t *testing.T) {
	router := newTestRouter(newMemStore())
	rec := performRequest(router, http.MethodGet, fmt.Sprintf("/students/%s", "ghost"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
