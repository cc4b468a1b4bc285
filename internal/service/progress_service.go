package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
	appErrors "github.com/noah-isme/literacy-tracker-api/pkg/errors"
)

type progressStudentRepo interface {
	ListWithHistory(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// ProgressService builds month-bucketed progress series out of assessment
// histories. Only assessments from the current calendar year contribute;
// prior years are outside the reporting window.
type ProgressService struct {
	students progressStudentRepo
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cacheTTL time.Duration
}

// NewProgressService constructs a ProgressService.
func NewProgressService(students progressStudentRepo, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ProgressService{
		students: students,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cacheTTL: cacheTTL,
	}
}

// ComputeProgressByMonth buckets a population's assessments into calendar
// months of the current year and tallies the per-month tier distribution.
// For each student and month the snapshot recorded last wins, regardless of
// its assessment date. With includeAllMonths set every month appears even
// when nothing was recorded in it; otherwise only months with at least one
// assessment are emitted, so a population with no current-year snapshots
// yields an empty series.
func ComputeProgressByMonth(students []models.Student, now time.Time, includeAllMonths bool) []models.ProgressPoint {
	year := now.Year()

	monthSet := make(map[time.Month]struct{})
	for _, student := range students {
		for _, snapshot := range student.History {
			if snapshot.Date.Year() == year {
				monthSet[snapshot.Date.Month()] = struct{}{}
			}
		}
	}
	if includeAllMonths {
		for m := time.January; m <= time.December; m++ {
			monthSet[m] = struct{}{}
		}
	}
	if len(monthSet) == 0 {
		return []models.ProgressPoint{}
	}

	months := make([]time.Month, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	points := make([]models.ProgressPoint, 0, len(months))
	for _, month := range months {
		point := models.ProgressPoint{Month: monthLabel(year, month)}
		for _, student := range students {
			level, ok := levelForMonth(student.History, year, month)
			if !ok {
				continue
			}
			switch level {
			case models.LevelBeginner:
				point.Beginner++
			case models.LevelDeveloping:
				point.Developing++
			case models.LevelProficient:
				point.Proficient++
			}
		}
		points = append(points, point)
	}
	return points
}

// ComputeStudentProgress derives one student's month series from their own
// history. Months come only from the student's current-year snapshots, so
// the series is empty when none exist.
func ComputeStudentProgress(student models.Student, now time.Time) []models.StudentProgressPoint {
	year := now.Year()

	monthSet := make(map[time.Month]struct{})
	for _, snapshot := range student.History {
		if snapshot.Date.Year() == year {
			monthSet[snapshot.Date.Month()] = struct{}{}
		}
	}
	if len(monthSet) == 0 {
		return []models.StudentProgressPoint{}
	}

	months := make([]time.Month, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	points := make([]models.StudentProgressPoint, 0, len(months))
	for _, month := range months {
		point := models.StudentProgressPoint{
			Month: monthLabel(year, month),
			Level: models.LevelBeginner,
		}
		if snapshot, ok := snapshotForMonth(student.History, year, month); ok {
			point.ReadingScore = snapshot.ReadingScore
			point.WritingScore = snapshot.WritingScore
			point.Level = snapshot.Level
		}
		points = append(points, point)
	}
	return points
}

// levelForMonth resolves the tier a student counts as for one month. History
// is kept in insertion order, so scanning forward and keeping the last match
// means a correction recorded later overrides an earlier snapshot in the
// same month even when its assessment date is older.
func levelForMonth(history []models.Assessment, year int, month time.Month) (models.Level, bool) {
	snapshot, ok := snapshotForMonth(history, year, month)
	if !ok {
		return "", false
	}
	return snapshot.Level, true
}

func snapshotForMonth(history []models.Assessment, year int, month time.Month) (models.Assessment, bool) {
	var match models.Assessment
	found := false
	for _, snapshot := range history {
		if snapshot.Date.Year() == year && snapshot.Date.Month() == month {
			match = snapshot
			found = true
		}
	}
	return match, found
}

func monthLabel(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan")
}

// Group returns the month series for all of a teacher's students, or for a
// single class when classID is set.
func (s *ProgressService) Group(ctx context.Context, teacherID, classID string, includeAllMonths bool) ([]models.ProgressPoint, bool, error) {
	if teacherID == "" && classID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacher or class id is required")
	}

	filter := models.StudentFilter{TeacherID: teacherID}
	cacheKey := fmt.Sprintf("progress:teacher:%s:all=%t", teacherID, includeAllMonths)
	if classID != "" {
		filter = models.StudentFilter{ClassID: classID}
		cacheKey = fmt.Sprintf("progress:class:%s:all=%t", classID, includeAllMonths)
	}

	if s.cache != nil {
		var cached []models.ProgressPoint
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	students, err := s.students.ListWithHistory(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load students")
	}

	points := ComputeProgressByMonth(students, s.now(), includeAllMonths)
	s.persistCache(ctx, cacheKey, points)
	return points, false, nil
}

// Student returns one student's month series.
func (s *ProgressService) Student(ctx context.Context, studentID string) ([]models.StudentProgressPoint, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	cacheKey := fmt.Sprintf("progress:student:%s", studentID)
	if s.cache != nil {
		var cached []models.StudentProgressPoint
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student")
	}

	points := ComputeStudentProgress(*student, s.now())
	s.persistCache(ctx, cacheKey, points)
	return points, false, nil
}

func (s *ProgressService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("progress cache write failed", zap.String("key", key), zap.Error(err))
	}
}
