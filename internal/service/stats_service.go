package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
	appErrors "github.com/noah-isme/literacy-tracker-api/pkg/errors"
)

// recentAssessmentWindow is the trailing window a last-assessment date must
// fall into to count as recent. Calendar time, not business days.
const recentAssessmentWindow = 30 * 24 * time.Hour

type statsStudentLister interface {
	ListWithHistory(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type statsClassFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// StatsService aggregates student populations into dashboard statistics.
// It holds no state of its own: every read recomputes from the latest
// persisted snapshot, optionally short-circuited by the cache.
type StatsService struct {
	students statsStudentLister
	classes  statsClassFinder
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cacheTTL time.Duration
}

// NewStatsService constructs a StatsService.
func NewStatsService(students statsStudentLister, classes statsClassFinder, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StatsService{
		students: students,
		classes:  classes,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cacheTTL: cacheTTL,
	}
}

// ComputeStatistics tallies a student population by proficiency tier. An
// empty population yields the all-zero result. Students without a recorded
// assessment never count as recent.
func ComputeStatistics(students []models.Student, now time.Time) models.Statistics {
	stats := models.Statistics{}
	if len(students) == 0 {
		return stats
	}

	cutoff := now.Add(-recentAssessmentWindow)
	stats.TotalStudents = len(students)
	for _, student := range students {
		switch student.CurrentLevel {
		case models.LevelBeginner:
			stats.BeginnerCount++
		case models.LevelDeveloping:
			stats.DevelopingCount++
		case models.LevelProficient:
			stats.ProficientCount++
		}
		if student.LastAssessment != nil && !student.LastAssessment.Before(cutoff) {
			stats.RecentAssessments++
		}
	}

	// Every beginner is flagged as needing support; no independent
	// at-risk signal exists yet.
	stats.NeedSupportCount = stats.BeginnerCount
	return stats
}

// ComputeClassStatistics extends ComputeStatistics with mean scores rounded
// to the nearest integer. Empty populations yield the all-zero struct.
func ComputeClassStatistics(students []models.Student, now time.Time) models.ClassStatistics {
	result := models.ClassStatistics{}
	if len(students) == 0 {
		return result
	}

	result.Statistics = ComputeStatistics(students, now)

	var totalReading, totalWriting float64
	for _, student := range students {
		totalReading += student.ReadingScore
		totalWriting += student.WritingScore
	}
	count := float64(len(students))
	result.AverageReadingScore = int(math.Round(totalReading / count))
	result.AverageWritingScore = int(math.Round(totalWriting / count))
	return result
}

// Overview returns statistics across all of the teacher's students and
// reports whether the cache was hit.
func (s *StatsService) Overview(ctx context.Context, teacherID string) (*models.Statistics, bool, error) {
	if teacherID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}

	cacheKey := fmt.Sprintf("stats:teacher:%s", teacherID)
	if s.cache != nil {
		var cached models.Statistics
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	students, err := s.students.ListWithHistory(ctx, models.StudentFilter{TeacherID: teacherID})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load students")
	}

	stats := ComputeStatistics(students, s.now())
	s.persistCache(ctx, cacheKey, stats)
	return &stats, false, nil
}

// Class returns statistics restricted to one class, including mean scores.
func (s *StatsService) Class(ctx context.Context, classID string) (*models.ClassStatistics, bool, error) {
	if classID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}

	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load class")
	}

	cacheKey := fmt.Sprintf("stats:class:%s", classID)
	if s.cache != nil {
		var cached models.ClassStatistics
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	students, err := s.students.ListWithHistory(ctx, models.StudentFilter{ClassID: classID})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load students")
	}

	stats := ComputeClassStatistics(students, s.now())
	s.persistCache(ctx, cacheKey, stats)
	return &stats, false, nil
}

func (s *StatsService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("statistics cache write failed", zap.String("key", key), zap.Error(err))
	}
}
