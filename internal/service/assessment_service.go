package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
	appErrors "github.com/noah-isme/literacy-tracker-api/pkg/errors"
	"github.com/noah-isme/literacy-tracker-api/pkg/stream"
)

type assessmentStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	RecordAssessment(ctx context.Context, studentID string, snapshot models.Assessment) error
}

type assessmentClassRepo interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// RecordAssessmentRequest holds the payload for recording an assessment.
// Scores are percentages on a 0-100 scale.
type RecordAssessmentRequest struct {
	ReadingScore float64 `json:"readingScore" validate:"gte=0,lte=100"`
	WritingScore float64 `json:"writingScore" validate:"gte=0,lte=100"`
}

// AssessmentService records assessment outcomes. Recording classifies the
// scores, updates the student's current state and appends an immutable
// history snapshot in one transaction.
type AssessmentService struct {
	students  assessmentStudentRepo
	classes   assessmentClassRepo
	broker    *stream.Broker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssessmentService constructs the assessment service.
func NewAssessmentService(students assessmentStudentRepo, classes assessmentClassRepo, broker *stream.Broker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		students:  students,
		classes:   classes,
		broker:    broker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Record validates and persists an assessment for one of the teacher's
// students. Validation runs before anything is written, so an out-of-range
// score leaves both the student and their history untouched. The snapshot is
// dated at day granularity in UTC. An empty teacherID skips the ownership
// check (administrative access).
func (s *AssessmentService) Record(ctx context.Context, teacherID, studentID string, req RecordAssessmentRequest) (*models.Student, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scores must be between 0 and 100")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student")
	}

	if teacherID != "" {
		class, err := s.classes.FindByID(ctx, student.ClassID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load class")
		}
		if class.TeacherID != teacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
		}
	}

	level := models.ClassifyLevel(req.ReadingScore, req.WritingScore)
	recordedAt := s.now().UTC()
	assessedOn := time.Date(recordedAt.Year(), recordedAt.Month(), recordedAt.Day(), 0, 0, 0, 0, time.UTC)

	snapshot := models.Assessment{
		StudentID:    studentID,
		Date:         assessedOn,
		ReadingScore: req.ReadingScore,
		WritingScore: req.WritingScore,
		Level:        level,
	}

	if err := s.students.RecordAssessment(ctx, studentID, snapshot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to record assessment")
	}

	student.CurrentLevel = level
	student.ReadingScore = req.ReadingScore
	student.WritingScore = req.WritingScore
	student.LastAssessment = &assessedOn
	student.UpdatedAt = recordedAt
	student.History = append(student.History, snapshot)

	s.publish(stream.Event{Topic: stream.TopicStudents, Kind: stream.EventUpdated, ID: studentID, At: recordedAt})

	s.logger.Info("assessment recorded",
		zap.String("student_id", studentID),
		zap.String("level", string(level)),
		zap.Float64("reading", req.ReadingScore),
		zap.Float64("writing", req.WritingScore),
	)
	return student, nil
}

func (s *AssessmentService) publish(event stream.Event) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(event)
	if s.metrics != nil {
		s.metrics.RecordStreamEvent(string(event.Topic))
	}
}
