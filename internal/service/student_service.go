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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	ApplyPatch(ctx context.Context, id string, patch models.StudentPatch, className *string) error
	Delete(ctx context.Context, id string) error
}

type studentClassRepo interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	AdjustStudentCount(ctx context.Context, id string, delta int) error
}

// CreateStudentRequest holds the payload for enrolling a student. New
// students always start at the beginner tier with zero scores; levels move
// only through recorded assessments.
type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required"`
	ClassID string `json:"classId" validate:"required"`
}

// StudentService handles student roster use-cases.
type StudentService struct {
	repo      studentRepository
	classes   studentClassRepo
	broker    *stream.Broker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, classes studentClassRepo, broker *stream.Broker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		classes:   classes,
		broker:    broker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns a student including their assessment history.
func (s *StudentService) Get(ctx context.Context, teacherID, id string) (*models.Student, error) {
	return s.authorize(ctx, teacherID, id)
}

// ListByClass returns the roster of one class, oldest enrollment first.
func (s *StudentService) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load class")
	}
	students, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
	}
	return students, nil
}

// Create enrolls a student in a class owned by the teacher. The class must
// exist; its roster counter is bumped after the student row lands.
func (s *StudentService) Create(ctx context.Context, teacherID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	class, err := s.ownedClass(ctx, teacherID, req.ClassID)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:         req.Name,
		ClassID:      class.ID,
		ClassName:    class.Name,
		CurrentLevel: models.LevelBeginner,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create student")
	}

	if err := s.classes.AdjustStudentCount(ctx, class.ID, 1); err != nil {
		s.logger.Warn("student count increment failed", zap.String("class_id", class.ID), zap.Error(err))
	}

	s.publish(stream.Event{Topic: stream.TopicStudents, Kind: stream.EventCreated, ID: student.ID, At: s.now()})
	s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventUpdated, ID: class.ID, At: s.now()})
	s.logger.Info("student enrolled", zap.String("student_id", student.ID), zap.String("class_id", class.ID))
	return student, nil
}

// Update applies a partial update. Moving a student between classes resyncs
// the denormalised class name and shifts both roster counters; scores and
// level are out of reach here and only move through assessments.
func (s *StudentService) Update(ctx context.Context, teacherID, id string, patch models.StudentPatch) (*models.Student, error) {
	student, err := s.authorize(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return student, nil
	}

	var className *string
	previousClassID := student.ClassID
	if patch.ClassID != nil && *patch.ClassID != student.ClassID {
		class, err := s.ownedClass(ctx, teacherID, *patch.ClassID)
		if err != nil {
			return nil, err
		}
		className = &class.Name
	}

	if err := s.repo.ApplyPatch(ctx, id, patch, className); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update student")
	}

	if className != nil {
		if err := s.classes.AdjustStudentCount(ctx, previousClassID, -1); err != nil {
			s.logger.Warn("student count decrement failed", zap.String("class_id", previousClassID), zap.Error(err))
		}
		if err := s.classes.AdjustStudentCount(ctx, *patch.ClassID, 1); err != nil {
			s.logger.Warn("student count increment failed", zap.String("class_id", *patch.ClassID), zap.Error(err))
		}
		s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventUpdated, ID: previousClassID, At: s.now()})
		s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventUpdated, ID: *patch.ClassID, At: s.now()})
	}

	updated := patch.Apply(*student)
	if className != nil {
		updated.ClassName = *className
	}
	updated.UpdatedAt = s.now().UTC()
	s.publish(stream.Event{Topic: stream.TopicStudents, Kind: stream.EventUpdated, ID: id, At: s.now()})
	return &updated, nil
}

// Delete removes a student together with their history and decrements the
// class roster counter, which never drops below zero.
func (s *StudentService) Delete(ctx context.Context, teacherID, id string) error {
	student, err := s.authorize(ctx, teacherID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete student")
	}

	if err := s.classes.AdjustStudentCount(ctx, student.ClassID, -1); err != nil {
		s.logger.Warn("student count decrement failed", zap.String("class_id", student.ClassID), zap.Error(err))
	}

	s.publish(stream.Event{Topic: stream.TopicStudents, Kind: stream.EventDeleted, ID: id, At: s.now()})
	s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventUpdated, ID: student.ClassID, At: s.now()})
	s.logger.Info("student removed", zap.String("student_id", id), zap.String("class_id", student.ClassID))
	return nil
}

// authorize loads the student and enforces ownership through the student's
// class, the same way ClassService gates its per-id operations. An empty
// teacherID skips the ownership check (administrative access).
func (s *StudentService) authorize(ctx context.Context, teacherID, id string) (*models.Student, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if teacherID != "" {
		if _, err := s.ownedClass(ctx, teacherID, student.ClassID); err != nil {
			return nil, err
		}
	}
	return student, nil
}

// ownedClass resolves a class and verifies it belongs to the teacher. An
// empty teacherID skips the ownership check.
func (s *StudentService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load class")
	}
	if teacherID != "" && class.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return class, nil
}

func (s *StudentService) find(ctx context.Context, id string) (*models.Student, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) publish(event stream.Event) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(event)
	if s.metrics != nil {
		s.metrics.RecordStreamEvent(string(event.Topic))
	}
}
