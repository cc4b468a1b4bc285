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

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	ApplyPatch(ctx context.Context, id string, patch models.ClassPatch) error
	Delete(ctx context.Context, id string) error
}

type classStudentRepo interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	Delete(ctx context.Context, id string) error
}

// CreateClassRequest holds the payload for creating a class.
type CreateClassRequest struct {
	Name    string `json:"name" validate:"required"`
	Grade   string `json:"grade" validate:"required"`
	Subject string `json:"subject" validate:"required"`
}

// ClassService handles class use-cases, including the cascading removal of
// a class together with its roster.
type ClassService struct {
	repo      classRepository
	students  classStudentRepo
	broker    *stream.Broker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, students classStudentRepo, broker *stream.Broker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:      repo,
		students:  students,
		broker:    broker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns classes and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list classes")
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
	return classes, pagination, nil
}

// Get returns a single class.
func (s *ClassService) Get(ctx context.Context, teacherID, id string) (*models.Class, error) {
	return s.authorize(ctx, teacherID, id)
}

// Create registers a class owned by the given teacher. The roster starts
// empty; student_count moves only through roster changes.
func (s *ClassService) Create(ctx context.Context, teacherID, teacherName string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}

	class := &models.Class{
		Name:        req.Name,
		Grade:       req.Grade,
		Subject:     req.Subject,
		TeacherID:   teacherID,
		TeacherName: teacherName,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create class")
	}

	s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventCreated, ID: class.ID, At: s.now()})
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("teacher_id", teacherID))
	return class, nil
}

// Update applies a partial update. Absent fields keep their stored values.
func (s *ClassService) Update(ctx context.Context, teacherID, id string, patch models.ClassPatch) (*models.Class, error) {
	class, err := s.authorize(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return class, nil
	}

	if err := s.repo.ApplyPatch(ctx, id, patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update class")
	}

	updated := patch.Apply(*class)
	updated.UpdatedAt = s.now().UTC()
	s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventUpdated, ID: id, At: s.now()})
	return &updated, nil
}

// Delete removes a class and every student enrolled in it. Students are
// removed one at a time; the first failure halts the cascade and the class
// row itself is only deleted after every student delete succeeded. A halted
// cascade therefore leaves the class present with a partial roster.
func (s *ClassService) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := s.authorize(ctx, teacherID, id); err != nil {
		return err
	}

	roster, err := s.students.ListByClass(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load class roster")
	}

	for _, student := range roster {
		if err := s.students.Delete(ctx, student.ID); err != nil {
			s.logger.Error("cascade halted",
				zap.String("class_id", id),
				zap.String("student_id", student.ID),
				zap.Error(err),
			)
			return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete student during class removal")
		}
		s.publish(stream.Event{Topic: stream.TopicStudents, Kind: stream.EventDeleted, ID: student.ID, At: s.now()})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete class")
	}

	s.publish(stream.Event{Topic: stream.TopicClasses, Kind: stream.EventDeleted, ID: id, At: s.now()})
	s.logger.Info("class deleted", zap.String("class_id", id), zap.Int("students_removed", len(roster)))
	return nil
}

// authorize loads the class and enforces teacher ownership. An empty
// teacherID skips the ownership check (administrative access).
func (s *ClassService) authorize(ctx context.Context, teacherID, id string) (*models.Class, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	class, err := s.repo.FindByID(ctx, id)
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

func (s *ClassService) publish(event stream.Event) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(event)
	if s.metrics != nil {
		s.metrics.RecordStreamEvent(string(event.Topic))
	}
}
