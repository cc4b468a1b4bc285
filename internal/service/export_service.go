package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/literacy-tracker-api/internal/models"
	appErrors "github.com/noah-isme/literacy-tracker-api/pkg/errors"
	"github.com/noah-isme/literacy-tracker-api/pkg/export"
)

// ExportFormat enumerates supported roster export encodings.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
	FormatXLSX ExportFormat = "xlsx"
)

// ExportResult carries rendered bytes with serving metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type exportClassRepo interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type exportStudentRepo interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

// ExportService renders class rosters as downloadable reports.
type ExportService struct {
	classes  exportClassRepo
	students exportStudentRepo
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	xlsx     *export.XLSXExporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(classes exportClassRepo, students exportStudentRepo, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		classes:  classes,
		students: students,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		xlsx:     export.NewXLSXExporter(),
		logger:   logger,
		now:      time.Now,
	}
}

// ClassRoster renders one class roster, one row per student with their level,
// scores and last assessment date, in the requested format.
func (s *ExportService) ClassRoster(ctx context.Context, classID string, format ExportFormat) (*ExportResult, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load class")
	}

	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load roster")
	}

	dataset := rosterDataset(students)
	stamp := s.now().UTC().Format("20060102")
	title := fmt.Sprintf("%s Literacy Roster", class.Name)

	var (
		payload     []byte
		contentType string
		extension   string
	)
	switch format {
	case FormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
		extension = "csv"
	case FormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
		extension = "pdf"
	case FormatXLSX:
		payload, err = s.xlsx.Render(dataset, "Roster")
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		extension = "xlsx"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("roster exported",
		zap.String("class_id", classID),
		zap.String("format", string(format)),
		zap.Int("students", len(students)),
	)
	return &ExportResult{
		FileName:    fmt.Sprintf("roster-%s-%s.%s", classID, stamp, extension),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func rosterDataset(students []models.Student) export.Dataset {
	headers := []string{"Name", "Level", "Reading", "Writing", "Last Assessment"}
	rows := make([]map[string]string, 0, len(students))
	for _, student := range students {
		lastAssessment := ""
		if student.LastAssessment != nil {
			lastAssessment = student.LastAssessment.Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Name":            student.Name,
			"Level":           string(student.CurrentLevel),
			"Reading":         strconv.FormatFloat(student.ReadingScore, 'f', -1, 64),
			"Writing":         strconv.FormatFloat(student.WritingScore, 'f', -1, 64),
			"Last Assessment": lastAssessment,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
