package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/genlink/genlink-api/internal/models"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
	"github.com/genlink/genlink-api/pkg/export"
)

type completedReportLister interface {
	ListCompletedBy(ctx context.Context, email string, skip, limit int) ([]models.Report, error)
}

// ExportFile is a rendered export ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportServiceConfig bounds export size.
type ExportServiceConfig struct {
	Enabled bool
	MaxRows int
}

// ExportService renders a volunteer's completed reports as CSV or PDF.
type ExportService struct {
	reports completedReportLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
	config  ExportServiceConfig
}

// NewExportService constructs an ExportService.
func NewExportService(reports completedReportLister, logger *zap.Logger, config ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 5000
	}
	return &ExportService{
		reports: reports,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		config:  config,
	}
}

var exportHeaders = []string{"ID", "Created", "Completed", "City", "Address", "Problem", "Type"}

// CompletedReports renders the volunteer's completed reports in the requested
// format, "csv" or "pdf".
func (s *ExportService) CompletedReports(ctx context.Context, email, format string) (*ExportFile, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	reports, err := s.reports.ListCompletedBy(ctx, email, 0, s.config.MaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed reports")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(reports))}
	for _, report := range reports {
		completed := ""
		if report.CompletedAt != nil {
			completed = report.CompletedAt.UTC().Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":        strconv.FormatInt(report.ID, 10),
			"Created":   report.CreatedAt.UTC().Format(time.RFC3339),
			"Completed": completed,
			"City":      report.City,
			"Address":   report.Address,
			"Problem":   report.Problem,
			"Type":      strconv.FormatInt(report.ReportTypeID, 10),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	var content []byte
	var contentType string
	switch format {
	case "csv":
		content, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case "pdf":
		content, err = s.pdf.Render(dataset, "Completed Reports")
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("export rendered",
		zap.String("volunteer", email),
		zap.String("format", format),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("completed-reports-%s.%s", stamp, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}
