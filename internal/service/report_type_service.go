package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/genlink/genlink-api/internal/models"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type reportTypeRepository interface {
	List(ctx context.Context) ([]models.ReportType, error)
	FindByID(ctx context.Context, id int64) (*models.ReportType, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, reportType *models.ReportType) error
	Delete(ctx context.Context, id int64) error
}

// CreateReportTypeRequest holds the payload for a new category.
type CreateReportTypeRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// ReportTypeService manages report categories.
type ReportTypeService struct {
	repo      reportTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportTypeService constructs a ReportTypeService.
func NewReportTypeService(repo reportTypeRepository, validate *validator.Validate, logger *zap.Logger) *ReportTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns every category.
func (s *ReportTypeService) List(ctx context.Context) ([]models.ReportType, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report types")
	}
	if types == nil {
		types = []models.ReportType{}
	}
	return types, nil
}

// Create adds a category with a unique name.
func (s *ReportTypeService) Create(ctx context.Context, req CreateReportTypeRequest) (*models.ReportType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report type payload")
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check report type name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report type name already exists")
	}

	reportType := &models.ReportType{Name: name, Description: normalizeOptional(req.Description)}
	if err := s.repo.Create(ctx, reportType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report type")
	}

	s.logger.Info("report type created", zap.Int64("report_type_id", reportType.ID), zap.String("name", name))
	return reportType, nil
}

// Delete removes a category.
func (s *ReportTypeService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report type")
	}
	s.logger.Info("report type deleted", zap.Int64("report_type_id", id))
	return nil
}
