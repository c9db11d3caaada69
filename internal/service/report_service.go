package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/genlink/genlink-api/internal/models"
	"github.com/genlink/genlink-api/internal/repository"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id int64) (*models.Report, error)
	ListPending(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	Statistics(ctx context.Context) (*models.ReportStatistics, error)
	AverageResponseMinutes(ctx context.Context) (*float64, error)
	ListCompletedBy(ctx context.Context, email string, skip, limit int) ([]models.Report, error)
}

type reportTypeReader interface {
	FindByID(ctx context.Context, id int64) (*models.ReportType, error)
}

type holderReader interface {
	HolderOf(ctx context.Context, reportID int64) (string, error)
	FindByEmail(ctx context.Context, email string) (*models.Volunteer, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type activityProbe interface {
	AnyActiveNow(ctx context.Context, at time.Time) (bool, error)
}

// CreateReportRequest is the public intake payload.
type CreateReportRequest struct {
	FullName     string  `json:"full_name" validate:"required,min=3,max=120"`
	Phone        string  `json:"phone" validate:"required,len=9,numeric"`
	Age          *int    `json:"age" validate:"omitempty,gte=0,lte=150"`
	Address      string  `json:"address" validate:"required,min=3,max=250"`
	City         string  `json:"city" validate:"required,min=2,max=100"`
	Problem      string  `json:"problem" validate:"required,min=10,max=500"`
	ContactOK    *bool   `json:"contact_ok"`
	ReportTypeID int64   `json:"report_type_id" validate:"required"`
	Details      *string `json:"details"`
}

// ReportServiceConfig tunes the statistics surface.
type ReportServiceConfig struct {
	// RequireActiveVolunteer gates the average-response metric on at least
	// one volunteer being active at call time. Product policy, off by
	// default.
	RequireActiveVolunteer bool
	CacheTTL               time.Duration
}

// ReportService handles report intake and the read/statistics surfaces.
// Assignment transitions live in AssignmentService.
type ReportService struct {
	reports    reportRepository
	types      reportTypeReader
	volunteers holderReader
	cache      statsCache
	activity   activityProbe
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     ReportServiceConfig
}

// NewReportService constructs a ReportService.
func NewReportService(reports reportRepository, types reportTypeReader, volunteers holderReader, cache statsCache, activity activityProbe, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ReportServiceConfig) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &ReportService{
		reports:    reports,
		types:      types,
		volunteers: volunteers,
		cache:      cache,
		activity:   activity,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// Create registers a new public report. It starts pending.
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest) (*models.ReportDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	if _, err := s.types.FindByID(ctx, req.ReportTypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report type %d", req.ReportTypeID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check report type")
	}

	contactOK := true
	if req.ContactOK != nil {
		contactOK = *req.ContactOK
	}

	report := &models.Report{
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
		Age:          req.Age,
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		Problem:      strings.TrimSpace(req.Problem),
		ContactOK:    contactOK,
		ReportTypeID: req.ReportTypeID,
		Details:      normalizeOptional(req.Details),
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	s.logger.Info("report created", zap.Int64("report_id", report.ID), zap.String("city", report.City))
	return &models.ReportDetail{Report: *report, Status: models.ReportStatusPending}, nil
}

// Get returns a report with its derived lifecycle status.
func (s *ReportService) Get(ctx context.Context, id int64) (*models.ReportDetail, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("report %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	held := false
	if _, err := s.volunteers.HolderOf(ctx, id); err == nil {
		held = true
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report holder")
	}

	return &models.ReportDetail{Report: *report, Status: report.StatusFor(held)}, nil
}

// ListPending returns pending reports matching the filter, newest first.
func (s *ReportService) ListPending(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, error) {
	reports, err := s.reports.ListPending(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}

	details := make([]models.ReportDetail, 0, len(reports))
	for _, report := range reports {
		details = append(details, models.ReportDetail{Report: report, Status: models.ReportStatusPending})
	}
	return details, nil
}

// Statistics summarizes outstanding pending work, grouped by report type.
func (s *ReportService) Statistics(ctx context.Context) (*models.ReportStatistics, error) {
	if s.cache != nil {
		var cached models.ReportStatistics
		if err := s.cache.Get(ctx, repository.CacheKeyStatistics, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.reports.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}

	s.metrics.SetPendingReports(stats.TotalPending)

	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.CacheKeyStatistics, stats, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache statistics", zap.Error(err))
		}
	}
	return stats, nil
}

// AverageResponse returns the mean minutes between submission and first
// acceptance, or nil when no report was ever accepted. When the gate is
// enabled the metric is also nil while no volunteer is active.
func (s *ReportService) AverageResponse(ctx context.Context, now time.Time) (*models.AverageResponse, error) {
	if s.config.RequireActiveVolunteer && s.activity != nil {
		anyActive, err := s.activity.AnyActiveNow(ctx, now)
		if err != nil {
			return nil, err
		}
		if !anyActive {
			return &models.AverageResponse{}, nil
		}
	}

	if s.cache != nil {
		var cached models.AverageResponse
		if err := s.cache.Get(ctx, repository.CacheKeyAverageResponse, &cached); err == nil {
			return &cached, nil
		}
	}

	avg, err := s.reports.AverageResponseMinutes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average response time")
	}

	resp := &models.AverageResponse{AverageResponseMinutes: avg}
	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.CacheKeyAverageResponse, resp, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache average response", zap.Error(err))
		}
	}
	return resp, nil
}

// MyAccepted returns the id of the report the volunteer currently holds, or
// nil.
func (s *ReportService) MyAccepted(ctx context.Context, email string) (*int64, error) {
	volunteer, err := s.volunteers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}
	return volunteer.ActiveReportID, nil
}

// MyCompleted lists reports completed by the volunteer, newest first.
func (s *ReportService) MyCompleted(ctx context.Context, email string, skip, limit int) ([]models.ReportDetail, error) {
	reports, err := s.reports.ListCompletedBy(ctx, email, skip, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completed reports")
	}

	details := make([]models.ReportDetail, 0, len(reports))
	for _, report := range reports {
		details = append(details, models.ReportDetail{Report: report, Status: models.ReportStatusCompleted})
	}
	return details, nil
}
