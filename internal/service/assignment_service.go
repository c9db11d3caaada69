package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/genlink/genlink-api/internal/models"
	"github.com/genlink/genlink-api/internal/repository"
)

// assignmentStore is the transactional storage contract for the assignment
// state machine. Implementations must make each operation atomic with
// respect to concurrent calls about the same report or volunteer.
type assignmentStore interface {
	Accept(ctx context.Context, email string, reportID int64) (*models.Report, error)
	Cancel(ctx context.Context, email string) (*models.Report, error)
	Complete(ctx context.Context, email string) (*models.Report, error)
}

type assignmentCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AssignmentService coordinates report assignment. The exclusivity rules
// live in the store transaction; this layer adds the derived status, cache
// invalidation, metrics and logging.
type AssignmentService struct {
	store   assignmentStore
	cache   assignmentCacheInvalidator
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(store assignmentStore, cache assignmentCacheInvalidator, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{store: store, cache: cache, metrics: metrics, logger: logger}
}

// Accept assigns the report to the volunteer, or reports why it cannot.
func (s *AssignmentService) Accept(ctx context.Context, email string, reportID int64) (*models.ReportDetail, error) {
	report, err := s.store.Accept(ctx, email, reportID)
	s.metrics.ObserveAssignment("accept", err)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.Info("report accepted",
		zap.Int64("report_id", report.ID),
		zap.String("volunteer", email),
	)
	return &models.ReportDetail{Report: *report, Status: models.ReportStatusAccepted}, nil
}

// Cancel releases the volunteer's active report back to the pending pool.
func (s *AssignmentService) Cancel(ctx context.Context, email string) (*models.ReportDetail, error) {
	report, err := s.store.Cancel(ctx, email)
	s.metrics.ObserveAssignment("cancel", err)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.Info("report assignment cancelled",
		zap.Int64("report_id", report.ID),
		zap.String("volunteer", email),
	)
	return &models.ReportDetail{Report: *report, Status: models.ReportStatusPending}, nil
}

// Complete marks the volunteer's active report as done and bumps their
// counters.
func (s *AssignmentService) Complete(ctx context.Context, email string) (*models.ReportDetail, error) {
	report, err := s.store.Complete(ctx, email)
	s.metrics.ObserveAssignment("complete", err)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.Info("report completed",
		zap.Int64("report_id", report.ID),
		zap.String("volunteer", email),
	)
	return &models.ReportDetail{Report: *report, Status: models.ReportStatusCompleted}, nil
}

func (s *AssignmentService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, repository.CachePatternStats); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
