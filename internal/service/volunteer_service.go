package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/genlink/genlink-api/internal/models"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type volunteerRepository interface {
	List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error)
	FindByEmail(ctx context.Context, email string) (*models.Volunteer, error)
	Update(ctx context.Context, volunteer *models.Volunteer) error
	Delete(ctx context.Context, email string) error
}

type activityEvaluator interface {
	IsActiveAt(volunteer *models.Volunteer, at time.Time) bool
	Location() *time.Location
}

// UpdateProfileRequest carries editable profile fields. Absent fields are
// left untouched; availability is only replaced when present.
type UpdateProfileRequest struct {
	FullName     *string                   `json:"full_name" validate:"omitempty,min=3,max=120"`
	Phone        *string                   `json:"phone" validate:"omitempty,len=9,numeric"`
	City         *string                   `json:"city" validate:"omitempty,min=2,max=100"`
	ManualActive *bool                     `json:"manual_active"`
	Availability []models.AvailabilitySlot `json:"availability"`
}

// VolunteerService manages volunteer profiles and schedules.
type VolunteerService struct {
	repo      volunteerRepository
	activity  activityEvaluator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVolunteerService constructs a VolunteerService.
func NewVolunteerService(repo volunteerRepository, activity activityEvaluator, validate *validator.Validate, logger *zap.Logger) *VolunteerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolunteerService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// Profile returns the authenticated self view. A corrupted stored schedule
// degrades to an empty one here; writes are where strictness lives.
func (s *VolunteerService) Profile(ctx context.Context, email string, now time.Time) (*models.VolunteerProfile, error) {
	volunteer, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}

	slots, err := models.ParseSlots(volunteer.AvailabilityJSON)
	if err != nil {
		s.logger.Warn("invalid stored availability in profile, treating as empty",
			zap.String("volunteer", volunteer.Email),
			zap.Error(err),
		)
		slots = nil
	}
	if slots == nil {
		slots = []models.AvailabilitySlot{}
	}

	return &models.VolunteerProfile{
		Volunteer:    *volunteer,
		Availability: slots,
		IsActiveNow:  s.activity.IsActiveAt(volunteer, now),
	}, nil
}

// UpdateProfile applies partial profile changes. An invalid schedule rejects
// the whole update; nothing is stored that cannot be parsed back.
func (s *VolunteerService) UpdateProfile(ctx context.Context, email string, req UpdateProfileRequest, now time.Time) (*models.VolunteerProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	volunteer, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		volunteer.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		volunteer.Phone = normalizeOptional(req.Phone)
	}
	if req.City != nil {
		volunteer.City = normalizeOptional(req.City)
	}
	if req.ManualActive != nil {
		volunteer.ManualActive = *req.ManualActive
	}
	if req.Availability != nil {
		serialized, err := models.SerializeSlots(req.Availability)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		volunteer.AvailabilityJSON = serialized
	}

	if err := s.repo.Update(ctx, volunteer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	s.logger.Info("volunteer profile updated", zap.String("volunteer", email))
	return s.Profile(ctx, email, now)
}

// SetManualActive flips only the manual override.
func (s *VolunteerService) SetManualActive(ctx context.Context, email string, active bool, now time.Time) (*models.VolunteerProfile, error) {
	volunteer, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}

	volunteer.ManualActive = active
	if err := s.repo.Update(ctx, volunteer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity flag")
	}

	s.logger.Info("manual activity changed", zap.String("volunteer", email), zap.Bool("active", active))
	return s.Profile(ctx, email, now)
}

// Delete removes the account. Any held report is released back to pending by
// the schema.
func (s *VolunteerService) Delete(ctx context.Context, email string) error {
	if err := s.repo.Delete(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete volunteer")
	}
	s.logger.Info("volunteer deleted", zap.String("volunteer", email))
	return nil
}

// List returns volunteers for the authenticated directory view.
func (s *VolunteerService) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, *models.Pagination, error) {
	volunteers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list volunteers")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return volunteers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *VolunteerService) find(ctx context.Context, email string) (*models.Volunteer, error) {
	volunteer, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}
	return volunteer, nil
}

// normalizeOptional trims an optional string, collapsing blank values to nil.
func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
