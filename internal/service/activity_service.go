package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/genlink/genlink-api/internal/models"
	"github.com/genlink/genlink-api/internal/repository"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type activityVolunteerRepository interface {
	ListAll(ctx context.Context) ([]models.Volunteer, error)
}

type activityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// activeVolunteersCacheTTL is short so the listing tracks slot boundaries
// closely.
const activeVolunteersCacheTTL = 30 * time.Second

// ActivityService computes the public "who is active now" view. Instants are
// stored UTC; evaluation happens after a single conversion into the
// configured wall-clock frame.
type ActivityService struct {
	repo     activityVolunteerRepository
	cache    activityCache
	metrics  *MetricsService
	logger   *zap.Logger
	location *time.Location
}

// NewActivityService constructs an ActivityService. An unknown timezone name
// falls back to UTC.
func NewActivityService(repo activityVolunteerRepository, cache activityCache, metrics *MetricsService, logger *zap.Logger, timezone string) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("unknown availability timezone, using UTC", zap.String("timezone", timezone), zap.Error(err))
		location = time.UTC
	}
	return &ActivityService{repo: repo, cache: cache, metrics: metrics, logger: logger, location: location}
}

// ActiveVolunteers returns every volunteer active at the instant, either by
// manual override or by schedule. Both flags are computed independently and
// both totals count a volunteer active by both means.
func (s *ActivityService) ActiveVolunteers(ctx context.Context, at time.Time) (*models.ActiveVolunteersResponse, error) {
	if s.cache != nil {
		var cached models.ActiveVolunteersResponse
		if err := s.cache.Get(ctx, repository.CacheKeyActiveVolunteers, &cached); err == nil {
			return &cached, nil
		}
	}

	volunteers, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list volunteers")
	}

	moment := at.In(s.location)
	resp := &models.ActiveVolunteersResponse{
		Volunteers:  []models.ActiveVolunteer{},
		GeneratedAt: at.UTC(),
	}
	for i := range volunteers {
		volunteer := &volunteers[i]
		slots := s.slotsOf(volunteer)

		scheduleActive := models.ScheduleActive(slots, moment)
		manualActive := volunteer.ManualActive
		if manualActive {
			resp.TotalManualActive++
		}
		if scheduleActive {
			resp.TotalScheduleActive++
		}
		if !manualActive && !scheduleActive {
			continue
		}

		if slots == nil {
			slots = []models.AvailabilitySlot{}
		}
		resp.Volunteers = append(resp.Volunteers, models.ActiveVolunteer{
			Email:          volunteer.Email,
			FullName:       volunteer.FullName,
			Phone:          volunteer.Phone,
			City:           volunteer.City,
			Availability:   slots,
			ManualActive:   manualActive,
			ScheduleActive: scheduleActive,
			IsActiveNow:    manualActive || scheduleActive,
		})
	}

	s.metrics.SetActiveVolunteers(len(resp.Volunteers))

	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.CacheKeyActiveVolunteers, resp, activeVolunteersCacheTTL); err != nil {
			s.logger.Warn("failed to cache active volunteers", zap.Error(err))
		}
	}
	return resp, nil
}

// AnyActiveNow reports whether at least one volunteer is active at the
// instant. Used to gate the average-response metric.
func (s *ActivityService) AnyActiveNow(ctx context.Context, at time.Time) (bool, error) {
	volunteers, err := s.repo.ListAll(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list volunteers")
	}

	moment := at.In(s.location)
	for i := range volunteers {
		volunteer := &volunteers[i]
		if volunteer.ManualActive {
			return true, nil
		}
		if models.ScheduleActive(s.slotsOf(volunteer), moment) {
			return true, nil
		}
	}
	return false, nil
}

// IsActiveAt evaluates a single volunteer. Manual override wins regardless
// of schedule.
func (s *ActivityService) IsActiveAt(volunteer *models.Volunteer, at time.Time) bool {
	if volunteer.ManualActive {
		return true
	}
	return models.ScheduleActive(s.slotsOf(volunteer), at.In(s.location))
}

// slotsOf decodes the stored schedule. This is a read path: a corrupted
// record must not break the public listing, so parse failures degrade to an
// empty schedule and are only logged.
func (s *ActivityService) slotsOf(volunteer *models.Volunteer) []models.AvailabilitySlot {
	slots, err := models.ParseSlots(volunteer.AvailabilityJSON)
	if err != nil {
		s.logger.Warn("invalid stored availability, treating as empty",
			zap.String("volunteer", volunteer.Email),
			zap.Error(err),
		)
		return nil
	}
	return slots
}

// Location exposes the configured evaluation timezone.
func (s *ActivityService) Location() *time.Location {
	return s.location
}
