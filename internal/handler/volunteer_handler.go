package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/genlink/genlink-api/internal/models"
	"github.com/genlink/genlink-api/internal/service"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
	"github.com/genlink/genlink-api/pkg/response"
)

// VolunteerHandler wires HTTP endpoints to volunteer profile and activity
// services.
type VolunteerHandler struct {
	volunteers *service.VolunteerService
	activity   *service.ActivityService
}

// NewVolunteerHandler creates a new handler.
func NewVolunteerHandler(volunteers *service.VolunteerService, activity *service.ActivityService) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers, activity: activity}
}

// Me godoc
// @Summary Current volunteer profile
// @Description Return the authenticated volunteer with decoded schedule
// @Tags Volunteers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /volunteers/me [get]
func (h *VolunteerHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.volunteers.Profile(c.Request.Context(), claims.Email, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateMe godoc
// @Summary Update profile
// @Description Update profile fields, the manual-active flag and the weekly schedule
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body service.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /volunteers/me [put]
func (h *VolunteerHandler) UpdateMe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.volunteers.UpdateProfile(c.Request.Context(), claims.Email, req, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// SetActive godoc
// @Summary Toggle manual activity
// @Description Set the manual-active override independently of the schedule
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body map[string]bool true "Active flag"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /volunteers/me/active [put]
func (h *VolunteerHandler) SetActive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active flag required"))
		return
	}

	profile, err := h.volunteers.SetManualActive(c.Request.Context(), claims.Email, *payload.Active, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// DeleteMe godoc
// @Summary Delete account
// @Description Remove the volunteer account, releasing any held report
// @Tags Volunteers
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /volunteers/me [delete]
func (h *VolunteerHandler) DeleteMe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.volunteers.Delete(c.Request.Context(), claims.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// List godoc
// @Summary List volunteers
// @Description Paginated volunteer directory
// @Tags Volunteers
// @Produce json
// @Param search query string false "Search by name, email or city"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /volunteers [get]
func (h *VolunteerHandler) List(c *gin.Context) {
	filter := models.VolunteerFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	volunteers, pagination, err := h.volunteers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, volunteers, pagination)
}

// Active godoc
// @Summary Active volunteers
// @Description Public listing of volunteers active right now, with totals per activation source
// @Tags Volunteers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /volunteers/active [get]
func (h *VolunteerHandler) Active(c *gin.Context) {
	res, err := h.activity.ActiveVolunteers(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
