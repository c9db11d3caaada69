package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/genlink/genlink-api/internal/service"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
	"github.com/genlink/genlink-api/pkg/response"
)

// ReportTypeHandler wires HTTP endpoints to the report type service.
type ReportTypeHandler struct {
	service *service.ReportTypeService
}

// NewReportTypeHandler creates a new handler.
func NewReportTypeHandler(svc *service.ReportTypeService) *ReportTypeHandler {
	return &ReportTypeHandler{service: svc}
}

// List godoc
// @Summary List report types
// @Description All report categories ordered by name
// @Tags ReportTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /report-types [get]
func (h *ReportTypeHandler) List(c *gin.Context) {
	types, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, types, nil)
}

// Create godoc
// @Summary Create report type
// @Description Add a new report category
// @Tags ReportTypes
// @Accept json
// @Produce json
// @Param payload body service.CreateReportTypeRequest true "Report type payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /report-types [post]
func (h *ReportTypeHandler) Create(c *gin.Context) {
	var req service.CreateReportTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report type payload"))
		return
	}

	reportType, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, reportType)
}

// Delete godoc
// @Summary Delete report type
// @Description Remove a report category
// @Tags ReportTypes
// @Produce json
// @Param id path int true "Report type id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report-types/{id} [delete]
func (h *ReportTypeHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report type id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
