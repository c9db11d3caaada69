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

// ReportHandler wires HTTP endpoints to report intake, listing and the
// assignment state machine.
type ReportHandler struct {
	reports     *service.ReportService
	assignments *service.AssignmentService
	exports     *service.ExportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(reports *service.ReportService, assignments *service.AssignmentService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, assignments: assignments, exports: exports}
}

// Create godoc
// @Summary Submit report
// @Description Public intake of a new problem report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	detail, err := h.reports.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// ListPending godoc
// @Summary List pending reports
// @Description Reports awaiting a volunteer, newest first
// @Tags Reports
// @Produce json
// @Param report_type_id query int false "Filter by report type"
// @Param city query string false "Filter by city"
// @Param search query string false "Search problem and address"
// @Param date_from query string false "Created after (RFC 3339)"
// @Param date_to query string false "Created before (RFC 3339)"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) ListPending(c *gin.Context) {
	filter := models.ReportFilter{
		City:   c.Query("city"),
		Search: c.Query("search"),
	}
	if raw := c.Query("report_type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report_type_id"))
			return
		}
		filter.ReportTypeID = &id
	}
	if raw := c.Query("date_from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date_from"))
			return
		}
		filter.DateFrom = &ts
	}
	if raw := c.Query("date_to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date_to"))
			return
		}
		filter.DateTo = &ts
	}
	filter.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

	reports, err := h.reports.ListPending(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, nil)
}

// Get godoc
// @Summary Get report
// @Description Single report with its derived status
// @Tags Reports
// @Produce json
// @Param id path int true "Report id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report id"))
		return
	}

	detail, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Statistics godoc
// @Summary Pending statistics
// @Description Pending report counts overall and per type
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/statistics [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	stats, err := h.reports.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// AverageResponse godoc
// @Summary Average response time
// @Description Mean minutes between submission and first acceptance
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/average-response [get]
func (h *ReportHandler) AverageResponse(c *gin.Context) {
	res, err := h.reports.AverageResponse(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Accept godoc
// @Summary Accept report
// @Description Assign the report to the current volunteer
// @Tags Assignments
// @Produce json
// @Param id path int true "Report id"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/accept [post]
func (h *ReportHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report id"))
		return
	}

	detail, err := h.assignments.Accept(c.Request.Context(), claims.Email, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// CancelActive godoc
// @Summary Cancel active report
// @Description Release the current volunteer's report back to pending
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports/active/cancel [post]
func (h *ReportHandler) CancelActive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.assignments.Cancel(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// CompleteActive godoc
// @Summary Complete active report
// @Description Mark the current volunteer's report as done
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports/active/complete [post]
func (h *ReportHandler) CompleteActive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.assignments.Complete(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// MyAccepted godoc
// @Summary Current assignment
// @Description Id of the report the current volunteer holds, null when none
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports/my/accepted [get]
func (h *ReportHandler) MyAccepted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := h.reports.MyAccepted(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"active_report_id": id}, nil)
}

// MyCompleted godoc
// @Summary Completed reports
// @Description Reports completed by the current volunteer, newest first
// @Tags Assignments
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports/my/completed [get]
func (h *ReportHandler) MyCompleted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	reports, err := h.reports.MyCompleted(c.Request.Context(), claims.Email, skip, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, nil)
}

// ExportCompleted godoc
// @Summary Export completed reports
// @Description Download the current volunteer's completed reports as CSV or PDF
// @Tags Assignments
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports/my/completed/export [get]
func (h *ReportHandler) ExportCompleted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	file, err := h.exports.CompletedReports(c.Request.Context(), claims.Email, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
