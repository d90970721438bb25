package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unidesk/uniportal-api/internal/models"
	"github.com/unidesk/uniportal-api/internal/service"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/response"
)

// ScheduleHandler exposes the schedule lifecycle over HTTP.
type ScheduleHandler struct {
	service *service.ScheduleService
	metrics *service.MetricsService
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(svc *service.ScheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, metrics: metrics}
}

// List godoc
// @Summary List schedules
// @Description List schedules scoped to the caller's organizational reach
// @Tags Schedules
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param academic_year query string false "Academic year filter"
// @Param semester query string false "Semester filter"
// @Param status query string false "Status filter"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ScheduleFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if status := c.Query("status"); status != "" {
		s := models.ScheduleStatus(status)
		filter.Status = &s
	}
	filter.AcademicYear = c.Query("academic_year")
	filter.Semester = c.Query("semester")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	schedules, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedules, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get schedule
// @Description Get schedule detail with its timetable items
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	schedule, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create schedule draft
// @Description Create a draft schedule for the caller's program
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.CreateScheduleRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, schedule)
}

// Update godoc
// @Summary Update schedule items
// @Description Replace the timetable items of an editable schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body models.UpdateScheduleRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedule, nil)
}

// Submit godoc
// @Summary Submit schedule for approval
// @Description Move a draft or rejected schedule to pending approval
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/submit [post]
func (h *ScheduleHandler) Submit(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	schedule, err := h.service.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.ObserveTransition(schedule.Status)
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Review godoc
// @Summary Review schedule
// @Description Approve or reject a pending schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body models.ReviewScheduleRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/review [post]
func (h *ScheduleHandler) Review(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ReviewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	schedule, err := h.service.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.ObserveTransition(schedule.Status)
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete schedule
// @Description Delete a draft schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Export godoc
// @Summary Export schedule
// @Description Export a schedule timetable as PDF or CSV
// @Tags Schedules
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Schedule ID"
// @Param format query string false "Export format (pdf or csv)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := c.Param("id")
	format := c.DefaultQuery("format", "pdf")

	payload, contentType, err := h.service.Export(c.Request.Context(), actor, id, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=schedule-%s.%s", id, format))
	c.Data(http.StatusOK, contentType, payload)
}
