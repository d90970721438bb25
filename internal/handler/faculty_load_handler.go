package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unidesk/uniportal-api/internal/models"
	"github.com/unidesk/uniportal-api/internal/service"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/response"
)

// FacultyLoadHandler handles teaching load assignment endpoints.
type FacultyLoadHandler struct {
	service *service.FacultyLoadService
}

// NewFacultyLoadHandler creates a new faculty load handler.
func NewFacultyLoadHandler(svc *service.FacultyLoadService) *FacultyLoadHandler {
	return &FacultyLoadHandler{service: svc}
}

// List godoc
// @Summary List faculty loads
// @Description List teaching load assignments
// @Tags FacultyLoads
// @Produce json
// @Param instructor_id query string false "Instructor filter"
// @Param academic_year query string false "Academic year filter"
// @Param semester query string false "Semester filter"
// @Success 200 {object} response.Envelope
// @Router /faculty-loads [get]
func (h *FacultyLoadHandler) List(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.FacultyLoadFilter{
		InstructorID: c.Query("instructor_id"),
		AcademicYear: c.Query("academic_year"),
		Semester:     c.Query("semester"),
	}

	loads, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, loads, nil)
}

// Create godoc
// @Summary Assign teaching load
// @Description Assign a subject to an instructor for a term
// @Tags FacultyLoads
// @Accept json
// @Produce json
// @Param payload body models.CreateFacultyLoadRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /faculty-loads [post]
func (h *FacultyLoadHandler) Create(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateFacultyLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	load, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, load)
}

// Delete godoc
// @Summary Remove teaching load
// @Description Remove a teaching load assignment
// @Tags FacultyLoads
// @Produce json
// @Param id path string true "Faculty load ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /faculty-loads/{id} [delete]
func (h *FacultyLoadHandler) Delete(c *gin.Context) {
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
