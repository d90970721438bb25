package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unidesk/uniportal-api/internal/models"
	"github.com/unidesk/uniportal-api/internal/service"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/response"
)

// DepartmentHandler exposes the view/update surface for departments.
type DepartmentHandler struct {
	service  *service.DepartmentService
	programs programResolver
}

// NewDepartmentHandler creates a new department handler.
func NewDepartmentHandler(svc *service.DepartmentService, programs programResolver) *DepartmentHandler {
	return &DepartmentHandler{service: svc, programs: programs}
}

// List godoc
// @Summary List departments
// @Description List the departments visible to the caller
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	program, err := actorProgram(c.Request.Context(), h.programs, actor)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve program"))
		return
	}

	departments, err := h.service.List(c.Request.Context(), actor, program)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, departments, nil)
}

// Get godoc
// @Summary Get department
// @Description Get department detail
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *DepartmentHandler) Get(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	program, err := actorProgram(c.Request.Context(), h.programs, actor)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve program"))
		return
	}

	dept, err := h.service.Get(c.Request.Context(), actor, program, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dept, nil)
}

// Update godoc
// @Summary Update department
// @Description Update a department's descriptive fields
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body models.UpdateDepartmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	dept, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dept, nil)
}
