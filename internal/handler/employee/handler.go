package employee

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/middleware"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/service/employee"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/httputil"
)

type Handler struct {
	service employee.Service
}

func NewHandler(service employee.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	employees := rg.Group("/employees")
	{
		read := auth.RequireRoles(model.RoleAdmin, model.RoleHR, model.RoleHSEManager)
		write := auth.RequireRoles(model.RoleAdmin, model.RoleHR)

		employees.GET("", read, h.List)
		employees.GET("/:id", read, h.Get)
		employees.GET("/me", h.GetMe)
		employees.POST("", write, h.Create)
		employees.PUT("/:id", write, h.Update)
		employees.DELETE("/:id", write, h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid employee ID", err))
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

// GetMe returns the employee record of the authenticated user.
func (h *Handler) GetMe(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	found, err := h.service.GetByUserID(c.Request.Context(), actor.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid employee ID", err))
		return
	}

	var req model.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid employee ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "employee deleted"})
}

func (h *Handler) List(c *gin.Context) {
	var filters model.EmployeeFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	employees, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, employees)
}
