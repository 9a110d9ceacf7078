package appointment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/middleware"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/service/appointment"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/httputil"
)

type Handler struct {
	service appointment.Service
}

func NewHandler(service appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", auth.RequireRoles(model.RoleEmployee, model.RoleHR, model.RoleNurse, model.RoleDoctor), h.Create)
		appointments.POST("/obligatory", auth.RequireRoles(model.RoleHR), h.CreateObligatory)
		appointments.GET("", h.List)
		appointments.GET("/my-appointments", h.GetMine)
		appointments.GET("/upcoming", h.GetUpcoming)
		appointments.GET("/:id", h.Get)
		appointments.PATCH("/:id/propose", auth.RequireRoles(model.RoleNurse, model.RoleDoctor), h.ProposeSlot)
		appointments.PATCH("/:id/confirm", auth.RequireRoles(model.RoleEmployee), h.Confirm)
		appointments.PATCH("/:id/reschedule", auth.RequireRoles(model.RoleEmployee), h.Reschedule)
		appointments.PATCH("/:id/cancel", auth.RequireRoles(model.RoleEmployee, model.RoleHR, model.RoleNurse, model.RoleDoctor), h.Cancel)
		appointments.PATCH("/:id/status", auth.RequireRoles(model.RoleAdmin, model.RoleHR), h.UpdateStatus)
		appointments.PUT("/:id", auth.RequireRoles(model.RoleAdmin, model.RoleHR), h.Update)
		appointments.DELETE("/:id", auth.RequireRoles(model.RoleAdmin, model.RoleHR), h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) CreateObligatory(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	var reqs []*model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}
	if len(reqs) == 0 {
		httputil.RespondWithError(c, apperrors.Validation("empty appointment list", nil))
		return
	}

	created, err := h.service.CreateObligatory(c.Request.Context(), reqs, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

func (h *Handler) List(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	var filters model.AppointmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	appointments, total, err := h.service.List(c.Request.Context(), &filters, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, appointments, filters.Page, filters.PageSize, total)
}

func (h *Handler) GetMine(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	status := model.AppointmentStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		httputil.RespondWithError(c, apperrors.Validation("unknown appointment status", nil))
		return
	}

	appointments, err := h.service.GetMine(c.Request.Context(), actor, status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetUpcoming(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	appointments, err := h.service.GetUpcoming(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) ProposeSlot(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.ProposeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.ProposeSlot(c.Request.Context(), id, &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	// The body is optional, confirming without notes is the common case.
	var req model.ConfirmAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.Confirm(c.Request.Context(), id, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.Reschedule(c.Request.Context(), id, req.Motif)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.Cancel(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Update(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, &req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, actor); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "appointment deleted"})
}
