package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/middleware"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/service/notification"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/httputil"
)

type Handler struct {
	service notification.Service
}

func NewHandler(service notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread", h.ListUnread)
		notifications.GET("/unread/count", h.CountUnread)
		notifications.PATCH("/read-all", h.MarkAllRead)
		notifications.PATCH("/:id/read", h.MarkRead)
		notifications.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}
	p.Normalize()

	notifications, total, err := h.service.List(c.Request.Context(), actor.ID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, notifications, p.Page, p.PageSize, total)
}

func (h *Handler) ListUnread(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	notifications, err := h.service.ListUnread(c.Request.Context(), actor.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, notifications)
}

func (h *Handler) CountUnread(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), actor.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"count": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid notification ID", err))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor.ID, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "notification marked read"})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), actor.ID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "all notifications marked read"})
}

func (h *Handler) Delete(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid notification ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor.ID, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "notification deleted"})
}
