package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oshworks/osh-api/internal/middleware"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/service/account"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/httputil"
)

type Handler struct {
	service account.Service
}

func NewHandler(service account.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes wires the unauthenticated account flows.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/account")
	{
		routes.POST("/forgot-password", h.ForgotPassword)
		routes.POST("/reset-password", h.ResetPassword)
		routes.POST("/send-activation-code", h.SendActivationCode)
		routes.POST("/verify-activation-code", h.VerifyActivationCode)
	}
}

// RegisterProtectedRoutes wires the flows that need a principal.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/change-password", h.ChangePassword)
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "if the account exists, a reset email was sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	actor := middleware.AuthUserFromContext(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) SendActivationCode(c *gin.Context) {
	var req model.SendActivationCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.service.SendActivationCode(c.Request.Context(), req.Email); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "activation code sent"})
}

func (h *Handler) VerifyActivationCode(c *gin.Context) {
	var req model.VerifyActivationCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.service.VerifyActivationCode(c.Request.Context(), req.Email, req.Code); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "account activated"})
}
