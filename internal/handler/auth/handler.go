package auth

import (
	"github.com/gin-gonic/gin"

	authService "github.com/zaimgo/marketing-api/internal/service/auth"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/httputil"
)

type Handler struct {
	service authService.Servicer
}

func NewHandler(service authService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"token": token})
}
