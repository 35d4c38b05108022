package user

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	userService "github.com/zaimgo/marketing-api/internal/service/user"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/httputil"
)

type Handler struct {
	service userService.Servicer
}

func NewHandler(service userService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("/register", h.Register)
		users.POST("/allow-notifications", h.AllowNotifications)
		users.GET("/:vk_user_id/status", h.Status)
		users.POST("/:vk_user_id/sync-permission", h.SyncPermission)
	}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/stats", h.Stats)
	}
}

type registerRequest struct {
	VKUserID    int64           `json:"vk_user_id" binding:"required"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	City        string          `json:"city"`
	Country     string          `json:"country"`
	Sex         int             `json:"sex"`
	BDate       string          `json:"bdate"`
	UTMSource   string          `json:"utm_source"`
	UTMCampaign string          `json:"utm_campaign"`
	UTMContent  string          `json:"utm_content"`
	Extra       json.RawMessage `json:"extra"`
}

// Register upserts the caller in the user directory. The mini-app calls
// this on every launch, so the same endpoint covers both first visits
// and profile refreshes.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	profile := &userService.Profile{
		VKUserID:  req.VKUserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
		Country:   req.Country,
		Sex:       req.Sex,
		BDate:     req.BDate,
	}
	utm := &userService.UTMParams{
		Source:   req.UTMSource,
		Campaign: req.UTMCampaign,
		Content:  req.UTMContent,
	}

	u, err := h.service.RegisterOrUpdate(c.Request.Context(), profile, utm, req.Extra)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

type allowNotificationsRequest struct {
	VKUserID int64 `json:"vk_user_id" binding:"required"`
	Enabled  *bool `json:"enabled"`
}

func (h *Handler) AllowNotifications(c *gin.Context) {
	var req allowNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	if err := h.service.EnableNotifications(c.Request.Context(), req.VKUserID, enabled); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"vk_user_id": req.VKUserID, "notifications_enabled": enabled})
}

func (h *Handler) Status(c *gin.Context) {
	vkUserID, err := parseVKUserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	u, err := h.service.Status(c.Request.Context(), vkUserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, u)
}

// SyncPermission re-reads the platform-side push permission and stores
// the answer on the user row.
func (h *Handler) SyncPermission(c *gin.Context) {
	vkUserID, err := parseVKUserID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	allowed, err := h.service.SyncNotificationsPermission(c.Request.Context(), vkUserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"vk_user_id": vkUserID, "notifications_allowed": allowed})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, stats)
}

func parseVKUserID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("vk_user_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid VK user ID", err)
	}
	return id, nil
}
