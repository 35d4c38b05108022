package utm

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaimgo/marketing-api/internal/model"
	utmService "github.com/zaimgo/marketing-api/internal/service/utm"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/httputil"
)

type Handler struct {
	service utmService.Servicer
}

func NewHandler(service utmService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/utm/track", h.TrackVisit)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/utm/stats", h.Stats)
}

type trackRequest struct {
	VKUserID    int64  `json:"vk_user_id" binding:"required"`
	UTMSource   string `json:"utm_source"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	AdID        string `json:"ad_id"`
}

func (h *Handler) TrackVisit(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	visit := &model.UTMVisit{
		VKUserID:    req.VKUserID,
		UTMSource:   req.UTMSource,
		UTMCampaign: req.UTMCampaign,
		UTMContent:  req.UTMContent,
		AdID:        req.AdID,
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	}

	if err := h.service.Track(c.Request.Context(), visit); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondCreated(c, visit)
}

func (h *Handler) Stats(c *gin.Context) {
	var from, to time.Time
	var err error

	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid 'from' timestamp", err))
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid 'to' timestamp", err))
			return
		}
	}

	stats, err := h.service.Stats(c.Request.Context(), from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, stats)
}
