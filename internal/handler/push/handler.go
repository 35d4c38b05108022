package push

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/zaimgo/marketing-api/internal/model"
	pushService "github.com/zaimgo/marketing-api/internal/service/push"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/httputil"
)

type Handler struct {
	service pushService.Servicer
}

func NewHandler(service pushService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.CreateNotification)
		notifications.GET("", h.ListNotifications)
		notifications.GET("/:id", h.GetNotification)
		notifications.PUT("/:id", h.UpdateNotification)
		notifications.DELETE("/:id", h.DeleteNotification)
		notifications.POST("/:id/send", h.SendNotification)
		notifications.GET("/:id/estimate", h.EstimateRecipients)
		notifications.POST("/:id/schedule", h.ScheduleNotification)
		notifications.DELETE("/:id/schedule", h.UnscheduleNotification)
		notifications.GET("/:id/stats", h.NotificationStats)
	}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/push/click", h.TrackClick)
}

type notificationRequest struct {
	Title           string  `json:"title" binding:"required"`
	Message         string  `json:"message" binding:"required"`
	Segment         string  `json:"segment" binding:"required"`
	TargetVKUserIDs []int64 `json:"target_vk_user_ids"`
	FilterCity      string  `json:"filter_city"`
	FilterSex       int     `json:"filter_sex"`
	FilterUTMSource string  `json:"filter_utm_source"`
	ActionURL       string  `json:"action_url"`
	ActionType      string  `json:"action_type"`
}

func (r *notificationRequest) toModel() *model.PushNotification {
	return &model.PushNotification{
		Title:           r.Title,
		Message:         r.Message,
		Segment:         model.SegmentKind(r.Segment),
		TargetVKUserIDs: pq.Int64Array(r.TargetVKUserIDs),
		FilterCity:      r.FilterCity,
		FilterSex:       r.FilterSex,
		FilterUTMSource: r.FilterUTMSource,
		ActionURL:       r.ActionURL,
		ActionType:      r.ActionType,
	}
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	n := req.toModel()
	if err := h.service.Create(c.Request.Context(), n); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondCreated(c, n)
}

func (h *Handler) GetNotification(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) UpdateNotification(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	n := req.toModel()
	n.ID = id
	if err := h.service.Update(c.Request.Context(), n); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, n)
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"message": "notification deleted"})
}

// SendNotification starts a send cycle immediately. A notification that
// already left draft or scheduled state is rejected with a conflict.
func (h *Handler) SendNotification(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	stats, err := h.service.Send(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, stats)
}

func (h *Handler) EstimateRecipients(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	count, err := h.service.RecipientCount(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"recipients": count})
}

type scheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

func (h *Handler) ScheduleNotification(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.service.Schedule(c.Request.Context(), id, req.ScheduledFor); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"id": id, "scheduled_for": req.ScheduledFor})
}

func (h *Handler) UnscheduleNotification(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.Unschedule(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"id": id, "status": model.NotificationStatusDraft})
}

func (h *Handler) NotificationStats(c *gin.Context) {
	id, err := parseNotificationID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, stats)
}

type clickRequest struct {
	VKUserID       int64  `json:"vk_user_id" binding:"required"`
	NotificationID string `json:"notification_id" binding:"required"`
}

// TrackClick attributes an open of the mini-app back to the push that
// caused it. Called by the frontend when the launch URL carries a
// notification marker.
func (h *Handler) TrackClick(c *gin.Context) {
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	notificationID, err := uuid.Parse(req.NotificationID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.RegisterClick(c.Request.Context(), req.VKUserID, notificationID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"message": "click registered"})
}

func parseNotificationID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid notification ID", err)
	}
	return id, nil
}
