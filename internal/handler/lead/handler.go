package lead

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	leadService "github.com/zaimgo/marketing-api/internal/service/lead"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/httputil"
)

type Handler struct {
	service leadService.Servicer
}

func NewHandler(service leadService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/leads/click", h.ForwardClick)
}

type forwardRequest struct {
	VKUserID int64  `json:"vk_user_id" binding:"required"`
	OfferID  string `json:"offer_id" binding:"required"`
	AdID     string `json:"ad_id"`
}

// ForwardClick hands an attributed offer click to the affiliate
// network. The frontend fires it right before redirecting the user to
// the lender.
func (h *Handler) ForwardClick(c *gin.Context) {
	var req forwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	offerID, err := uuid.Parse(req.OfferID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid offer ID", err))
		return
	}

	if err := h.service.ForwardClick(c.Request.Context(), req.VKUserID, offerID, req.AdID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"message": "lead forwarded"})
}
