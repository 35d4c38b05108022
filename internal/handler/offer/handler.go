package offer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zaimgo/marketing-api/internal/model"
	offerService "github.com/zaimgo/marketing-api/internal/service/offer"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/httputil"
)

// catalogCache is flushed after any catalog mutation so the public
// listing never serves stale rows past the write.
type catalogCache interface {
	Flush()
}

type Handler struct {
	service offerService.Servicer
	cache   catalogCache
}

func NewHandler(service offerService.Servicer, cache catalogCache) *Handler {
	return &Handler{service: service, cache: cache}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	offers := r.Group("/offers")
	{
		offers.GET("", h.ListOffers)
		offers.GET("/:id", h.GetOffer)
	}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	offers := r.Group("/offers")
	{
		offers.POST("", h.CreateOffer)
		offers.GET("", h.ListOffers)
		offers.GET("/:id", h.GetOffer)
		offers.PUT("/:id", h.UpdateOffer)
		offers.DELETE("/:id", h.DeleteOffer)
		offers.POST("/import", h.ImportOffers)
		offers.GET("/template", h.DownloadTemplate)
	}
}

type offerRequest struct {
	Name             string  `json:"name" binding:"required"`
	LogoURL          string  `json:"logo_url"`
	Link             string  `json:"link" binding:"required"`
	SumMin           int     `json:"sum_min"`
	SumMax           int     `json:"sum_max"`
	TermMin          int     `json:"term_min"`
	TermMax          int     `json:"term_max"`
	Rate             float64 `json:"rate"`
	ApprovalChance   int     `json:"approval_chance"`
	PayoutSpeedHours float64 `json:"payout_speed_hours"`
	Requirements     string  `json:"requirements"`
	GetMethods       string  `json:"get_methods"`
	RepayMethods     string  `json:"repay_methods"`
}

func (r *offerRequest) toModel() *model.Offer {
	return &model.Offer{
		Name:             r.Name,
		LogoURL:          r.LogoURL,
		Link:             r.Link,
		SumMin:           r.SumMin,
		SumMax:           r.SumMax,
		TermMin:          r.TermMin,
		TermMax:          r.TermMax,
		Rate:             r.Rate,
		ApprovalChance:   r.ApprovalChance,
		PayoutSpeedHours: r.PayoutSpeedHours,
		Requirements:     r.Requirements,
		GetMethods:       r.GetMethods,
		RepayMethods:     r.RepayMethods,
	}
}

func (h *Handler) CreateOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	offer := req.toModel()
	if err := h.service.Create(c.Request.Context(), offer); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.flushCache()
	httputil.RespondCreated(c, offer)
}

func (h *Handler) GetOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid offer ID", err))
		return
	}

	offer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, offer)
}

func (h *Handler) ListOffers(c *gin.Context) {
	offers, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, offers)
}

func (h *Handler) UpdateOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid offer ID", err))
		return
	}

	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	offer := req.toModel()
	offer.ID = id
	if err := h.service.Update(c.Request.Context(), offer); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.flushCache()
	httputil.RespondWithSuccess(c, offer)
}

func (h *Handler) DeleteOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid offer ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.flushCache()
	httputil.RespondWithSuccess(c, gin.H{"message": "offer deleted"})
}

// ImportOffers ingests an uploaded workbook. Row-level problems are
// reported in the summary instead of failing the whole upload.
func (h *Handler) ImportOffers(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("file is required", err))
		return
	}
	defer file.Close()

	summary, err := h.service.ImportWorkbook(c.Request.Context(), file)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.flushCache()
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) DownloadTemplate(c *gin.Context) {
	data, err := h.service.Template()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="offers_template.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handler) flushCache() {
	if h.cache != nil {
		h.cache.Flush()
	}
}
