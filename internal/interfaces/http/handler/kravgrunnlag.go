package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tilbakekreving/backend/internal/application/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/interfaces/http/middleware"
)

// KravgrunnlagHandler exposes claim document ingestion and lookup. Ingestion
// is idempotent on the external id; replaying the same feed message returns
// the stored document instead of a duplicate.
type KravgrunnlagHandler struct {
	BaseHandler
	service *kravgrunnlag.MottakService
}

// NewKravgrunnlagHandler creates a new KravgrunnlagHandler
func NewKravgrunnlagHandler(service *kravgrunnlag.MottakService) *KravgrunnlagHandler {
	return &KravgrunnlagHandler{service: service}
}

// RegisterRoutes registers the claim document routes
func (h *KravgrunnlagHandler) RegisterRoutes(rg *gin.RouterGroup) {
	kravgrunnlag := rg.Group("/kravgrunnlag")
	{
		kravgrunnlag.POST("", h.Motta)
		kravgrunnlag.GET("/ukonsumert", h.SisteUkonsumerte)
		kravgrunnlag.GET("/:id", h.Hent)
		kravgrunnlag.GET("/:id/parsed", h.Parsed)
	}
}

// Motta stores an inbound claim document
func (h *KravgrunnlagHandler) Motta(c *gin.Context) {
	var req kravgrunnlag.MottaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	response, err := h.service.Motta(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, response)
}

// Hent returns a stored claim document by id
func (h *KravgrunnlagHandler) Hent(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.service.HentMottak(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, response)
}

// Parsed returns the parsed view of a stored claim document
func (h *KravgrunnlagHandler) Parsed(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.service.Parse(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, response)
}

// SisteUkonsumerte returns the newest claim document no case has claimed yet
func (h *KravgrunnlagHandler) SisteUkonsumerte(c *gin.Context) {
	response, err := h.service.HentSisteUkonsumerte(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, response)
}
