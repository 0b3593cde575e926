package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tilbakekreving/backend/internal/application/iverksettelse"
)

// UtsendingHandler exposes read-only views of the dispatch queue, mainly so
// operations can watch the pending backlog and act on dead-lettered entries.
type UtsendingHandler struct {
	BaseHandler
	service *iverksettelse.UtsendingQueryService
}

// NewUtsendingHandler creates a new UtsendingHandler
func NewUtsendingHandler(service *iverksettelse.UtsendingQueryService) *UtsendingHandler {
	return &UtsendingHandler{service: service}
}

// RegisterRoutes registers the dispatch queue routes
func (h *UtsendingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	utsendinger := rg.Group("/utsendinger")
	{
		utsendinger.GET("/pending", h.Pending)
		utsendinger.GET("/dead", h.Dead)
	}
	rg.GET("/behandlinger/:id/utsending", h.ForBehandling)
}

// Pending returns queued dispatches that have not been sent yet
func (h *UtsendingHandler) Pending(c *gin.Context) {
	limit := queryLimit(c, 50, 500)

	responses, err := h.service.Pending(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, responses)
}

// Dead returns dead-lettered dispatches awaiting manual action
func (h *UtsendingHandler) Dead(c *gin.Context) {
	limit := queryLimit(c, 50, 500)

	responses, err := h.service.Dead(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, responses)
}

// ForBehandling returns the dispatch entry queued for a finalized case
func (h *UtsendingHandler) ForBehandling(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.service.ForBehandling(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, response)
}
