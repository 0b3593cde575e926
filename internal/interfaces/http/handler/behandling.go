package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/application/behandling"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/interfaces/http/middleware"
)

// BehandlingHandler exposes the case commands and queries. Mutating commands
// carry the caller's expected case version in the If-Match header; the
// response ETag carries the version after the command, so a client can chain
// commands without re-reading.
type BehandlingHandler struct {
	BaseHandler
	service *behandling.BehandlingService
}

// NewBehandlingHandler creates a new BehandlingHandler
func NewBehandlingHandler(service *behandling.BehandlingService) *BehandlingHandler {
	return &BehandlingHandler{service: service}
}

// RegisterRoutes registers the case routes
func (h *BehandlingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	behandlinger := rg.Group("/behandlinger")
	{
		behandlinger.POST("", h.Opprett)
		behandlinger.GET("/:id", h.Hent)
		behandlinger.GET("/:id/avstemming", h.Avstemming)
		behandlinger.GET("/:id/historikk", h.Historikk)
		behandlinger.POST("/:id/vurderinger", h.RegistrerVurdering)
		behandlinger.PUT("/:id/brevtekst", h.OppdaterBrevtekst)
		behandlinger.POST("/:id/send-til-attestering", h.SendTilAttestering)
		behandlinger.POST("/:id/attester", h.Attester)
		behandlinger.POST("/:id/underkjenn", h.Underkjenn)
		behandlinger.POST("/:id/avbryt", h.Avbryt)
	}
}

// Opprett opens a case against a stored claim document
func (h *BehandlingHandler) Opprett(c *gin.Context) {
	var req behandling.OpprettRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	meta, err := getMetadata(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	response, err := h.service.Opprett(c.Request.Context(), meta, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setVersion(c, response.Versjon)
	h.Created(c, response)
}

// Hent returns the current state of a case
func (h *BehandlingHandler) Hent(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.service.Hent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setVersion(c, response.Versjon)
	h.Success(c, response)
}

// Avstemming reports how the recorded assessments line up against the claim
// document.
func (h *BehandlingHandler) Avstemming(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.service.Avstemming(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, response)
}

// Historikk returns the case's recorded events in append order
func (h *BehandlingHandler) Historikk(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	historikk, err := h.service.Historikk(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, historikk)
}

// RegistrerVurdering records or replaces the assessment for one period
func (h *BehandlingHandler) RegistrerVurdering(c *gin.Context) {
	var req behandling.VurderingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	h.utfør(c, func(ctx context.Context, meta shared.Metadata, id uuid.UUID, version int64) (*behandling.BehandlingResponse, error) {
		return h.service.RegistrerVurdering(ctx, meta, id, version, req)
	})
}

// OppdaterBrevtekst attaches or replaces the decision letter text
func (h *BehandlingHandler) OppdaterBrevtekst(c *gin.Context) {
	var req behandling.BrevtekstRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	h.utfør(c, func(ctx context.Context, meta shared.Metadata, id uuid.UUID, version int64) (*behandling.BehandlingResponse, error) {
		return h.service.OppdaterBrevtekst(ctx, meta, id, version, req)
	})
}

// SendTilAttestering submits the case for second-party approval
func (h *BehandlingHandler) SendTilAttestering(c *gin.Context) {
	h.utfør(c, func(ctx context.Context, meta shared.Metadata, id uuid.UUID, version int64) (*behandling.BehandlingResponse, error) {
		return h.service.SendTilAttestering(ctx, meta, id, version)
	})
}

// Attester approves the case and queues its dispatch
func (h *BehandlingHandler) Attester(c *gin.Context) {
	h.utfør(c, func(ctx context.Context, meta shared.Metadata, id uuid.UUID, version int64) (*behandling.BehandlingResponse, error) {
		return h.service.Attester(ctx, meta, id, version)
	})
}

// Underkjenn returns the case to assessment with a structured reason
func (h *BehandlingHandler) Underkjenn(c *gin.Context) {
	var req behandling.UnderkjennRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	h.utfør(c, func(ctx context.Context, meta shared.Metadata, id uuid.UUID, version int64) (*behandling.BehandlingResponse, error) {
		return h.service.Underkjenn(ctx, meta, id, version, req)
	})
}

// Avbryt abandons the case
func (h *BehandlingHandler) Avbryt(c *gin.Context) {
	var req behandling.AvbrytRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	h.utfør(c, func(ctx context.Context, meta shared.Metadata, id uuid.UUID, version int64) (*behandling.BehandlingResponse, error) {
		return h.service.Avbryt(ctx, meta, id, version, req)
	})
}

// utfør runs one versioned case command: path id, caller identity, If-Match
// version, then the command itself.
func (h *BehandlingHandler) utfør(c *gin.Context, kommando func(context.Context, shared.Metadata, uuid.UUID, int64) (*behandling.BehandlingResponse, error)) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	version, err := expectedVersion(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	meta, err := getMetadata(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	response, err := kommando(c.Request.Context(), meta, id, version)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setVersion(c, response.Versjon)
	h.Success(c, response)
}

// setVersion exposes the case version after the command as the response ETag
func (h *BehandlingHandler) setVersion(c *gin.Context, versjon int64) {
	c.Header("ETag", `"`+strconv.FormatInt(versjon, 10)+`"`)
}
