package behandling

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tilbakekreving/backend/internal/domain/behandling"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

// OpprettRequest opens a case against a stored claim document
type OpprettRequest struct {
	SakID    uuid.UUID `json:"sak_id" binding:"required"`
	MottakID uuid.UUID `json:"mottak_id" binding:"required"`
}

// VurderingRequest records the assessment for one period
type VurderingRequest struct {
	Fom    string `json:"fom" binding:"required"`
	Tom    string `json:"tom" binding:"required"`
	Utfall string `json:"utfall" binding:"required"`
}

// Periode converts the request dates to a domain period
func (r VurderingRequest) Periode() (valueobject.Periode, error) {
	fom, err := time.Parse(time.DateOnly, r.Fom)
	if err != nil {
		return valueobject.Periode{}, shared.NewDomainError("INVALID_INPUT", "fom is not a date: "+r.Fom)
	}
	tom, err := time.Parse(time.DateOnly, r.Tom)
	if err != nil {
		return valueobject.Periode{}, shared.NewDomainError("INVALID_INPUT", "tom is not a date: "+r.Tom)
	}
	return valueobject.NewPeriode(fom, tom)
}

// BrevtekstRequest attaches or replaces the decision letter text
type BrevtekstRequest struct {
	Brevtekst string `json:"brevtekst" binding:"required"`
}

// UnderkjennRequest returns a case to assessment
type UnderkjennRequest struct {
	Årsak     string `json:"aarsak" binding:"required"`
	Kommentar string `json:"kommentar"`
}

// AvbrytRequest abandons a case
type AvbrytRequest struct {
	Begrunnelse string `json:"begrunnelse" binding:"required"`
}

// VurderingResponse is one recorded period assessment
type VurderingResponse struct {
	Fom    string `json:"fom"`
	Tom    string `json:"tom"`
	Utfall string `json:"utfall"`
}

// UnderkjennelseResponse is the structured outcome of a failed attestation
type UnderkjennelseResponse struct {
	Årsak     string `json:"aarsak"`
	Kommentar string `json:"kommentar"`
	Attestant string `json:"attestant"`
}

// KravgrunnlagSummary is the claim document as seen from a case
type KravgrunnlagSummary struct {
	EksternID          string          `json:"ekstern_id"`
	Mottaker           string          `json:"mottaker"`
	AntallPerioder     int             `json:"antall_perioder"`
	TotaltFeilutbetalt decimal.Decimal `json:"totalt_feilutbetalt"`
}

// BehandlingResponse is the current state of a case, derived by replaying its
// event stream.
type BehandlingResponse struct {
	BehandlingID   uuid.UUID               `json:"behandling_id"`
	SakID          uuid.UUID               `json:"sak_id"`
	MottakID       uuid.UUID               `json:"mottak_id"`
	Tilstand       string                  `json:"tilstand"`
	Versjon        int64                   `json:"versjon"`
	Kravgrunnlag   KravgrunnlagSummary     `json:"kravgrunnlag"`
	Vurderinger    []VurderingResponse     `json:"vurderinger"`
	Brevtekst      string                  `json:"brevtekst,omitempty"`
	SendtAv        string                  `json:"sendt_av,omitempty"`
	Attestant      string                  `json:"attestant,omitempty"`
	Underkjennelse *UnderkjennelseResponse `json:"underkjennelse,omitempty"`
}

// HendelseResponse is one entry in a case's history, carrying the actor
// metadata recorded at append time.
type HendelseResponse struct {
	ID            uuid.UUID `json:"id"`
	Versjon       int64     `json:"versjon"`
	Type          string    `json:"type"`
	Ident         string    `json:"ident"`
	Roller        []string  `json:"roller,omitempty"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	OpprettetAt   time.Time `json:"opprettet_at"`
}

// AvstemmingResponse reports how the recorded assessments line up against the
// claim document periods.
type AvstemmingResponse struct {
	Komplett  bool     `json:"komplett"`
	Manglende []string `json:"manglende,omitempty"`
	Ukjente   []string `json:"ukjente,omitempty"`
}

// ToBehandlingResponse converts a folded case state to its response form
func ToBehandlingResponse(state behandling.Tilstand, versjon int64) BehandlingResponse {
	data := state.Data()

	vurderinger := make([]VurderingResponse, 0, len(data.Vurderinger))
	for _, v := range data.Vurderinger {
		vurderinger = append(vurderinger, VurderingResponse{
			Fom:    v.Periode.Fom().Format(time.DateOnly),
			Tom:    v.Periode.Tom().Format(time.DateOnly),
			Utfall: v.Utfall.String(),
		})
	}

	response := BehandlingResponse{
		BehandlingID: data.BehandlingID,
		SakID:        data.SakID,
		MottakID:     data.MottakID,
		Tilstand:     string(state.Navn()),
		Versjon:      versjon,
		Kravgrunnlag: KravgrunnlagSummary{
			EksternID:          data.Kravgrunnlag.EksternID,
			Mottaker:           data.Kravgrunnlag.Mottaker,
			AntallPerioder:     len(data.Kravgrunnlag.Perioder),
			TotaltFeilutbetalt: data.Kravgrunnlag.TotaltFeilutbetalt(),
		},
		Vurderinger: vurderinger,
		Brevtekst:   data.Brevtekst,
		SendtAv:     data.SendtAv,
	}

	if data.SisteUnderkjennelse != nil {
		response.Underkjennelse = &UnderkjennelseResponse{
			Årsak:     string(data.SisteUnderkjennelse.Årsak),
			Kommentar: data.SisteUnderkjennelse.Kommentar,
			Attestant: data.SisteUnderkjennelse.Attestant,
		}
	}

	if iverksatt, ok := state.(behandling.Iverksatt); ok {
		response.Attestant = iverksatt.Attestant
	}

	return response
}
