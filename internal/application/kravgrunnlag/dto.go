package kravgrunnlag

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
)

// MottaRequest is the inbound feed message: an external id and the raw
// document payload.
type MottaRequest struct {
	EksternID string `json:"ekstern_id" binding:"required"`
	Payload   []byte `json:"payload" binding:"required"`
}

// MottakResponse describes a stored raw claim document
type MottakResponse struct {
	ID          uuid.UUID  `json:"id"`
	EksternID   string     `json:"ekstern_id"`
	MottattAt   time.Time  `json:"mottatt_at"`
	Konsumert   bool       `json:"konsumert"`
	KonsumertAv *uuid.UUID `json:"konsumert_av,omitempty"`
}

// PeriodeResponse is one parsed claim period
type PeriodeResponse struct {
	Fom               string          `json:"fom"`
	Tom               string          `json:"tom"`
	TidligereUtbetalt decimal.Decimal `json:"tidligere_utbetalt"`
	Korrigert         decimal.Decimal `json:"korrigert"`
	Feilutbetalt      decimal.Decimal `json:"feilutbetalt"`
	Skatteprosent     decimal.Decimal `json:"skatteprosent"`
}

// KravgrunnlagResponse is the parsed view of a stored document
type KravgrunnlagResponse struct {
	MottakID           uuid.UUID         `json:"mottak_id"`
	EksternID          string            `json:"ekstern_id"`
	Mottaker           string            `json:"mottaker"`
	Perioder           []PeriodeResponse `json:"perioder"`
	TotaltFeilutbetalt decimal.Decimal   `json:"totalt_feilutbetalt"`
}

// ToMottakResponse converts a domain document to its response form
func ToMottakResponse(m *kravgrunnlag.MottattKravgrunnlag) MottakResponse {
	return MottakResponse{
		ID:          m.ID,
		EksternID:   m.EksternID,
		MottattAt:   m.MottattAt,
		Konsumert:   m.ErKonsumert(),
		KonsumertAv: m.KonsumertAv,
	}
}

// ToKravgrunnlagResponse converts a parsed document to its response form
func ToKravgrunnlagResponse(mottakID uuid.UUID, kg *kravgrunnlag.Kravgrunnlag) KravgrunnlagResponse {
	perioder := make([]PeriodeResponse, 0, len(kg.Perioder))
	for _, p := range kg.Perioder {
		perioder = append(perioder, PeriodeResponse{
			Fom:               p.Periode.Fom().Format(time.DateOnly),
			Tom:               p.Periode.Tom().Format(time.DateOnly),
			TidligereUtbetalt: p.TidligereUtbetalt,
			Korrigert:         p.Korrigert,
			Feilutbetalt:      p.Feilutbetalt,
			Skatteprosent:     p.Skatteprosent,
		})
	}
	return KravgrunnlagResponse{
		MottakID:           mottakID,
		EksternID:          kg.EksternID,
		Mottaker:           kg.Mottaker,
		Perioder:           perioder,
		TotaltFeilutbetalt: kg.TotaltFeilutbetalt(),
	}
}
