package behandling

import (
	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
)

// Event type discriminators, stored with each event row
const (
	TypeBehandlingOpprettet = "behandling.opprettet"
	TypeVurderingRegistrert = "behandling.vurdering_registrert"
	TypeBrevtekstOppdatert  = "behandling.brevtekst_oppdatert"
	TypeSendtTilAttestering = "behandling.sendt_til_attestering"
	TypeAttestert           = "behandling.attestert"
	TypeUnderkjent          = "behandling.underkjent"
	TypeAvbrutt             = "behandling.avbrutt"
)

// UnderkjennelseÅrsak is the closed set of structured reasons an attestor can
// return a case with
type UnderkjennelseÅrsak string

const (
	ÅrsakFeilHjemmel            UnderkjennelseÅrsak = "FEIL_HJEMMEL"
	ÅrsakBeregningsfeil         UnderkjennelseÅrsak = "BEREGNINGSFEIL"
	ÅrsakManglendeDokumentasjon UnderkjennelseÅrsak = "MANGLENDE_DOKUMENTASJON"
	ÅrsakFeilBrevtekst          UnderkjennelseÅrsak = "FEIL_BREVTEKST"
	ÅrsakAnnet                  UnderkjennelseÅrsak = "ANNET"
)

// IsValid checks if the value is a known rejection reason
func (å UnderkjennelseÅrsak) IsValid() bool {
	switch å {
	case ÅrsakFeilHjemmel, ÅrsakBeregningsfeil, ÅrsakManglendeDokumentasjon, ÅrsakFeilBrevtekst, ÅrsakAnnet:
		return true
	}
	return false
}

// BehandlingOpprettet opens a case against a claim document. The parsed
// document is embedded as a snapshot so that replay needs nothing but the
// stream itself.
type BehandlingOpprettet struct {
	MottakID     uuid.UUID                 `json:"mottak_id"`
	Kravgrunnlag kravgrunnlag.Kravgrunnlag `json:"kravgrunnlag"`
}

// Hendelsestype implements hendelse.Innhold
func (BehandlingOpprettet) Hendelsestype() string { return TypeBehandlingOpprettet }

// VurderingRegistrert records or replaces the assessment for one period
type VurderingRegistrert struct {
	Vurdering Vurdering `json:"vurdering"`
}

// Hendelsestype implements hendelse.Innhold
func (VurderingRegistrert) Hendelsestype() string { return TypeVurderingRegistrert }

// BrevtekstOppdatert attaches or replaces the decision letter text
type BrevtekstOppdatert struct {
	Brevtekst string `json:"brevtekst"`
}

// Hendelsestype implements hendelse.Innhold
func (BrevtekstOppdatert) Hendelsestype() string { return TypeBrevtekstOppdatert }

// SendtTilAttestering submits the case for second-party approval. The
// submitting caseworker is the event's metadata actor.
type SendtTilAttestering struct{}

// Hendelsestype implements hendelse.Innhold
func (SendtTilAttestering) Hendelsestype() string { return TypeSendtTilAttestering }

// Attestert approves the case. The attestor is the event's metadata actor.
type Attestert struct{}

// Hendelsestype implements hendelse.Innhold
func (Attestert) Hendelsestype() string { return TypeAttestert }

// Underkjent returns the case to assessment with a structured reason
type Underkjent struct {
	Årsak     UnderkjennelseÅrsak `json:"aarsak"`
	Kommentar string              `json:"kommentar"`
}

// Hendelsestype implements hendelse.Innhold
func (Underkjent) Hendelsestype() string { return TypeUnderkjent }

// BehandlingAvbrutt abandons the case with a free-text justification
type BehandlingAvbrutt struct {
	Begrunnelse string `json:"begrunnelse"`
}

// Hendelsestype implements hendelse.Innhold
func (BehandlingAvbrutt) Hendelsestype() string { return TypeAvbrutt }
