package behandling

import (
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/domain/shared"
)

// TilstandNavn identifies a case state in projections and logs
type TilstandNavn string

const (
	NavnOpprettet          TilstandNavn = "OPPRETTET"
	NavnUnderVurdering     TilstandNavn = "UNDER_VURDERING"
	NavnKlarTilAttestering TilstandNavn = "KLAR_TIL_ATTESTERING"
	NavnTilAttestering     TilstandNavn = "TIL_ATTESTERING"
	NavnIverksatt          TilstandNavn = "IVERKSATT"
	NavnAvbrutt            TilstandNavn = "AVBRUTT"
)

// Underkjennelse is the structured outcome of a failed attestation
type Underkjennelse struct {
	Årsak     UnderkjennelseÅrsak `json:"aarsak"`
	Kommentar string              `json:"kommentar"`
	Attestant string              `json:"attestant"`
}

// Behandlingsdata is the data shared by every case state. It is only ever
// produced by folding the case's event stream.
type Behandlingsdata struct {
	BehandlingID        uuid.UUID
	SakID               uuid.UUID
	MottakID            uuid.UUID
	Kravgrunnlag        kravgrunnlag.Kravgrunnlag
	Vurderinger         []Vurdering
	Brevtekst           string
	SendtAv             string
	SisteUnderkjennelse *Underkjennelse
}

// Tilstand is the closed set of case states. Each concrete state exposes only
// the commands that are legal in it, so an operation that makes no sense in a
// state cannot be written against it at all. The set is sealed by the
// unexported marker method; switches over Tilstand can be exhaustive.
type Tilstand interface {
	Navn() TilstandNavn
	Data() Behandlingsdata
	ErTerminal() bool
	tilstand()
}

// vurderingsfase carries the commands common to the states where a
// caseworker is still working the case.
type vurderingsfase struct {
	data Behandlingsdata
}

func (f vurderingsfase) Data() Behandlingsdata { return f.data }
func (f vurderingsfase) ErTerminal() bool      { return false }
func (f vurderingsfase) tilstand()             {}

// RegistrerVurdering records or replaces the assessment for one period.
// Periods outside the claim document are accepted here and surface as a
// reconciliation mismatch when the case tries to advance.
func (f vurderingsfase) RegistrerVurdering(v Vurdering) (VurderingRegistrert, error) {
	if !v.Utfall.IsValid() {
		return VurderingRegistrert{}, shared.NewDomainError("INVALID_VURDERING", "Unknown assessment outcome")
	}
	return VurderingRegistrert{Vurdering: v}, nil
}

// OppdaterBrevtekst attaches or replaces the decision letter text
func (f vurderingsfase) OppdaterBrevtekst(tekst string) (BrevtekstOppdatert, error) {
	if tekst == "" {
		return BrevtekstOppdatert{}, shared.NewDomainError("INVALID_INPUT", "Decision letter text cannot be empty")
	}
	return BrevtekstOppdatert{Brevtekst: tekst}, nil
}

// Avbryt abandons the case
func (f vurderingsfase) Avbryt(begrunnelse string) (BehandlingAvbrutt, error) {
	if begrunnelse == "" {
		return BehandlingAvbrutt{}, shared.NewDomainError("INVALID_INPUT", "Cancellation needs a justification")
	}
	return BehandlingAvbrutt{Begrunnelse: begrunnelse}, nil
}

// Opprettet is the initial state: a case opened against a claim document,
// with no assessments recorded yet.
type Opprettet struct {
	vurderingsfase
}

// Navn implements Tilstand
func (Opprettet) Navn() TilstandNavn { return NavnOpprettet }

// UnderVurdering holds zero or more recorded assessments that do not yet
// reconcile, or a case missing its decision letter, or a case returned by an
// attestor.
type UnderVurdering struct {
	vurderingsfase
}

// Navn implements Tilstand
func (UnderVurdering) Navn() TilstandNavn { return NavnUnderVurdering }

// KlarTilAttestering is the only state from which attestation can be
// requested: the assessments reconcile against the claim document and a
// decision letter is attached.
type KlarTilAttestering struct {
	vurderingsfase
}

// Navn implements Tilstand
func (KlarTilAttestering) Navn() TilstandNavn { return NavnKlarTilAttestering }

// SendTilAttestering submits the case for second-party approval
func (s KlarTilAttestering) SendTilAttestering() (SendtTilAttestering, error) {
	return SendtTilAttestering{}, nil
}

// TilAttestering awaits approval by someone other than the submitter
type TilAttestering struct {
	data Behandlingsdata
}

// Navn implements Tilstand
func (TilAttestering) Navn() TilstandNavn { return NavnTilAttestering }

// Data implements Tilstand
func (s TilAttestering) Data() Behandlingsdata { return s.data }

// ErTerminal implements Tilstand
func (TilAttestering) ErTerminal() bool { return false }

func (TilAttestering) tilstand() {}

// SendtAv returns the caseworker who submitted the case
func (s TilAttestering) SendtAv() string { return s.data.SendtAv }

// Attester approves the case. The attestor must differ from the submitting
// caseworker.
func (s TilAttestering) Attester(attestant string) (Attestert, error) {
	if attestant == "" {
		return Attestert{}, shared.NewDomainError("INVALID_INPUT", "Attestation needs an actor identity")
	}
	if attestant == s.data.SendtAv {
		return Attestert{}, shared.ErrSelfAttestation
	}
	return Attestert{}, nil
}

// Underkjenn returns the case to assessment with a structured reason
func (s TilAttestering) Underkjenn(attestant string, årsak UnderkjennelseÅrsak, kommentar string) (Underkjent, error) {
	if attestant == "" {
		return Underkjent{}, shared.NewDomainError("INVALID_INPUT", "Rejection needs an actor identity")
	}
	if attestant == s.data.SendtAv {
		return Underkjent{}, shared.ErrSelfAttestation
	}
	if !årsak.IsValid() {
		return Underkjent{}, shared.NewDomainError("INVALID_INPUT", "Unknown rejection reason: "+string(årsak))
	}
	return Underkjent{Årsak: årsak, Kommentar: kommentar}, nil
}

// Avbryt abandons the case
func (s TilAttestering) Avbryt(begrunnelse string) (BehandlingAvbrutt, error) {
	if begrunnelse == "" {
		return BehandlingAvbrutt{}, shared.NewDomainError("INVALID_INPUT", "Cancellation needs a justification")
	}
	return BehandlingAvbrutt{Begrunnelse: begrunnelse}, nil
}

// Iverksatt is terminal: the case is approved and its decision is being (or
// has been) dispatched to the payment system.
type Iverksatt struct {
	data        Behandlingsdata
	Attestant   string
	AttestertAt time.Time
}

// Navn implements Tilstand
func (Iverksatt) Navn() TilstandNavn { return NavnIverksatt }

// Data implements Tilstand
func (s Iverksatt) Data() Behandlingsdata { return s.data }

// ErTerminal implements Tilstand
func (Iverksatt) ErTerminal() bool { return true }

func (Iverksatt) tilstand() {}

// Avstemt returns the reconciled assessment set. The fold only admits this
// state after reconciliation succeeded, so the error path is unreachable on
// an intact stream.
func (s Iverksatt) Avstemt() (*AvstemtVurdering, error) {
	return Avstem(s.data.Vurderinger, &s.data.Kravgrunnlag)
}

// Avbrutt is terminal: the case was abandoned by a caseworker
type Avbrutt struct {
	data        Behandlingsdata
	Begrunnelse string
	AvbruttAv   string
	AvbruttAt   time.Time
}

// Navn implements Tilstand
func (Avbrutt) Navn() TilstandNavn { return NavnAvbrutt }

// Data implements Tilstand
func (s Avbrutt) Data() Behandlingsdata { return s.data }

// ErTerminal implements Tilstand
func (Avbrutt) ErTerminal() bool { return true }

func (Avbrutt) tilstand() {}
