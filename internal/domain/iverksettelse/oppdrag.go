package iverksettelse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tilbakekreving/backend/internal/domain/behandling"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

// Oppdragslinje is one recovery line in the outbound decision: a period in
// which the overpayment is claimed back, with its withholding tax rate.
type Oppdragslinje struct {
	Periode       valueobject.Periode `json:"periode"`
	Beløp         decimal.Decimal     `json:"beloep"`
	Skatteprosent decimal.Decimal     `json:"skatteprosent"`
}

// Oppdrag is the finalized decision sent to the payment mainframe. EksternRef
// is the stable reference the remote system deduplicates on; a retried
// dispatch after an ambiguous failure must not double-apply. That idempotency
// contract is an assumption about the remote system, not something this
// service can verify.
type Oppdrag struct {
	BehandlingID  uuid.UUID       `json:"behandling_id"`
	SakID         uuid.UUID       `json:"sak_id"`
	EksternRef    string          `json:"ekstern_ref"`
	Mottaker      string          `json:"mottaker"`
	Saksbehandler string          `json:"saksbehandler"`
	Attestant     string          `json:"attestant"`
	Linjer        []Oppdragslinje `json:"linjer"`
}

// NyttOppdrag builds the outbound decision from a finalized case. Only
// periods assessed for recovery become lines; a case with no recoverable
// periods is closed administratively and must not be dispatched.
func NyttOppdrag(iverksatt behandling.Iverksatt) (*Oppdrag, error) {
	avstemt, err := iverksatt.Avstemt()
	if err != nil {
		return nil, err
	}
	if !avstemt.HarNoenKrevesTilbake() {
		return nil, shared.NewDomainError("NOTHING_TO_RECOVER", "No period resolves to recovery; nothing to dispatch")
	}

	data := iverksatt.Data()
	var linjer []Oppdragslinje
	for _, v := range avstemt.Vurderinger() {
		if v.Utfall != behandling.UtfallKrevTilbake {
			continue
		}
		linje, found := data.Kravgrunnlag.PeriodeFor(v.Periode)
		if !found {
			return nil, shared.NewDomainError("INVALID_STATE", "Assessed period missing from claim document: "+v.Periode.String())
		}
		linjer = append(linjer, Oppdragslinje{
			Periode:       v.Periode,
			Beløp:         linje.Feilutbetalt,
			Skatteprosent: linje.Skatteprosent,
		})
	}

	return &Oppdrag{
		BehandlingID:  data.BehandlingID,
		SakID:         data.SakID,
		EksternRef:    data.Kravgrunnlag.EksternID,
		Mottaker:      data.Kravgrunnlag.Mottaker,
		Saksbehandler: data.SendtAv,
		Attestant:     iverksatt.Attestant,
		Linjer:        linjer,
	}, nil
}

// Kvittering is the remote acknowledgement of a dispatched decision
type Kvittering struct {
	EksternKvitteringID string    `json:"ekstern_kvittering_id"`
	MottattAt           time.Time `json:"mottatt_at"`
}

// Klient sends decisions to the payment mainframe. Send blocks for one
// round-trip with a timeout; failures come back classified as *Dispatchfeil.
type Klient interface {
	Send(ctx context.Context, oppdrag *Oppdrag) (*Kvittering, error)
}
