package behandling

import (
	"fmt"

	"github.com/tilbakekreving/backend/internal/domain/hendelse"
	"github.com/tilbakekreving/backend/internal/domain/shared"
)

// Fold is the pure state-transition function for a case stream. State is
// derived exclusively by folding events in version order; there is no other
// representation of a case. An event that is not applicable to the current
// state means the stored stream violates the state machine, which is data
// corruption, not a business condition - the fold fails loudly.
func Fold(state Tilstand, h hendelse.Hendelse) (Tilstand, error) {
	switch innhold := h.Innhold.(type) {
	case BehandlingOpprettet:
		if state != nil {
			return nil, foldError(h, "case is already opened")
		}
		return Opprettet{vurderingsfase{data: Behandlingsdata{
			BehandlingID: h.StreamID,
			SakID:        h.SakID,
			MottakID:     innhold.MottakID,
			Kravgrunnlag: innhold.Kravgrunnlag,
		}}}, nil

	case VurderingRegistrert:
		data, err := arbeidsdata(state, h)
		if err != nil {
			return nil, err
		}
		data.Vurderinger = upsertVurdering(data.Vurderinger, innhold.Vurdering)
		return klassifiser(data), nil

	case BrevtekstOppdatert:
		data, err := arbeidsdata(state, h)
		if err != nil {
			return nil, err
		}
		data.Brevtekst = innhold.Brevtekst
		return klassifiser(data), nil

	case SendtTilAttestering:
		klar, ok := state.(KlarTilAttestering)
		if !ok {
			return nil, foldError(h, "submission is only possible from KLAR_TIL_ATTESTERING")
		}
		data := klar.Data()
		data.SendtAv = h.Meta.Ident
		return TilAttestering{data: data}, nil

	case Attestert:
		til, ok := state.(TilAttestering)
		if !ok {
			return nil, foldError(h, "attestation is only possible from TIL_ATTESTERING")
		}
		return Iverksatt{
			data:        til.data,
			Attestant:   h.Meta.Ident,
			AttestertAt: h.OpprettetAt,
		}, nil

	case Underkjent:
		til, ok := state.(TilAttestering)
		if !ok {
			return nil, foldError(h, "rejection is only possible from TIL_ATTESTERING")
		}
		// The case goes back to assessment with prior assessments intact;
		// the caseworker is not starting over.
		data := til.data
		data.SendtAv = ""
		data.SisteUnderkjennelse = &Underkjennelse{
			Årsak:     innhold.Årsak,
			Kommentar: innhold.Kommentar,
			Attestant: h.Meta.Ident,
		}
		return UnderVurdering{vurderingsfase{data: data}}, nil

	case BehandlingAvbrutt:
		if state == nil || state.ErTerminal() {
			return nil, foldError(h, "cancellation is only possible before the case is closed")
		}
		return Avbrutt{
			data:        state.Data(),
			Begrunnelse: innhold.Begrunnelse,
			AvbruttAv:   h.Meta.Ident,
			AvbruttAt:   h.OpprettetAt,
		}, nil

	default:
		return nil, foldError(h, fmt.Sprintf("unknown event content %T", h.Innhold))
	}
}

// FraHendelser replays a full stream into a case state
func FraHendelser(events []hendelse.Hendelse) (Tilstand, error) {
	if len(events) == 0 {
		return nil, shared.ErrNotFound
	}
	return hendelse.Replay[Tilstand](nil, Fold, events)
}

// arbeidsdata extracts a mutable copy of the data from the states where the
// caseworker is still working the case.
func arbeidsdata(state Tilstand, h hendelse.Hendelse) (Behandlingsdata, error) {
	switch s := state.(type) {
	case Opprettet:
		return copyData(s.Data()), nil
	case UnderVurdering:
		return copyData(s.Data()), nil
	case KlarTilAttestering:
		return copyData(s.Data()), nil
	default:
		return Behandlingsdata{}, foldError(h, "the case is not open for assessment")
	}
}

// klassifiser picks the state an assessable case is in: complete coverage
// plus a decision letter means it can be submitted for attestation.
func klassifiser(data Behandlingsdata) Tilstand {
	if len(data.Vurderinger) == 0 && data.Brevtekst == "" && data.SisteUnderkjennelse == nil {
		return Opprettet{vurderingsfase{data: data}}
	}
	if data.Brevtekst != "" {
		if _, err := Avstem(data.Vurderinger, &data.Kravgrunnlag); err == nil {
			return KlarTilAttestering{vurderingsfase{data: data}}
		}
	}
	return UnderVurdering{vurderingsfase{data: data}}
}

func upsertVurdering(vurderinger []Vurdering, v Vurdering) []Vurdering {
	out := make([]Vurdering, len(vurderinger), len(vurderinger)+1)
	copy(out, vurderinger)
	for i, existing := range out {
		if existing.Periode.Equals(v.Periode) {
			out[i] = v
			return out
		}
	}
	return append(out, v)
}

func copyData(data Behandlingsdata) Behandlingsdata {
	vurderinger := make([]Vurdering, len(data.Vurderinger))
	copy(vurderinger, data.Vurderinger)
	data.Vurderinger = vurderinger
	return data
}

func foldError(h hendelse.Hendelse, detail string) error {
	return shared.NewDomainError(shared.ErrChainCorruption.Code,
		fmt.Sprintf("stream %s version %d: %s event is illegal: %s", h.StreamID, h.Versjon, h.Type(), detail))
}
