package behandling

import (
	"strings"

	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

// MismatchError reports exactly how an assessment set failed to cover the
// claim document: periods the caseworker has not assessed, and assessed
// periods the document does not contain. A boundary-shifted period shows up
// in both lists. The final recovered amount depends on exact coverage, so no
// partial result is ever produced.
type MismatchError struct {
	*shared.DomainError
	Manglende []valueobject.Periode
	Ukjente   []valueobject.Periode
}

// Unwrap exposes the underlying domain error for errors.As/Is
func (e *MismatchError) Unwrap() error {
	return e.DomainError
}

// AvstemtVurdering is the validated pairing of a complete assessment set
// against one claim document. It exists only if the assessed periods equal
// the document's periods exactly.
type AvstemtVurdering struct {
	grunnlag    *kravgrunnlag.Kravgrunnlag
	vurderinger []Vurdering
}

// Avstem reconciles assessments against a claim document. It succeeds only if
// the two period sets are identical - same periods, same boundaries, no
// merging or splitting attempted.
func Avstem(vurderinger []Vurdering, grunnlag *kravgrunnlag.Kravgrunnlag) (*AvstemtVurdering, error) {
	assessed := make(map[string]Vurdering, len(vurderinger))
	for _, v := range vurderinger {
		if _, dup := assessed[v.Periode.Key()]; dup {
			return nil, shared.NewDomainError("INVALID_VURDERING", "Period "+v.Periode.String()+" is assessed more than once")
		}
		assessed[v.Periode.Key()] = v
	}

	var manglende, ukjente []valueobject.Periode
	ordered := make([]Vurdering, 0, len(grunnlag.Perioder))
	for _, p := range grunnlag.Perioder {
		v, ok := assessed[p.Periode.Key()]
		if !ok {
			manglende = append(manglende, p.Periode)
			continue
		}
		ordered = append(ordered, v)
		delete(assessed, p.Periode.Key())
	}
	for _, v := range assessed {
		ukjente = append(ukjente, v.Periode)
	}

	if len(manglende) > 0 || len(ukjente) > 0 {
		return nil, newMismatchError(manglende, ukjente)
	}

	return &AvstemtVurdering{
		grunnlag:    grunnlag,
		vurderinger: ordered,
	}, nil
}

// HarNoenKrevesTilbake reports whether at least one period resolves to
// recovery. A case where nothing is recovered is closed administratively and
// never dispatched to the payment system.
func (a *AvstemtVurdering) HarNoenKrevesTilbake() bool {
	for _, v := range a.vurderinger {
		if v.Utfall == UtfallKrevTilbake {
			return true
		}
	}
	return false
}

// Vurderinger returns the assessments in claim-document period order
func (a *AvstemtVurdering) Vurderinger() []Vurdering {
	out := make([]Vurdering, len(a.vurderinger))
	copy(out, a.vurderinger)
	return out
}

// Kravgrunnlag returns the claim document the assessments were reconciled
// against
func (a *AvstemtVurdering) Kravgrunnlag() *kravgrunnlag.Kravgrunnlag {
	return a.grunnlag
}

func newMismatchError(manglende, ukjente []valueobject.Periode) *MismatchError {
	var sb strings.Builder
	sb.WriteString("Assessments do not cover the claim document periods exactly")
	if len(manglende) > 0 {
		sb.WriteString("; missing: ")
		sb.WriteString(joinPerioder(manglende))
	}
	if len(ukjente) > 0 {
		sb.WriteString("; not in claim document: ")
		sb.WriteString(joinPerioder(ukjente))
	}
	return &MismatchError{
		DomainError: shared.NewDomainError(shared.ErrPeriodMismatch.Code, sb.String()),
		Manglende:   manglende,
		Ukjente:     ukjente,
	}
}

func joinPerioder(perioder []valueobject.Periode) string {
	parts := make([]string, len(perioder))
	for i, p := range perioder {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
