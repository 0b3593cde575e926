package behandling

import (
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

// Utfall is the caseworker's decision for one claim period
type Utfall string

const (
	UtfallKrevTilbake     Utfall = "KREV_TILBAKE"
	UtfallIkkeKrevTilbake Utfall = "IKKE_KREV_TILBAKE"
)

// IsValid checks if the value is a known Utfall
func (u Utfall) IsValid() bool {
	switch u {
	case UtfallKrevTilbake, UtfallIkkeKrevTilbake:
		return true
	}
	return false
}

// String returns the string representation of Utfall
func (u Utfall) String() string {
	return string(u)
}

// Vurdering is a caseworker-authored decision for a single claim period
type Vurdering struct {
	Periode valueobject.Periode `json:"periode"`
	Utfall  Utfall              `json:"utfall"`
}

// NyVurdering validates and creates a period assessment
func NyVurdering(periode valueobject.Periode, utfall Utfall) (Vurdering, error) {
	if periode.IsZero() {
		return Vurdering{}, shared.NewDomainError("INVALID_VURDERING", "Assessment needs a period")
	}
	if !utfall.IsValid() {
		return Vurdering{}, shared.NewDomainError("INVALID_VURDERING", "Unknown assessment outcome: "+string(utfall))
	}
	return Vurdering{Periode: periode, Utfall: utfall}, nil
}
