package kravgrunnlag

import (
	"github.com/shopspring/decimal"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

// Kravgrunnlagsperiode is one period line of a claim document: what was paid,
// what should have been paid, and the resulting overpayment, plus the
// withholding tax rate applying to a recovery in that period.
type Kravgrunnlagsperiode struct {
	Periode           valueobject.Periode `json:"periode"`
	TidligereUtbetalt decimal.Decimal     `json:"tidligere_utbetalt"`
	Korrigert         decimal.Decimal     `json:"korrigert"`
	Feilutbetalt      decimal.Decimal     `json:"feilutbetalt"`
	Skatteprosent     decimal.Decimal     `json:"skatteprosent"`
}

// Kravgrunnlag is the structured form of an externally issued claim document.
// It is immutable once parsed and never edited by caseworkers; corrections
// arrive as new claim documents from the ingestion feed.
type Kravgrunnlag struct {
	EksternID string                 `json:"ekstern_id"`
	Mottaker  string                 `json:"mottaker"`
	Perioder  []Kravgrunnlagsperiode `json:"perioder"`
}

// NewKravgrunnlag validates and creates a claim document
func NewKravgrunnlag(eksternID, mottaker string, perioder []Kravgrunnlagsperiode) (*Kravgrunnlag, error) {
	if eksternID == "" {
		return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Claim document needs an external id")
	}
	if mottaker == "" {
		return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Claim document needs a recipient")
	}
	if len(perioder) == 0 {
		return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Claim document needs at least one period")
	}
	seen := make(map[string]struct{}, len(perioder))
	for _, p := range perioder {
		if p.Periode.IsZero() {
			return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Claim period is missing its date range")
		}
		if _, dup := seen[p.Periode.Key()]; dup {
			return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Claim document repeats period "+p.Periode.String())
		}
		seen[p.Periode.Key()] = struct{}{}
		if p.Skatteprosent.IsNegative() {
			return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Withholding tax rate cannot be negative")
		}
		if p.Feilutbetalt.IsNegative() {
			return nil, shared.NewDomainError("INVALID_KRAVGRUNNLAG", "Overpayment amount cannot be negative")
		}
	}
	return &Kravgrunnlag{
		EksternID: eksternID,
		Mottaker:  mottaker,
		Perioder:  perioder,
	}, nil
}

// Perioderange returns the set of periods in the document, keyed for exact
// matching.
func (k *Kravgrunnlag) Perioderange() map[string]valueobject.Periode {
	out := make(map[string]valueobject.Periode, len(k.Perioder))
	for _, p := range k.Perioder {
		out[p.Periode.Key()] = p.Periode
	}
	return out
}

// PeriodeFor looks up the claim line covering exactly the given period
func (k *Kravgrunnlag) PeriodeFor(periode valueobject.Periode) (Kravgrunnlagsperiode, bool) {
	for _, p := range k.Perioder {
		if p.Periode.Equals(periode) {
			return p, true
		}
	}
	return Kravgrunnlagsperiode{}, false
}

// TotaltFeilutbetalt sums the overpayment across all periods
func (k *Kravgrunnlag) TotaltFeilutbetalt() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range k.Perioder {
		sum = sum.Add(p.Feilutbetalt)
	}
	return sum
}
