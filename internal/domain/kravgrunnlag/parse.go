package kravgrunnlag

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

// payload mirrors the wire format of the claim feed
type payload struct {
	EksternID string           `json:"ekstern_id"`
	Mottaker  string           `json:"mottaker"`
	Perioder  []payloadPeriode `json:"perioder"`
}

type payloadPeriode struct {
	Fom               string          `json:"fom"`
	Tom               string          `json:"tom"`
	TidligereUtbetalt decimal.Decimal `json:"tidligere_utbetalt"`
	Korrigert         decimal.Decimal `json:"korrigert"`
	Feilutbetalt      decimal.Decimal `json:"feilutbetalt"`
	Skatteprosent     decimal.Decimal `json:"skatteprosent"`
}

// Parse turns a raw feed payload into a structured claim document. It is pure
// and retryable: the same bytes always produce the same result, and a failure
// is a recoverable PARSE error for a human to act on, never a crash. Parsing
// happens lazily when a case is opened, not at ingestion time.
func Parse(raw []byte) (*Kravgrunnlag, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, parseError("payload is not valid JSON: " + err.Error())
	}

	perioder := make([]Kravgrunnlagsperiode, 0, len(p.Perioder))
	for i, pp := range p.Perioder {
		fom, err := time.ParseInLocation(time.DateOnly, pp.Fom, time.UTC)
		if err != nil {
			return nil, parseError("period " + itoa(i) + " has invalid fom date")
		}
		tom, err := time.ParseInLocation(time.DateOnly, pp.Tom, time.UTC)
		if err != nil {
			return nil, parseError("period " + itoa(i) + " has invalid tom date")
		}
		periode, err := valueobject.NewPeriode(fom, tom)
		if err != nil {
			return nil, parseError("period " + itoa(i) + ": " + err.Error())
		}
		perioder = append(perioder, Kravgrunnlagsperiode{
			Periode:           periode,
			TidligereUtbetalt: pp.TidligereUtbetalt,
			Korrigert:         pp.Korrigert,
			Feilutbetalt:      pp.Feilutbetalt,
			Skatteprosent:     pp.Skatteprosent,
		})
	}

	k, err := NewKravgrunnlag(p.EksternID, p.Mottaker, perioder)
	if err != nil {
		return nil, parseError(err.Error())
	}
	return k, nil
}

func parseError(detail string) error {
	return shared.NewDomainError(shared.ErrKravgrunnlagParse.Code, "claim document parse failed: "+detail)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
