package valueobject

import (
	"encoding/json"
	"fmt"
	"time"
)

// Periode is a value object for a contiguous date range [Fom, Tom], both
// inclusive. It is immutable and compared by exact boundaries - reconciliation
// never merges or splits periods.
type Periode struct {
	fom time.Time
	tom time.Time
}

// NewPeriode creates a period from two dates. The dates are truncated to
// day precision in UTC so that equality is insensitive to clock components.
func NewPeriode(fom, tom time.Time) (Periode, error) {
	f := truncateToDay(fom)
	t := truncateToDay(tom)
	if t.Before(f) {
		return Periode{}, fmt.Errorf("periode tom %s is before fom %s", t.Format(time.DateOnly), f.Format(time.DateOnly))
	}
	return Periode{fom: f, tom: t}, nil
}

// NewMonth creates a period covering a whole calendar month
func NewMonth(year int, month time.Month) Periode {
	fom := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	tom := fom.AddDate(0, 1, -1)
	return Periode{fom: fom, tom: tom}
}

// Fom returns the first day of the period
func (p Periode) Fom() time.Time {
	return p.fom
}

// Tom returns the last day of the period
func (p Periode) Tom() time.Time {
	return p.tom
}

// Equals reports exact boundary equality
func (p Periode) Equals(other Periode) bool {
	return p.fom.Equal(other.fom) && p.tom.Equal(other.tom)
}

// Overlaps reports whether the two periods share at least one day
func (p Periode) Overlaps(other Periode) bool {
	return !p.fom.After(other.tom) && !other.fom.After(p.tom)
}

// IsZero reports whether the period is the uninitialized zero value
func (p Periode) IsZero() bool {
	return p.fom.IsZero() && p.tom.IsZero()
}

// Key returns a canonical string usable as a map key for exact-match set
// operations over periods.
func (p Periode) Key() string {
	return p.fom.Format(time.DateOnly) + "/" + p.tom.Format(time.DateOnly)
}

// String returns the period formatted as "2024-01-01 - 2024-01-31"
func (p Periode) String() string {
	return p.fom.Format(time.DateOnly) + " - " + p.tom.Format(time.DateOnly)
}

type periodeJSON struct {
	Fom string `json:"fom"`
	Tom string `json:"tom"`
}

// MarshalJSON implements json.Marshaler using date-only boundaries
func (p Periode) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodeJSON{
		Fom: p.fom.Format(time.DateOnly),
		Tom: p.tom.Format(time.DateOnly),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Periode) UnmarshalJSON(data []byte) error {
	var raw periodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fom, err := time.ParseInLocation(time.DateOnly, raw.Fom, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid fom date: %w", err)
	}
	tom, err := time.ParseInLocation(time.DateOnly, raw.Tom, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid tom date: %w", err)
	}
	parsed, err := NewPeriode(fom, tom)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
