package iverksettelse

import "fmt"

// Feilkategori is the closed taxonomy of dispatch failures. Fatal categories
// are surfaced to a human immediately; retryable ones are rescheduled on the
// backoff table.
type Feilkategori string

const (
	// FeilAlvorlighetsgrad means the remote system rejected the payload as
	// structurally invalid. Retrying the same payload cannot succeed.
	FeilAlvorlighetsgrad Feilkategori = "SEVERITY_CODE_REJECTED"
	// FeilStatusAvvist is a business rejection from the remote system
	FeilStatusAvvist Feilkategori = "REMOTE_STATUS_REJECTED"
	// FeilUkjent is a transport-level failure with an unknown outcome; the
	// request may or may not have been applied remotely.
	FeilUkjent Feilkategori = "UNKNOWN_FAILURE"
	// FeilTokenhenting means credentials for the remote call could not be
	// acquired
	FeilTokenhenting Feilkategori = "CREDENTIAL_ACQUISITION_FAILED"
	// FeilSerialisering means the payload could not be serialized locally,
	// which is a bug, not a remote condition.
	FeilSerialisering Feilkategori = "SERIALIZATION_FAILED"
)

// IsValid checks if the value is a known category
func (k Feilkategori) IsValid() bool {
	switch k {
	case FeilAlvorlighetsgrad, FeilStatusAvvist, FeilUkjent, FeilTokenhenting, FeilSerialisering:
		return true
	}
	return false
}

// KanPrøvesIgjen reports whether a failure in this category is worth
// retrying
func (k Feilkategori) KanPrøvesIgjen() bool {
	switch k {
	case FeilUkjent, FeilTokenhenting:
		return true
	}
	return false
}

// Dispatchfeil is a classified dispatch failure
type Dispatchfeil struct {
	Kategori Feilkategori
	Melding  string
	Cause    error
}

// Error implements the error interface
func (f *Dispatchfeil) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("dispatch failed (%s): %s: %v", f.Kategori, f.Melding, f.Cause)
	}
	return fmt.Sprintf("dispatch failed (%s): %s", f.Kategori, f.Melding)
}

// Unwrap exposes the underlying cause
func (f *Dispatchfeil) Unwrap() error {
	return f.Cause
}

// KanPrøvesIgjen reports whether the failure should be rescheduled
func (f *Dispatchfeil) KanPrøvesIgjen() bool {
	return f.Kategori.KanPrøvesIgjen()
}

// NyDispatchfeil creates a classified dispatch failure
func NyDispatchfeil(kategori Feilkategori, melding string, cause error) *Dispatchfeil {
	return &Dispatchfeil{Kategori: kategori, Melding: melding, Cause: cause}
}
