package kravgrunnlag

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/shared"
)

// MottattKravgrunnlag is the raw artifact from the claim feed. Storage is
// decoupled from parsing: the payload is kept verbatim whether or not it can
// be parsed, so a malformed feed message is never lost and can be reprocessed
// after the feed is fixed.
type MottattKravgrunnlag struct {
	ID          uuid.UUID
	EksternID   string
	Payload     []byte
	MottattAt   time.Time
	KonsumertAv *uuid.UUID // case id once a case is opened against it
	KonsumertAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NyttMottak records a raw claim payload keyed by its external id
func NyttMottak(eksternID string, payload []byte) (*MottattKravgrunnlag, error) {
	if eksternID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Claim ingestion needs an external id")
	}
	if len(payload) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Claim ingestion needs a payload")
	}
	now := time.Now()
	return &MottattKravgrunnlag{
		ID:        uuid.New(),
		EksternID: eksternID,
		Payload:   payload,
		MottattAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Konsumer marks the raw document as consumed by a case. A document can back
// at most one open case.
func (m *MottattKravgrunnlag) Konsumer(behandlingID uuid.UUID) error {
	if m.KonsumertAv != nil {
		return shared.ErrKravgrunnlagInUse
	}
	now := time.Now()
	m.KonsumertAv = &behandlingID
	m.KonsumertAt = &now
	m.UpdatedAt = now
	return nil
}

// ErKonsumert reports whether a case has been opened against this document
func (m *MottattKravgrunnlag) ErKonsumert() bool {
	return m.KonsumertAv != nil
}

// MottakRepository persists raw claim documents
type MottakRepository interface {
	Save(ctx context.Context, mottak *MottattKravgrunnlag) error
	FindByID(ctx context.Context, id uuid.UUID) (*MottattKravgrunnlag, error)
	FindByEksternID(ctx context.Context, eksternID string) (*MottattKravgrunnlag, error)
	// FindSisteUkonsumerte returns the most recently received document no case
	// has been opened against, or shared.ErrNotFound.
	FindSisteUkonsumerte(ctx context.Context) (*MottattKravgrunnlag, error)
	// MarkKonsumert persists the consumption claim; implementations must
	// guarantee at most one case wins a race to consume the same document.
	MarkKonsumert(ctx context.Context, id, behandlingID uuid.UUID) error
}
