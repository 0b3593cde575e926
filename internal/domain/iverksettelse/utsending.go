package iverksettelse

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UtsendingStatus is the lifecycle of a queued dispatch
type UtsendingStatus string

const (
	UtsendingStatusPending UtsendingStatus = "PENDING"
	UtsendingStatusSent    UtsendingStatus = "SENT"
	UtsendingStatusDead    UtsendingStatus = "DEAD"
)

// Utsending is one queued dispatch of a finalized decision. Exactly one row
// is created per finalization, in the same transaction as the finalize event,
// so a crash cannot finalize a case without queueing its dispatch or vice
// versa. The send itself happens afterwards and may be retried.
type Utsending struct {
	ID            uuid.UUID
	BehandlingID  uuid.UUID
	EksternRef    string
	Payload       []byte
	Status        UtsendingStatus
	FeilTeller    FailureCounter
	SisteFeil     string
	SisteKategori Feilkategori
	KvitteringID  string
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NyUtsending queues a dispatch for a finalized case
func NyUtsending(behandlingID uuid.UUID, eksternRef string, payload []byte) *Utsending {
	now := time.Now()
	return &Utsending{
		ID:           uuid.New(),
		BehandlingID: behandlingID,
		EksternRef:   eksternRef,
		Payload:      payload,
		Status:       UtsendingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Klar consults the backoff table: true means the caller may attempt the
// send now. The counter only advances when an attempt actually fails, so an
// entry that succeeds on its first try keeps a zero failure count.
func (u *Utsending) Klar(now time.Time) bool {
	if u.Status != UtsendingStatusPending {
		return false
	}
	return u.FeilTeller.ShouldRetryNow(now)
}

// MarkSent records the remote acknowledgement
func (u *Utsending) MarkSent(kvittering *Kvittering, now time.Time) {
	u.Status = UtsendingStatusSent
	u.KvitteringID = kvittering.EksternKvitteringID
	u.SentAt = &now
	u.UpdatedAt = now
}

// MarkFailed records a classified failure. Transient failures stay pending
// and are retried per the delay table; fatal ones are dead-lettered for a
// human to act on.
func (u *Utsending) MarkFailed(feil *Dispatchfeil, now time.Time) {
	u.SisteFeil = feil.Error()
	u.SisteKategori = feil.Kategori
	u.FeilTeller = u.FeilTeller.RecordFailure(now)
	u.UpdatedAt = now
	if !feil.KanPrøvesIgjen() {
		u.Status = UtsendingStatusDead
	}
}

// ErDead reports whether the dispatch was abandoned
func (u *Utsending) ErDead() bool {
	return u.Status == UtsendingStatusDead
}

// UtsendingRepository persists the dispatch queue
type UtsendingRepository interface {
	Save(ctx context.Context, utsending *Utsending) error
	Update(ctx context.Context, utsending *Utsending) error
	FindByID(ctx context.Context, id uuid.UUID) (*Utsending, error)
	FindByBehandling(ctx context.Context, behandlingID uuid.UUID) (*Utsending, error)
	// FindPending returns pending entries, oldest first, up to limit. The
	// backoff decision is the caller's, via Klar.
	FindPending(ctx context.Context, limit int) ([]*Utsending, error)
	FindDead(ctx context.Context, limit int) ([]*Utsending, error)
}
