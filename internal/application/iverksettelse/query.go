package iverksettelse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
)

// UtsendingResponse is one dispatch queue entry as seen from the outside
type UtsendingResponse struct {
	ID            uuid.UUID  `json:"id"`
	BehandlingID  uuid.UUID  `json:"behandling_id"`
	EksternRef    string     `json:"ekstern_ref"`
	Status        string     `json:"status"`
	FeilAntall    int        `json:"feil_antall"`
	SisteFeil     string     `json:"siste_feil,omitempty"`
	SisteKategori string     `json:"siste_kategori,omitempty"`
	KvitteringID  string     `json:"kvittering_id,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UtsendingQueryService answers read-only questions about the dispatch queue,
// mainly for operational inspection of pending and dead-lettered entries.
type UtsendingQueryService struct {
	utsendinger iverksettelse.UtsendingRepository
}

// NewUtsendingQueryService creates a new UtsendingQueryService
func NewUtsendingQueryService(utsendinger iverksettelse.UtsendingRepository) *UtsendingQueryService {
	return &UtsendingQueryService{utsendinger: utsendinger}
}

// Pending returns queued entries that have not been sent, oldest first
func (s *UtsendingQueryService) Pending(ctx context.Context, limit int) ([]UtsendingResponse, error) {
	entries, err := s.utsendinger.FindPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toResponses(entries), nil
}

// Dead returns dead-lettered entries awaiting manual action
func (s *UtsendingQueryService) Dead(ctx context.Context, limit int) ([]UtsendingResponse, error) {
	entries, err := s.utsendinger.FindDead(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toResponses(entries), nil
}

// ForBehandling returns the dispatch entry queued for a finalized case
func (s *UtsendingQueryService) ForBehandling(ctx context.Context, behandlingID uuid.UUID) (*UtsendingResponse, error) {
	entry, err := s.utsendinger.FindByBehandling(ctx, behandlingID)
	if err != nil {
		return nil, err
	}
	response := toResponse(entry)
	return &response, nil
}

func toResponses(entries []*iverksettelse.Utsending) []UtsendingResponse {
	responses := make([]UtsendingResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, toResponse(e))
	}
	return responses
}

func toResponse(u *iverksettelse.Utsending) UtsendingResponse {
	return UtsendingResponse{
		ID:            u.ID,
		BehandlingID:  u.BehandlingID,
		EksternRef:    u.EksternRef,
		Status:        string(u.Status),
		FeilAntall:    u.FeilTeller.Count,
		SisteFeil:     u.SisteFeil,
		SisteKategori: string(u.SisteKategori),
		KvitteringID:  u.KvitteringID,
		SentAt:        u.SentAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
