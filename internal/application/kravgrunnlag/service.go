package kravgrunnlag

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MottakService handles ingestion and lookup of claim documents from the
// external feed. Storage is decoupled from parsing: the raw payload is kept
// even when it cannot be parsed, so a broken feed message survives for
// reprocessing.
type MottakService struct {
	mottakRepo kravgrunnlag.MottakRepository
	logger     *zap.Logger
}

// NewMottakService creates a new MottakService
func NewMottakService(mottakRepo kravgrunnlag.MottakRepository, logger *zap.Logger) *MottakService {
	return &MottakService{
		mottakRepo: mottakRepo,
		logger:     logger,
	}
}

// Motta stores a raw claim document from the feed. Ingestion is idempotent on
// the external id: replays of an already stored document return the stored one
// instead of failing the feed.
func (s *MottakService) Motta(ctx context.Context, req MottaRequest) (*MottakResponse, error) {
	mottak, err := kravgrunnlag.NyttMottak(req.EksternID, req.Payload)
	if err != nil {
		return nil, err
	}

	if err := s.mottakRepo.Save(ctx, mottak); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "ALREADY_EXISTS" {
			existing, findErr := s.mottakRepo.FindByEksternID(ctx, req.EksternID)
			if findErr != nil {
				return nil, findErr
			}
			s.logger.Info("claim document replayed by feed",
				zap.String("ekstern_id", req.EksternID),
				zap.String("mottak_id", existing.ID.String()))
			response := ToMottakResponse(existing)
			return &response, nil
		}
		return nil, err
	}

	if _, parseErr := kravgrunnlag.Parse(mottak.Payload); parseErr != nil {
		// Stored anyway; flag it so someone chases the feed.
		s.logger.Warn("stored claim document does not parse",
			zap.String("ekstern_id", req.EksternID),
			zap.String("mottak_id", mottak.ID.String()),
			zap.Error(parseErr))
	}

	s.logger.Info("claim document received",
		zap.String("ekstern_id", req.EksternID),
		zap.String("mottak_id", mottak.ID.String()))

	response := ToMottakResponse(mottak)
	return &response, nil
}

// HentMottak retrieves a stored document by id
func (s *MottakService) HentMottak(ctx context.Context, id uuid.UUID) (*MottakResponse, error) {
	mottak, err := s.mottakRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToMottakResponse(mottak)
	return &response, nil
}

// HentSisteUkonsumerte returns the most recently received document no case has
// been opened against
func (s *MottakService) HentSisteUkonsumerte(ctx context.Context) (*MottakResponse, error) {
	mottak, err := s.mottakRepo.FindSisteUkonsumerte(ctx)
	if err != nil {
		return nil, err
	}
	response := ToMottakResponse(mottak)
	return &response, nil
}

// Parse returns the structured view of a stored document
func (s *MottakService) Parse(ctx context.Context, id uuid.UUID) (*KravgrunnlagResponse, error) {
	mottak, err := s.mottakRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	parsed, err := kravgrunnlag.Parse(mottak.Payload)
	if err != nil {
		return nil, err
	}
	response := ToKravgrunnlagResponse(mottak.ID, parsed)
	return &response, nil
}
