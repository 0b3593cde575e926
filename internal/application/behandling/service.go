package behandling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/behandling"
	"github.com/tilbakekreving/backend/internal/domain/hendelse"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Ferdigstiller appends the approval event and queues its dispatch atomically.
// A nil utsending closes the case without dispatching.
type Ferdigstiller interface {
	FerdigstillOgKø(ctx context.Context, h hendelse.Hendelse, expectedVersion int64, utsending *iverksettelse.Utsending) error
}

// BehandlingService executes case commands. Every mutation replays the case's
// event stream, asks the typed state for the command, and appends the
// resulting event at the caller's expected version. Two concurrent writers can
// both pass the in-memory checks; the log's version guard lets exactly one
// through.
type BehandlingService struct {
	logg          hendelse.Logg
	mottakRepo    kravgrunnlag.MottakRepository
	ferdigstiller Ferdigstiller
	logger        *zap.Logger
}

// NewBehandlingService creates a new BehandlingService
func NewBehandlingService(
	logg hendelse.Logg,
	mottakRepo kravgrunnlag.MottakRepository,
	ferdigstiller Ferdigstiller,
	logger *zap.Logger,
) *BehandlingService {
	return &BehandlingService{
		logg:          logg,
		mottakRepo:    mottakRepo,
		ferdigstiller: ferdigstiller,
		logger:        logger,
	}
}

// Opprett opens a case against a stored claim document. The document must
// parse and must not already back another case.
func (s *BehandlingService) Opprett(ctx context.Context, meta shared.Metadata, req OpprettRequest) (*BehandlingResponse, error) {
	mottak, err := s.mottakRepo.FindByID(ctx, req.MottakID)
	if err != nil {
		return nil, err
	}
	if mottak.ErKonsumert() {
		return nil, shared.ErrKravgrunnlagInUse
	}

	parsed, err := kravgrunnlag.Parse(mottak.Payload)
	if err != nil {
		return nil, err
	}

	behandlingID := uuid.New()

	// Claim the document first; MarkKonsumert is first-wins under a race.
	if err := s.mottakRepo.MarkKonsumert(ctx, mottak.ID, behandlingID); err != nil {
		return nil, err
	}

	h := hendelse.Ny(req.SakID, behandlingID, meta, behandling.BehandlingOpprettet{
		MottakID:     mottak.ID,
		Kravgrunnlag: *parsed,
	})
	if err := s.logg.Append(ctx, h, 0); err != nil {
		return nil, err
	}

	s.logger.Info("case opened",
		zap.String("behandling_id", behandlingID.String()),
		zap.String("sak_id", req.SakID.String()),
		zap.String("ekstern_id", parsed.EksternID),
		zap.String("ident", meta.Ident))

	state, err := behandling.Fold(nil, h)
	if err != nil {
		return nil, err
	}
	response := ToBehandlingResponse(state, h.Versjon)
	return &response, nil
}

// Hent returns the current state of a case
func (s *BehandlingService) Hent(ctx context.Context, behandlingID uuid.UUID) (*BehandlingResponse, error) {
	events, state, err := s.load(ctx, behandlingID)
	if err != nil {
		return nil, err
	}
	response := ToBehandlingResponse(state, int64(len(events)))
	return &response, nil
}

// Avstemming reports how the recorded assessments line up against the claim
// document, without mutating anything.
func (s *BehandlingService) Avstemming(ctx context.Context, behandlingID uuid.UUID) (*AvstemmingResponse, error) {
	_, state, err := s.load(ctx, behandlingID)
	if err != nil {
		return nil, err
	}

	data := state.Data()
	_, avstemErr := behandling.Avstem(data.Vurderinger, &data.Kravgrunnlag)
	if avstemErr == nil {
		return &AvstemmingResponse{Komplett: true}, nil
	}

	var mismatch *behandling.MismatchError
	if !errors.As(avstemErr, &mismatch) {
		return nil, avstemErr
	}

	response := &AvstemmingResponse{}
	for _, p := range mismatch.Manglende {
		response.Manglende = append(response.Manglende, p.String())
	}
	for _, p := range mismatch.Ukjente {
		response.Ukjente = append(response.Ukjente, p.String())
	}
	return response, nil
}

// Historikk returns the case's event stream in append order, one entry per
// recorded event with the actor metadata captured at write time.
func (s *BehandlingService) Historikk(ctx context.Context, behandlingID uuid.UUID) ([]HendelseResponse, error) {
	events, err := s.logg.ReadStream(ctx, behandlingID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, shared.ErrNotFound
	}

	historikk := make([]HendelseResponse, 0, len(events))
	for _, h := range events {
		historikk = append(historikk, HendelseResponse{
			ID:            h.ID,
			Versjon:       h.Versjon,
			Type:          h.Type(),
			Ident:         h.Meta.Ident,
			Roller:        h.Meta.Roles,
			CorrelationID: h.Meta.CorrelationID,
			OpprettetAt:   h.OpprettetAt,
		})
	}
	return historikk, nil
}

// RegistrerVurdering records or replaces the assessment for one period
func (s *BehandlingService) RegistrerVurdering(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64, req VurderingRequest) (*BehandlingResponse, error) {
	periode, err := req.Periode()
	if err != nil {
		return nil, err
	}
	vurdering, err := behandling.NyVurdering(periode, behandling.Utfall(req.Utfall))
	if err != nil {
		return nil, err
	}

	return s.utfør(ctx, meta, behandlingID, expectedVersion, func(state behandling.Tilstand) (hendelse.Innhold, error) {
		switch t := state.(type) {
		case behandling.Opprettet:
			return t.RegistrerVurdering(vurdering)
		case behandling.UnderVurdering:
			return t.RegistrerVurdering(vurdering)
		case behandling.KlarTilAttestering:
			return t.RegistrerVurdering(vurdering)
		default:
			return nil, illegalIn(state, "registrere vurdering")
		}
	})
}

// OppdaterBrevtekst attaches or replaces the decision letter text
func (s *BehandlingService) OppdaterBrevtekst(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64, req BrevtekstRequest) (*BehandlingResponse, error) {
	return s.utfør(ctx, meta, behandlingID, expectedVersion, func(state behandling.Tilstand) (hendelse.Innhold, error) {
		switch t := state.(type) {
		case behandling.Opprettet:
			return t.OppdaterBrevtekst(req.Brevtekst)
		case behandling.UnderVurdering:
			return t.OppdaterBrevtekst(req.Brevtekst)
		case behandling.KlarTilAttestering:
			return t.OppdaterBrevtekst(req.Brevtekst)
		default:
			return nil, illegalIn(state, "oppdatere brevtekst")
		}
	})
}

// SendTilAttestering submits the case for second-party approval. Legal only
// when the assessments reconcile and a decision letter is attached.
func (s *BehandlingService) SendTilAttestering(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64) (*BehandlingResponse, error) {
	return s.utfør(ctx, meta, behandlingID, expectedVersion, func(state behandling.Tilstand) (hendelse.Innhold, error) {
		klar, ok := state.(behandling.KlarTilAttestering)
		if !ok {
			return nil, illegalIn(state, "sende til attestering")
		}
		return klar.SendTilAttestering()
	})
}

// Underkjenn returns the case to assessment with a structured reason. The
// attestor must differ from the submitting caseworker.
func (s *BehandlingService) Underkjenn(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64, req UnderkjennRequest) (*BehandlingResponse, error) {
	return s.utfør(ctx, meta, behandlingID, expectedVersion, func(state behandling.Tilstand) (hendelse.Innhold, error) {
		til, ok := state.(behandling.TilAttestering)
		if !ok {
			return nil, illegalIn(state, "underkjenne")
		}
		return til.Underkjenn(meta.Ident, behandling.UnderkjennelseÅrsak(req.Årsak), req.Kommentar)
	})
}

// Avbryt abandons the case from any non-terminal state
func (s *BehandlingService) Avbryt(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64, req AvbrytRequest) (*BehandlingResponse, error) {
	return s.utfør(ctx, meta, behandlingID, expectedVersion, func(state behandling.Tilstand) (hendelse.Innhold, error) {
		switch t := state.(type) {
		case behandling.Opprettet:
			return t.Avbryt(req.Begrunnelse)
		case behandling.UnderVurdering:
			return t.Avbryt(req.Begrunnelse)
		case behandling.KlarTilAttestering:
			return t.Avbryt(req.Begrunnelse)
		case behandling.TilAttestering:
			return t.Avbryt(req.Begrunnelse)
		default:
			return nil, illegalIn(state, "avbryte")
		}
	})
}

// Attester approves the case and queues its dispatch in the same transaction
// as the approval event. A case where no period resolves to recovery is closed
// without dispatching.
func (s *BehandlingService) Attester(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64) (*BehandlingResponse, error) {
	events, state, err := s.load(ctx, behandlingID)
	if err != nil {
		return nil, err
	}
	if int64(len(events)) != expectedVersion {
		return nil, shared.ErrStaleVersion
	}

	til, ok := state.(behandling.TilAttestering)
	if !ok {
		return nil, illegalIn(state, "attestere")
	}

	innhold, err := til.Attester(meta.Ident)
	if err != nil {
		return nil, err
	}

	h := hendelse.Neste(events[len(events)-1], meta, innhold)
	next, err := behandling.Fold(state, h)
	if err != nil {
		return nil, err
	}
	iverksatt, ok := next.(behandling.Iverksatt)
	if !ok {
		return nil, fmt.Errorf("attestation did not finalize the case: got %s", next.Navn())
	}

	utsending, err := s.byggUtsending(iverksatt)
	if err != nil {
		return nil, err
	}

	if err := s.ferdigstiller.FerdigstillOgKø(ctx, h, expectedVersion, utsending); err != nil {
		return nil, err
	}

	if utsending == nil {
		s.logger.Info("case finalized with nothing to recover",
			zap.String("behandling_id", behandlingID.String()),
			zap.String("attestant", meta.Ident))
	} else {
		s.logger.Info("case finalized and dispatch queued",
			zap.String("behandling_id", behandlingID.String()),
			zap.String("utsending_id", utsending.ID.String()),
			zap.String("attestant", meta.Ident))
	}

	response := ToBehandlingResponse(next, h.Versjon)
	return &response, nil
}

// byggUtsending builds the queued dispatch for a finalized case, or nil when
// no period resolves to recovery.
func (s *BehandlingService) byggUtsending(iverksatt behandling.Iverksatt) (*iverksettelse.Utsending, error) {
	oppdrag, err := iverksettelse.NyttOppdrag(iverksatt)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "NOTHING_TO_RECOVER" {
			return nil, nil
		}
		return nil, err
	}

	payload, err := json.Marshal(oppdrag)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize oppdrag: %w", err)
	}
	return iverksettelse.NyUtsending(oppdrag.BehandlingID, oppdrag.EksternRef, payload), nil
}

// utfør runs one ordinary case command: replay, command, append.
func (s *BehandlingService) utfør(ctx context.Context, meta shared.Metadata, behandlingID uuid.UUID, expectedVersion int64, kommando func(behandling.Tilstand) (hendelse.Innhold, error)) (*BehandlingResponse, error) {
	events, state, err := s.load(ctx, behandlingID)
	if err != nil {
		return nil, err
	}
	if int64(len(events)) != expectedVersion {
		return nil, shared.ErrStaleVersion
	}

	innhold, err := kommando(state)
	if err != nil {
		return nil, err
	}

	h := hendelse.Neste(events[len(events)-1], meta, innhold)
	next, err := behandling.Fold(state, h)
	if err != nil {
		return nil, err
	}

	if err := s.logg.Append(ctx, h, expectedVersion); err != nil {
		return nil, err
	}

	s.logger.Info("case command applied",
		zap.String("behandling_id", behandlingID.String()),
		zap.String("event_type", h.Type()),
		zap.Int64("versjon", h.Versjon),
		zap.String("ident", meta.Ident))

	response := ToBehandlingResponse(next, h.Versjon)
	return &response, nil
}

// load replays a case stream into its current state
func (s *BehandlingService) load(ctx context.Context, behandlingID uuid.UUID) ([]hendelse.Hendelse, behandling.Tilstand, error) {
	events, err := s.logg.ReadStream(ctx, behandlingID)
	if err != nil {
		return nil, nil, err
	}
	state, err := behandling.FraHendelser(events)
	if err != nil {
		return nil, nil, err
	}
	return events, state, nil
}

func illegalIn(state behandling.Tilstand, operasjon string) error {
	return shared.NewDomainError(shared.ErrIllegalTransition.Code,
		fmt.Sprintf("Cannot %s in state %s", operasjon, state.Navn()))
}
