package kravgrunnlag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MockMottakRepository is a mock implementation of kravgrunnlag.MottakRepository
type MockMottakRepository struct {
	mock.Mock
}

func (m *MockMottakRepository) Save(ctx context.Context, mottak *kravgrunnlag.MottattKravgrunnlag) error {
	args := m.Called(ctx, mottak)
	return args.Error(0)
}

func (m *MockMottakRepository) FindByID(ctx context.Context, id uuid.UUID) (*kravgrunnlag.MottattKravgrunnlag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kravgrunnlag.MottattKravgrunnlag), args.Error(1)
}

func (m *MockMottakRepository) FindByEksternID(ctx context.Context, eksternID string) (*kravgrunnlag.MottattKravgrunnlag, error) {
	args := m.Called(ctx, eksternID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kravgrunnlag.MottattKravgrunnlag), args.Error(1)
}

func (m *MockMottakRepository) FindSisteUkonsumerte(ctx context.Context) (*kravgrunnlag.MottattKravgrunnlag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kravgrunnlag.MottattKravgrunnlag), args.Error(1)
}

func (m *MockMottakRepository) MarkKonsumert(ctx context.Context, id, behandlingID uuid.UUID) error {
	args := m.Called(ctx, id, behandlingID)
	return args.Error(0)
}

func validPayload() []byte {
	return []byte(`{
		"ekstern_id": "K-2026-001",
		"mottaker": "12345678901",
		"perioder": [
			{"fom": "2026-01-01", "tom": "2026-01-31", "tidligere_utbetalt": "5000", "korrigert": "4000", "feilutbetalt": "1000", "skatteprosent": "0.10"}
		]
	}`)
}

func TestMottakService_Motta(t *testing.T) {
	t.Run("stores a new document", func(t *testing.T) {
		repo := new(MockMottakRepository)
		service := NewMottakService(repo, zap.NewNop())

		repo.On("Save", mock.Anything, mock.MatchedBy(func(m *kravgrunnlag.MottattKravgrunnlag) bool {
			return m.EksternID == "K-2026-001"
		})).Return(nil)

		resp, err := service.Motta(context.Background(), MottaRequest{
			EksternID: "K-2026-001",
			Payload:   validPayload(),
		})

		require.NoError(t, err)
		assert.Equal(t, "K-2026-001", resp.EksternID)
		assert.False(t, resp.Konsumert)
		repo.AssertExpectations(t)
	})

	t.Run("stores an unparseable document too", func(t *testing.T) {
		repo := new(MockMottakRepository)
		service := NewMottakService(repo, zap.NewNop())

		repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := service.Motta(context.Background(), MottaRequest{
			EksternID: "K-2026-002",
			Payload:   []byte(`garbage from the feed`),
		})

		require.NoError(t, err)
		assert.Equal(t, "K-2026-002", resp.EksternID)
	})

	t.Run("replayed external id returns the stored document", func(t *testing.T) {
		repo := new(MockMottakRepository)
		service := NewMottakService(repo, zap.NewNop())

		existing, err := kravgrunnlag.NyttMottak("K-2026-001", validPayload())
		require.NoError(t, err)

		repo.On("Save", mock.Anything, mock.Anything).
			Return(shared.NewDomainError("ALREADY_EXISTS", "duplicate"))
		repo.On("FindByEksternID", mock.Anything, "K-2026-001").Return(existing, nil)

		resp, err := service.Motta(context.Background(), MottaRequest{
			EksternID: "K-2026-001",
			Payload:   validPayload(),
		})

		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.ID)
	})

	t.Run("rejects a message without external id", func(t *testing.T) {
		repo := new(MockMottakRepository)
		service := NewMottakService(repo, zap.NewNop())

		_, err := service.Motta(context.Background(), MottaRequest{Payload: validPayload()})
		assert.Error(t, err)
	})
}

func TestMottakService_Parse(t *testing.T) {
	t.Run("returns the structured view of a stored document", func(t *testing.T) {
		repo := new(MockMottakRepository)
		service := NewMottakService(repo, zap.NewNop())

		mottak, err := kravgrunnlag.NyttMottak("K-2026-001", validPayload())
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, mottak.ID).Return(mottak, nil)

		resp, err := service.Parse(context.Background(), mottak.ID)
		require.NoError(t, err)
		assert.Equal(t, "K-2026-001", resp.EksternID)
		assert.Equal(t, "12345678901", resp.Mottaker)
		require.Len(t, resp.Perioder, 1)
		assert.Equal(t, "2026-01-01", resp.Perioder[0].Fom)
		assert.Equal(t, "1000", resp.TotaltFeilutbetalt.String())
	})

	t.Run("surfaces the parse error for a broken document", func(t *testing.T) {
		repo := new(MockMottakRepository)
		service := NewMottakService(repo, zap.NewNop())

		mottak, err := kravgrunnlag.NyttMottak("K-2026-002", []byte(`garbage`))
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, mottak.ID).Return(mottak, nil)

		_, err = service.Parse(context.Background(), mottak.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrKravgrunnlagParse.Code, domainErr.Code)
	})
}
