package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appbehandling "github.com/tilbakekreving/backend/internal/application/behandling"
	"github.com/tilbakekreving/backend/internal/domain/hendelse"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
	"github.com/tilbakekreving/backend/internal/domain/kravgrunnlag"
	"github.com/tilbakekreving/backend/internal/interfaces/http/dto"
	"github.com/tilbakekreving/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// MockMottakRepository implements kravgrunnlag.MottakRepository for testing
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

// inMemoryFerdigstiller appends to the in-memory log and records the queued
// dispatch, standing in for the transactional implementation.
type inMemoryFerdigstiller struct {
	logg        *hendelse.InMemoryLogg
	utsendinger []*iverksettelse.Utsending
}

func (f *inMemoryFerdigstiller) FerdigstillOgKø(ctx context.Context, h hendelse.Hendelse, expectedVersion int64, utsending *iverksettelse.Utsending) error {
	if err := f.logg.Append(ctx, h, expectedVersion); err != nil {
		return err
	}
	if utsending != nil {
		f.utsendinger = append(f.utsendinger, utsending)
	}
	return nil
}

func rawKravgrunnlag() []byte {
	return []byte(`{
		"ekstern_id": "K-2026-001",
		"mottaker": "12345678901",
		"perioder": [
			{"fom": "2026-01-01", "tom": "2026-01-31", "tidligere_utbetalt": "5000", "korrigert": "4000", "feilutbetalt": "1000", "skatteprosent": "0.10"}
		]
	}`)
}

// behandlingFixture wires the handler over a real service with in-memory
// infrastructure, behind a router that injects the given caller identity.
type behandlingFixture struct {
	router        *gin.Engine
	logg          *hendelse.InMemoryLogg
	mottakRepo    *MockMottakRepository
	ferdigstiller *inMemoryFerdigstiller
}

func newBehandlingFixture(t *testing.T) *behandlingFixture {
	t.Helper()
	logg := hendelse.NewInMemoryLogg()
	mottakRepo := new(MockMottakRepository)
	ferdigstiller := &inMemoryFerdigstiller{logg: logg}
	service := appbehandling.NewBehandlingService(logg, mottakRepo, ferdigstiller, zap.NewNop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if ident := c.GetHeader("X-Test-Ident"); ident != "" {
			c.Set(middleware.JWTIdentKey, ident)
			c.Set(middleware.JWTRollerKey, []string{"SAKSBEHANDLER", "ATTESTANT"})
		}
		c.Next()
	})
	NewBehandlingHandler(service).RegisterRoutes(router.Group("/api/v1"))

	return &behandlingFixture{
		router:        router,
		logg:          logg,
		mottakRepo:    mottakRepo,
		ferdigstiller: ferdigstiller,
	}
}

// do performs a request as the given caller, with an optional If-Match version
func (f *behandlingFixture) do(method, path, ident string, version int64, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ident != "" {
		req.Header.Set("X-Test-Ident", ident)
	}
	if version >= 0 {
		req.Header.Set("If-Match", strconv.FormatInt(version, 10))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// åpnetBehandling opens a case and returns its id
func (f *behandlingFixture) åpnetBehandling(t *testing.T) uuid.UUID {
	t.Helper()
	mottak, err := kravgrunnlag.NyttMottak("K-2026-001", rawKravgrunnlag())
	require.NoError(t, err)

	f.mottakRepo.On("FindByID", mock.Anything, mottak.ID).Return(mottak, nil).Once()
	f.mottakRepo.On("MarkKonsumert", mock.Anything, mottak.ID, mock.Anything).Return(nil).Once()

	w := f.do("POST", "/api/v1/behandlinger", "Z111111", -1, gin.H{
		"sak_id":    uuid.New().String(),
		"mottak_id": mottak.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data appbehandling.BehandlingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.BehandlingID
}

// tilAttestering drives a case to TIL_ATTESTERING and returns its id and version
func (f *behandlingFixture) tilAttestering(t *testing.T) (uuid.UUID, int64) {
	t.Helper()
	id := f.åpnetBehandling(t)
	base := "/api/v1/behandlinger/" + id.String()

	w := f.do("POST", base+"/vurderinger", "Z111111", 1, gin.H{
		"fom": "2026-01-01", "tom": "2026-01-31", "utfall": "KREV_TILBAKE",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do("PUT", base+"/brevtekst", "Z111111", 2, gin.H{"brevtekst": "Vedtak om tilbakekreving"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do("POST", base+"/send-til-attestering", "Z111111", 3, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id, 4
}

func TestBehandlingHandler_Opprett(t *testing.T) {
	t.Run("opens a case and returns its version as ETag", func(t *testing.T) {
		f := newBehandlingFixture(t)
		mottak, err := kravgrunnlag.NyttMottak("K-2026-001", rawKravgrunnlag())
		require.NoError(t, err)

		f.mottakRepo.On("FindByID", mock.Anything, mottak.ID).Return(mottak, nil).Once()
		f.mottakRepo.On("MarkKonsumert", mock.Anything, mottak.ID, mock.Anything).Return(nil).Once()

		w := f.do("POST", "/api/v1/behandlinger", "Z111111", -1, gin.H{
			"sak_id":    uuid.New().String(),
			"mottak_id": mottak.ID.String(),
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, `"1"`, w.Header().Get("ETag"))

		var resp struct {
			Data appbehandling.BehandlingResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "OPPRETTET", resp.Data.Tilstand)
		assert.Equal(t, int64(1), resp.Data.Versjon)
	})

	t.Run("rejects unauthenticated callers", func(t *testing.T) {
		f := newBehandlingFixture(t)

		w := f.do("POST", "/api/v1/behandlinger", "", -1, gin.H{
			"sak_id":    uuid.New().String(),
			"mottak_id": uuid.New().String(),
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		f := newBehandlingFixture(t)

		w := f.do("POST", "/api/v1/behandlinger", "Z111111", -1, gin.H{"sak_id": "not-a-uuid"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBehandlingHandler_Hent(t *testing.T) {
	t.Run("returns the current case state", func(t *testing.T) {
		f := newBehandlingFixture(t)
		id := f.åpnetBehandling(t)

		w := f.do("GET", "/api/v1/behandlinger/"+id.String(), "Z111111", -1, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `"1"`, w.Header().Get("ETag"))
	})

	t.Run("unknown case yields 404", func(t *testing.T) {
		f := newBehandlingFixture(t)

		w := f.do("GET", "/api/v1/behandlinger/"+uuid.New().String(), "Z111111", -1, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id yields 400", func(t *testing.T) {
		f := newBehandlingFixture(t)

		w := f.do("GET", "/api/v1/behandlinger/not-a-uuid", "Z111111", -1, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBehandlingHandler_VersionGuard(t *testing.T) {
	t.Run("missing If-Match yields 400", func(t *testing.T) {
		f := newBehandlingFixture(t)
		id := f.åpnetBehandling(t)

		w := f.do("POST", "/api/v1/behandlinger/"+id.String()+"/vurderinger", "Z111111", -1, gin.H{
			"fom": "2026-01-01", "tom": "2026-01-31", "utfall": "KREV_TILBAKE",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stale If-Match yields 409", func(t *testing.T) {
		f := newBehandlingFixture(t)
		id := f.åpnetBehandling(t)

		w := f.do("POST", "/api/v1/behandlinger/"+id.String()+"/vurderinger", "Z111111", 99, gin.H{
			"fom": "2026-01-01", "tom": "2026-01-31", "utfall": "KREV_TILBAKE",
		})

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeStaleVersion, resp.Error.Code)
	})
}

func TestBehandlingHandler_Attester(t *testing.T) {
	t.Run("a second caseworker finalizes the case", func(t *testing.T) {
		f := newBehandlingFixture(t)
		id, versjon := f.tilAttestering(t)

		w := f.do("POST", "/api/v1/behandlinger/"+id.String()+"/attester", "Z222222", versjon, nil)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data appbehandling.BehandlingResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "IVERKSATT", resp.Data.Tilstand)
		assert.Equal(t, "Z222222", resp.Data.Attestant)
		require.Len(t, f.ferdigstiller.utsendinger, 1)
	})

	t.Run("the submitter cannot attest their own case", func(t *testing.T) {
		f := newBehandlingFixture(t)
		id, versjon := f.tilAttestering(t)

		w := f.do("POST", "/api/v1/behandlinger/"+id.String()+"/attester", "Z111111", versjon, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeSelfAttestation, resp.Error.Code)
	})
}

func TestBehandlingHandler_Underkjenn(t *testing.T) {
	f := newBehandlingFixture(t)
	id, versjon := f.tilAttestering(t)

	w := f.do("POST", "/api/v1/behandlinger/"+id.String()+"/underkjenn", "Z222222", versjon, gin.H{
		"aarsak":    "BEREGNINGSFEIL",
		"kommentar": "Beløpet for januar stemmer ikke",
	})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data appbehandling.BehandlingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UNDER_VURDERING", resp.Data.Tilstand)
	require.NotNil(t, resp.Data.Underkjennelse)
	assert.Equal(t, "Z222222", resp.Data.Underkjennelse.Attestant)
}

func TestBehandlingHandler_Avbryt(t *testing.T) {
	f := newBehandlingFixture(t)
	id := f.åpnetBehandling(t)

	w := f.do("POST", "/api/v1/behandlinger/"+id.String()+"/avbryt", "Z111111", 1, gin.H{
		"begrunnelse": "Feil sak",
	})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data appbehandling.BehandlingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AVBRUTT", resp.Data.Tilstand)
}

func TestBehandlingHandler_Historikk(t *testing.T) {
	t.Run("returns events in append order with actor metadata", func(t *testing.T) {
		f := newBehandlingFixture(t)
		id, _ := f.tilAttestering(t)

		w := f.do("GET", "/api/v1/behandlinger/"+id.String()+"/historikk", "Z111111", -1, nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []appbehandling.HendelseResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 4)
		for i, h := range resp.Data {
			assert.Equal(t, int64(i+1), h.Versjon)
			assert.Equal(t, "Z111111", h.Ident)
		}
	})

	t.Run("unknown case yields 404", func(t *testing.T) {
		f := newBehandlingFixture(t)

		w := f.do("GET", "/api/v1/behandlinger/"+uuid.New().String()+"/historikk", "Z111111", -1, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBehandlingHandler_Avstemming(t *testing.T) {
	f := newBehandlingFixture(t)
	id := f.åpnetBehandling(t)

	w := f.do("GET", "/api/v1/behandlinger/"+id.String()+"/avstemming", "Z111111", -1, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data appbehandling.AvstemmingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Komplett)
	assert.NotEmpty(t, resp.Data.Manglende)
}
