package behandling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilbakekreving/backend/internal/domain/hendelse"
	"github.com/tilbakekreving/backend/internal/domain/shared"
	"github.com/tilbakekreving/backend/internal/domain/shared/valueobject"
)

const (
	saksbehandler = "Z111111"
	attestant     = "Z222222"
)

// streamBuilder accumulates a causally chained case stream for tests
type streamBuilder struct {
	t      *testing.T
	events []hendelse.Hendelse
}

func nyStream(t *testing.T) *streamBuilder {
	t.Helper()
	b := &streamBuilder{t: t}
	b.events = append(b.events, hendelse.Ny(uuid.New(), uuid.New(), shared.NewMetadata(saksbehandler), BehandlingOpprettet{
		MottakID:     uuid.New(),
		Kravgrunnlag: *toPeriodersGrunnlag(t),
	}))
	return b
}

func (b *streamBuilder) add(ident string, innhold hendelse.Innhold) *streamBuilder {
	b.events = append(b.events, hendelse.Neste(b.events[len(b.events)-1], shared.NewMetadata(ident), innhold))
	return b
}

func (b *streamBuilder) replay() (Tilstand, error) {
	return FraHendelser(b.events)
}

func (b *streamBuilder) mustReplay() Tilstand {
	b.t.Helper()
	state, err := b.replay()
	require.NoError(b.t, err)
	return state
}

func komplettVurdert(t *testing.T) *streamBuilder {
	t.Helper()
	return nyStream(t).
		add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallKrevTilbake)}).
		add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.February, UtfallIkkeKrevTilbake)}).
		add(saksbehandler, BrevtekstOppdatert{Brevtekst: "Du har fått utbetalt for mye."})
}

func TestFold(t *testing.T) {
	t.Run("opening yields OPPRETTET", func(t *testing.T) {
		state := nyStream(t).mustReplay()
		require.IsType(t, Opprettet{}, state)
		assert.Equal(t, NavnOpprettet, state.Navn())
		assert.False(t, state.ErTerminal())
	})

	t.Run("partial assessment yields UNDER_VURDERING", func(t *testing.T) {
		state := nyStream(t).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallKrevTilbake)}).
			mustReplay()
		require.IsType(t, UnderVurdering{}, state)
		assert.Len(t, state.Data().Vurderinger, 1)
	})

	t.Run("full coverage without letter stays UNDER_VURDERING", func(t *testing.T) {
		state := nyStream(t).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallKrevTilbake)}).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.February, UtfallIkkeKrevTilbake)}).
			mustReplay()
		assert.IsType(t, UnderVurdering{}, state)
	})

	t.Run("full coverage with letter yields KLAR_TIL_ATTESTERING", func(t *testing.T) {
		state := komplettVurdert(t).mustReplay()
		assert.IsType(t, KlarTilAttestering{}, state)
	})

	t.Run("re-assessing the same period replaces, not appends", func(t *testing.T) {
		state := nyStream(t).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallKrevTilbake)}).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallIkkeKrevTilbake)}).
			mustReplay()
		require.Len(t, state.Data().Vurderinger, 1)
		assert.Equal(t, UtfallIkkeKrevTilbake, state.Data().Vurderinger[0].Utfall)
	})

	t.Run("submission records the submitter", func(t *testing.T) {
		state := komplettVurdert(t).add(saksbehandler, SendtTilAttestering{}).mustReplay()
		til, ok := state.(TilAttestering)
		require.True(t, ok)
		assert.Equal(t, saksbehandler, til.SendtAv())
	})

	t.Run("approval yields terminal IVERKSATT with attestor", func(t *testing.T) {
		state := komplettVurdert(t).
			add(saksbehandler, SendtTilAttestering{}).
			add(attestant, Attestert{}).
			mustReplay()
		iverksatt, ok := state.(Iverksatt)
		require.True(t, ok)
		assert.True(t, iverksatt.ErTerminal())
		assert.Equal(t, attestant, iverksatt.Attestant)

		avstemt, err := iverksatt.Avstemt()
		require.NoError(t, err)
		assert.True(t, avstemt.HarNoenKrevesTilbake())
	})

	t.Run("rejection returns to UNDER_VURDERING with assessments intact", func(t *testing.T) {
		state := komplettVurdert(t).
			add(saksbehandler, SendtTilAttestering{}).
			add(attestant, Underkjent{Årsak: ÅrsakBeregningsfeil, Kommentar: "beløpet stemmer ikke"}).
			mustReplay()

		under, ok := state.(UnderVurdering)
		require.True(t, ok)
		assert.Len(t, under.Data().Vurderinger, 2, "prior assessments must survive rejection")
		require.NotNil(t, under.Data().SisteUnderkjennelse)
		assert.Equal(t, ÅrsakBeregningsfeil, under.Data().SisteUnderkjennelse.Årsak)
		assert.Equal(t, attestant, under.Data().SisteUnderkjennelse.Attestant)
	})

	t.Run("re-submission after rejection is a new attestation round", func(t *testing.T) {
		b := komplettVurdert(t).
			add(saksbehandler, SendtTilAttestering{}).
			add(attestant, Underkjent{Årsak: ÅrsakFeilBrevtekst, Kommentar: ""}).
			add(saksbehandler, BrevtekstOppdatert{Brevtekst: "Oppdatert brevtekst."}).
			add(saksbehandler, SendtTilAttestering{})

		state := b.mustReplay()
		assert.IsType(t, TilAttestering{}, state)
		assert.Equal(t, int64(8), b.events[len(b.events)-1].Versjon)
	})

	t.Run("cancellation is reachable from any non-terminal state", func(t *testing.T) {
		builders := map[string]*streamBuilder{
			"opprettet":            nyStream(t),
			"under vurdering":      nyStream(t).add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallKrevTilbake)}),
			"klar til attestering": komplettVurdert(t),
			"til attestering":      komplettVurdert(t).add(saksbehandler, SendtTilAttestering{}),
		}
		for name, b := range builders {
			state := b.add(saksbehandler, BehandlingAvbrutt{Begrunnelse: "feil mottaker"}).mustReplay()
			avbrutt, ok := state.(Avbrutt)
			require.True(t, ok, name)
			assert.True(t, avbrutt.ErTerminal(), name)
			assert.Equal(t, "feil mottaker", avbrutt.Begrunnelse, name)
		}
	})

	t.Run("replay is deterministic", func(t *testing.T) {
		b := komplettVurdert(t).
			add(saksbehandler, SendtTilAttestering{}).
			add(attestant, Attestert{})

		first, err := b.replay()
		require.NoError(t, err)
		second, err := b.replay()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty stream is not found", func(t *testing.T) {
		_, err := FraHendelser(nil)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("illegal event order fails as corruption", func(t *testing.T) {
		_, err := nyStream(t).add(attestant, Attestert{}).replay()
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrChainCorruption.Code, domainErr.Code)
	})

	t.Run("mutation after terminal state fails as corruption", func(t *testing.T) {
		_, err := nyStream(t).
			add(saksbehandler, BehandlingAvbrutt{Begrunnelse: "avsluttet"}).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.January, UtfallKrevTilbake)}).
			replay()
		assert.Error(t, err)
	})
}

func TestTilstandCommands(t *testing.T) {
	t.Run("submission is only expressible on KLAR_TIL_ATTESTERING", func(t *testing.T) {
		state := komplettVurdert(t).mustReplay()
		klar, ok := state.(KlarTilAttestering)
		require.True(t, ok)

		innhold, err := klar.SendTilAttestering()
		require.NoError(t, err)
		assert.Equal(t, TypeSendtTilAttestering, innhold.Hendelsestype())
	})

	t.Run("self-approval is rejected", func(t *testing.T) {
		state := komplettVurdert(t).add(saksbehandler, SendtTilAttestering{}).mustReplay()
		til, ok := state.(TilAttestering)
		require.True(t, ok)

		_, err := til.Attester(saksbehandler)
		assert.ErrorIs(t, err, shared.ErrSelfAttestation)

		_, err = til.Underkjenn(saksbehandler, ÅrsakAnnet, "")
		assert.ErrorIs(t, err, shared.ErrSelfAttestation)
	})

	t.Run("rejection requires a known reason", func(t *testing.T) {
		state := komplettVurdert(t).add(saksbehandler, SendtTilAttestering{}).mustReplay()
		til := state.(TilAttestering)

		_, err := til.Underkjenn(attestant, UnderkjennelseÅrsak("TILFELDIG"), "")
		assert.Error(t, err)
	})

	t.Run("cancellation requires a justification", func(t *testing.T) {
		state := nyStream(t).mustReplay()
		opprettet := state.(Opprettet)

		_, err := opprettet.Avbryt("")
		assert.Error(t, err)
	})

	t.Run("assessment outside the claim document is caught at reconciliation", func(t *testing.T) {
		state := nyStream(t).
			add(saksbehandler, VurderingRegistrert{Vurdering: vurdert(t, 2024, time.March, UtfallKrevTilbake)}).
			add(saksbehandler, BrevtekstOppdatert{Brevtekst: "tekst"}).
			mustReplay()

		// Never KLAR_TIL_ATTESTERING: March is not in the claim document.
		assert.IsType(t, UnderVurdering{}, state)

		data := state.Data()
		_, err := Avstem(data.Vurderinger, &data.Kravgrunnlag)
		var mismatch *MismatchError
		require.ErrorAs(t, err, &mismatch)
	})
}

func TestVurdering(t *testing.T) {
	t.Run("rejects unknown outcome", func(t *testing.T) {
		_, err := NyVurdering(valueobject.NewMonth(2024, time.January), Utfall("KANSKJE"))
		assert.Error(t, err)
	})

	t.Run("rejects zero period", func(t *testing.T) {
		_, err := NyVurdering(valueobject.Periode{}, UtfallKrevTilbake)
		assert.Error(t, err)
	})
}
