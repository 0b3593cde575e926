package hendelse

import (
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/shared"
)

// Innhold is the application-specific content of an event. Concrete content
// types live next to the aggregate they mutate and are folded into state by a
// pure transition function.
type Innhold interface {
	// Hendelsestype returns the stable type discriminator stored with the event
	Hendelsestype() string
}

// Hendelse is one immutable entry in a case's event stream. Within a stream,
// versions start at 1 and increase by exactly 1, and ForrigeHendelseID links
// each event to its predecessor. The stream is the single source of truth for
// case state; there is no mutable case record beside it.
type Hendelse struct {
	ID                uuid.UUID
	SakID             uuid.UUID
	StreamID          uuid.UUID
	Versjon           int64
	OpprettetAt       time.Time
	ForrigeHendelseID *uuid.UUID
	Meta              shared.Metadata
	Innhold           Innhold
}

// Ny creates the first event of a stream
func Ny(sakID, streamID uuid.UUID, meta shared.Metadata, innhold Innhold) Hendelse {
	return Hendelse{
		ID:          uuid.New(),
		SakID:       sakID,
		StreamID:    streamID,
		Versjon:     1,
		OpprettetAt: time.Now(),
		Meta:        meta,
		Innhold:     innhold,
	}
}

// Neste creates the successor of prev in the same stream, linking the causal
// chain and bumping the version by one.
func Neste(prev Hendelse, meta shared.Metadata, innhold Innhold) Hendelse {
	prevID := prev.ID
	return Hendelse{
		ID:                uuid.New(),
		SakID:             prev.SakID,
		StreamID:          prev.StreamID,
		Versjon:           prev.Versjon + 1,
		OpprettetAt:       time.Now(),
		ForrigeHendelseID: &prevID,
		Meta:              meta,
		Innhold:           innhold,
	}
}

// Type returns the content discriminator
func (h Hendelse) Type() string {
	return h.Innhold.Hendelsestype()
}
