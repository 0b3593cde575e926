package hendelse

import (
	"fmt"

	"github.com/tilbakekreving/backend/internal/domain/shared"
)

// VerifyChain validates that a stream read from storage is a well-formed
// causal chain: versions 1, 2, 3, ... with no gaps or repeats, each event
// linked to its predecessor's id, and all events on the same stream. A
// violation means the stored data was corrupted, not a foreseeable business
// condition, so callers treat it as fatal.
func VerifyChain(events []Hendelse) error {
	for i, h := range events {
		want := int64(i + 1)
		if h.Versjon != want {
			return chainError(fmt.Sprintf("version gap at position %d: got %d, want %d", i, h.Versjon, want))
		}
		if i == 0 {
			if h.ForrigeHendelseID != nil {
				return chainError("first event must not reference a predecessor")
			}
			continue
		}
		if h.StreamID != events[0].StreamID {
			return chainError(fmt.Sprintf("event %d belongs to stream %s, want %s", i, h.StreamID, events[0].StreamID))
		}
		if h.ForrigeHendelseID == nil {
			return chainError(fmt.Sprintf("event at version %d has no predecessor link", h.Versjon))
		}
		if *h.ForrigeHendelseID != events[i-1].ID {
			return chainError(fmt.Sprintf("event at version %d links to %s, want %s", h.Versjon, h.ForrigeHendelseID, events[i-1].ID))
		}
	}
	return nil
}

func chainError(detail string) error {
	return shared.NewDomainError(shared.ErrChainCorruption.Code, "event stream corrupt: "+detail)
}
