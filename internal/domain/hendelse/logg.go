package hendelse

import (
	"context"

	"github.com/google/uuid"
)

// Logg is the append-only event log. Implementations must enforce a unique
// (streamID, versjon) constraint so that two concurrent writers racing to
// extend the same stream have exactly one succeed.
type Logg interface {
	// Append stores the event if and only if its version equals
	// expectedVersion + 1 and the stream currently ends at expectedVersion.
	// A lost race or a stale expectation returns shared.ErrStaleVersion
	// without mutating the log.
	Append(ctx context.Context, h Hendelse, expectedVersion int64) error

	// ReadStream returns the full stream ordered by version. Reading the same
	// stream twice yields identical results.
	ReadStream(ctx context.Context, streamID uuid.UUID) ([]Hendelse, error)

	// ReadSak returns all events recorded against a case id, ordered by
	// stream and version. A case usually has a single stream, but the lookup
	// key is the case so callers need not know the stream ids up front.
	ReadSak(ctx context.Context, sakID uuid.UUID) ([]Hendelse, error)
}
