package iverksettelse

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sendevakt guards a dispatch entry against concurrent workers and remembers
// acknowledgements across attempts. The database row is the source of truth
// for the outcome; the guard only keeps two worker instances from sending the
// same entry at the same time, and the ack record lets a retry skip the send
// when a previous attempt was accepted remotely but the local bookkeeping
// failed. A lost or expired record is still safe: the remote deduplicates on
// EksternRef.
type Sendevakt interface {
	// Acquire returns true if the caller won the right to dispatch the entry
	// for the duration of ttl
	Acquire(ctx context.Context, utsendingID uuid.UUID, ttl time.Duration) (bool, error)
	// Release frees the guard before its ttl expires
	Release(ctx context.Context, utsendingID uuid.UUID) error
	// MarkAcked records a remote acknowledgement under the entry's external
	// case reference
	MarkAcked(ctx context.Context, eksternRef string, kvitteringID string) error
	// Acked returns the recorded acknowledgement id for an external case
	// reference, if one exists
	Acked(ctx context.Context, eksternRef string) (string, bool, error)
}
