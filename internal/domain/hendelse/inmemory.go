package hendelse

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/shared"
)

// InMemoryLogg is a Logg kept entirely in memory. It is used by tests and
// carries the same optimistic-concurrency semantics as the database-backed
// implementation.
type InMemoryLogg struct {
	mu      sync.RWMutex
	streams map[uuid.UUID][]Hendelse
}

// NewInMemoryLogg creates an empty in-memory log
func NewInMemoryLogg() *InMemoryLogg {
	return &InMemoryLogg{
		streams: make(map[uuid.UUID][]Hendelse),
	}
}

// Append implements Logg
func (l *InMemoryLogg) Append(_ context.Context, h Hendelse, expectedVersion int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stream := l.streams[h.StreamID]
	current := int64(len(stream))
	if current != expectedVersion || h.Versjon != expectedVersion+1 {
		return shared.ErrStaleVersion
	}
	l.streams[h.StreamID] = append(stream, h)
	return nil
}

// ReadStream implements Logg
func (l *InMemoryLogg) ReadStream(_ context.Context, streamID uuid.UUID) ([]Hendelse, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stream := l.streams[streamID]
	out := make([]Hendelse, len(stream))
	copy(out, stream)
	return out, nil
}

// ReadSak implements Logg
func (l *InMemoryLogg) ReadSak(_ context.Context, sakID uuid.UUID) ([]Hendelse, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Hendelse
	for _, stream := range l.streams {
		for _, h := range stream {
			if h.SakID == sakID {
				out = append(out, h)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StreamID != out[j].StreamID {
			return out[i].StreamID.String() < out[j].StreamID.String()
		}
		return out[i].Versjon < out[j].Versjon
	})
	return out, nil
}
