package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
)

// guardEntry represents a held guard with expiration
type guardEntry struct {
	expiresAt time.Time
}

// InMemorySendevakt implements iverksettelse.Sendevakt using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemorySendevakt struct {
	mu        sync.Mutex
	entries   map[uuid.UUID]guardEntry
	acks      map[string]string
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySendevakt creates a new in-memory dispatch guard.
// It starts a background goroutine to clean up expired entries.
func NewInMemorySendevakt() *InMemorySendevakt {
	vakt := &InMemorySendevakt{
		entries:  make(map[uuid.UUID]guardEntry),
		acks:     make(map[string]string),
		stopChan: make(chan struct{}),
	}

	vakt.wg.Add(1)
	go vakt.cleanupLoop()

	return vakt
}

// Acquire implements iverksettelse.Sendevakt
func (s *InMemorySendevakt) Acquire(ctx context.Context, utsendingID uuid.UUID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[utsendingID]; exists && time.Now().Before(e.expiresAt) {
		return false, nil
	}

	s.entries[utsendingID] = guardEntry{
		expiresAt: time.Now().Add(ttl),
	}
	return true, nil
}

// Release implements iverksettelse.Sendevakt
func (s *InMemorySendevakt) Release(ctx context.Context, utsendingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, utsendingID)
	return nil
}

// MarkAcked implements iverksettelse.Sendevakt. In-memory acks live until the
// process exits; the remote's own deduplication covers restarts.
func (s *InMemorySendevakt) MarkAcked(ctx context.Context, eksternRef string, kvitteringID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks[eksternRef] = kvitteringID
	return nil
}

// Acked implements iverksettelse.Sendevakt
func (s *InMemorySendevakt) Acked(ctx context.Context, eksternRef string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kvitteringID, ok := s.acks[eksternRef]
	return kvitteringID, ok, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemorySendevakt) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemorySendevakt) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemorySendevakt) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// Size returns the number of held guards (for testing/monitoring)
func (s *InMemorySendevakt) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ iverksettelse.Sendevakt = (*InMemorySendevakt)(nil)
