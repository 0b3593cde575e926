package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/tilbakekreving/backend/internal/domain/behandling"
	"github.com/tilbakekreving/backend/internal/domain/hendelse"
)

// Serializer handles JSON (de)serialization of event content. Rows in the
// event log carry an opaque payload plus a type discriminator; the serializer
// maps discriminators back to concrete content types on read.
type Serializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type // event type -> Go type
}

// NewSerializer creates an empty serializer
func NewSerializer() *Serializer {
	return &Serializer{
		registry: make(map[string]reflect.Type),
	}
}

// NewBehandlingSerializer creates a serializer with every case event type
// registered
func NewBehandlingSerializer() *Serializer {
	s := NewSerializer()
	s.Register(behandling.BehandlingOpprettet{})
	s.Register(behandling.VurderingRegistrert{})
	s.Register(behandling.BrevtekstOppdatert{})
	s.Register(behandling.SendtTilAttestering{})
	s.Register(behandling.Attestert{})
	s.Register(behandling.Underkjent{})
	s.Register(behandling.BehandlingAvbrutt{})
	return s
}

// Register registers a content type under its own discriminator
func (s *Serializer) Register(innhold hendelse.Innhold) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(innhold)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[innhold.Hendelsestype()] = t
}

// Serialize serializes event content to JSON bytes
func (s *Serializer) Serialize(innhold hendelse.Innhold) ([]byte, error) {
	return json.Marshal(innhold)
}

// Deserialize turns stored payload bytes back into typed event content
func (s *Serializer) Deserialize(eventType string, data []byte) (hendelse.Innhold, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", eventType, err)
	}

	innhold, ok := reflect.ValueOf(ptr).Elem().Interface().(hendelse.Innhold)
	if !ok {
		return nil, fmt.Errorf("deserialized %s does not implement hendelse.Innhold", eventType)
	}
	return innhold, nil
}

// IsRegistered checks if an event type is known
func (s *Serializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns all registered discriminators
func (s *Serializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	return types
}
