package shared

import (
	"github.com/google/uuid"
)

// Metadata identifies who caused a change and under which request. It is
// carried explicitly on every command and stored on every event for audit;
// business logic never reads it from ambient state.
type Metadata struct {
	Ident         string    `json:"ident"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	Roles         []string  `json:"roles,omitempty"`
}

// NewMetadata creates metadata for an actor with a fresh correlation id
func NewMetadata(ident string, roles ...string) Metadata {
	return Metadata{
		Ident:         ident,
		CorrelationID: uuid.New(),
		Roles:         roles,
	}
}

// WithCorrelation returns a copy carrying the given correlation id
func (m Metadata) WithCorrelation(correlationID uuid.UUID) Metadata {
	m.CorrelationID = correlationID
	return m
}

// HasRole reports whether the actor holds the given role
func (m Metadata) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}
