package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityOpType classifies an entity-level mutation.
type EntityOpType string

const (
	EntityOpInsert EntityOpType = "INSERT"
	EntityOpUpdate EntityOpType = "UPDATE"
	EntityOpDelete EntityOpType = "DELETE"
)

// Valid reports whether the operation is one of the known kinds.
func (o EntityOpType) Valid() bool {
	switch o {
	case EntityOpInsert, EntityOpUpdate, EntityOpDelete:
		return true
	}
	return false
}

// PropertyOpType classifies a change to a single property or collection element.
type PropertyOpType string

const (
	PropertyOpInsert PropertyOpType = "INSERT"
	PropertyOpUpdate PropertyOpType = "UPDATE"
	PropertyOpDelete PropertyOpType = "DELETE"
)

// HistoryMaster is the append-only audit record of one entity mutation.
type HistoryMaster struct {
	ID         uuid.UUID          `json:"id"`
	EntityType string             `json:"entity_type"`
	EntityID   string             `json:"entity_id"`
	Operation  EntityOpType       `json:"operation"`
	ModifiedBy string             `json:"modified_by"`
	ModifiedAt time.Time          `json:"modified_at"`
	Attributes []HistoryAttribute `json:"attributes"`
}

// HistoryAttribute records the old and new rendering of one changed property.
// It belongs to exactly one HistoryMaster.
type HistoryAttribute struct {
	ID           uuid.UUID      `json:"id"`
	MasterID     uuid.UUID      `json:"master_id"`
	PropertyName string         `json:"property_name"`
	PropertyType string         `json:"property_type"`
	OldValue     *string        `json:"old_value,omitempty"`
	NewValue     *string        `json:"new_value,omitempty"`
	Operation    PropertyOpType `json:"operation"`
}

// IsNoop reports whether the master is an update that changed nothing.
func (m HistoryMaster) IsNoop() bool {
	return m.Operation == EntityOpUpdate && len(m.Attributes) == 0
}

// Attribute returns the attribute recorded for the named property.
func (m HistoryMaster) Attribute(name string) (HistoryAttribute, bool) {
	for _, attr := range m.Attributes {
		if attr.PropertyName == name {
			return attr, true
		}
	}
	return HistoryAttribute{}, false
}

// NewHistoryID returns a time-ordered identifier for history records.
func NewHistoryID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
