package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/candh/internal/domain"
)

// ErrDuplicateHistory is returned when a master id is saved twice.
var ErrDuplicateHistory = errors.New("history record already stored")

// HistoryRepository stores audit records. Records are append-only: there is
// no update or delete.
type HistoryRepository interface {
	// Save stores a master together with its attributes atomically.
	Save(ctx context.Context, master domain.HistoryMaster) error
	// ListByEntity returns the history of one entity, oldest first.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.HistoryMaster, error)
	// ListByEntities returns the histories of several entities keyed by id.
	// Ids without history are absent from the map.
	ListByEntities(ctx context.Context, entityType string, entityIDs []string) (map[string][]domain.HistoryMaster, error)
}

// validateMaster checks the structural invariants of a record before it is
// stored.
func validateMaster(master domain.HistoryMaster) error {
	if master.ID == uuid.Nil {
		return fmt.Errorf("history master id is required")
	}
	if master.EntityType == "" || master.EntityID == "" {
		return fmt.Errorf("history master %s: entity type and id are required", master.ID)
	}
	if !master.Operation.Valid() {
		return fmt.Errorf("history master %s: unknown operation %q", master.ID, master.Operation)
	}
	for i, attr := range master.Attributes {
		if attr.MasterID != master.ID {
			return fmt.Errorf("history master %s: attribute %d belongs to %s", master.ID, i, attr.MasterID)
		}
		if attr.PropertyName == "" {
			return fmt.Errorf("history master %s: attribute %d has no property name", master.ID, i)
		}
	}
	return nil
}

func cloneMaster(master domain.HistoryMaster) domain.HistoryMaster {
	clone := master
	clone.Attributes = make([]domain.HistoryAttribute, len(master.Attributes))
	copy(clone.Attributes, master.Attributes)
	return clone
}
