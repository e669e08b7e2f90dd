package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rpattn/candh/internal/domain"
)

type entityKey struct {
	entityType string
	entityID   string
}

// MemoryHistoryRepository keeps history in process memory.
type MemoryHistoryRepository struct {
	mu       sync.RWMutex
	byEntity map[entityKey][]domain.HistoryMaster
	ids      map[uuid.UUID]struct{}
}

// NewMemoryHistoryRepository creates an empty in-memory store.
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{
		byEntity: make(map[entityKey][]domain.HistoryMaster),
		ids:      make(map[uuid.UUID]struct{}),
	}
}

func (r *MemoryHistoryRepository) Save(ctx context.Context, master domain.HistoryMaster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateMaster(master); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ids[master.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHistory, master.ID)
	}
	r.ids[master.ID] = struct{}{}
	key := entityKey{entityType: master.EntityType, entityID: master.EntityID}
	r.byEntity[key] = append(r.byEntity[key], cloneMaster(master))
	return nil
}

func (r *MemoryHistoryRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.HistoryMaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(entityKey{entityType: entityType, entityID: entityID}), nil
}

func (r *MemoryHistoryRepository) ListByEntities(ctx context.Context, entityType string, entityIDs []string) (map[string][]domain.HistoryMaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]domain.HistoryMaster, len(entityIDs))
	for _, id := range entityIDs {
		if masters := r.listLocked(entityKey{entityType: entityType, entityID: id}); len(masters) > 0 {
			out[id] = masters
		}
	}
	return out, nil
}

func (r *MemoryHistoryRepository) listLocked(key entityKey) []domain.HistoryMaster {
	stored := r.byEntity[key]
	out := make([]domain.HistoryMaster, len(stored))
	for i, m := range stored {
		out[i] = cloneMaster(m)
	}
	slices.SortStableFunc(out, func(a, b domain.HistoryMaster) int {
		return a.ModifiedAt.Compare(b.ModifiedAt)
	})
	return out
}
