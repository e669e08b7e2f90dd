package historyloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/candh/internal/domain"
	"github.com/rpattn/candh/internal/repository"
)

// EntityRef identifies the entity whose history is loaded.
type EntityRef struct {
	EntityType string
	EntityID   string
}

func (k EntityRef) String() string { return k.EntityType + "/" + k.EntityID }

func (k EntityRef) Raw() interface{} { return k }

// HistoryLoader batches history lookups issued while serving one request.
type HistoryLoader struct {
	Loader *dataloader.Loader
}

// NewHistoryLoader creates a loader over repo. Extra options are applied
// after the default batch wait.
func NewHistoryLoader(repo repository.HistoryRepository, opts ...dataloader.Option) *HistoryLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		idsByType := make(map[string][]string)
		refs := make([]EntityRef, len(keys))
		for i, k := range keys {
			ref, ok := k.Raw().(EntityRef)
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("invalid history key %q", k.String())}
				continue
			}
			refs[i] = ref
			idsByType[ref.EntityType] = append(idsByType[ref.EntityType], ref.EntityID)
		}

		loaded := make(map[string]map[string][]domain.HistoryMaster, len(idsByType))
		failed := make(map[string]error)
		for entityType, ids := range idsByType {
			byID, err := repo.ListByEntities(ctx, entityType, ids)
			if err != nil {
				failed[entityType] = err
				continue
			}
			loaded[entityType] = byID
		}

		for i, ref := range refs {
			if results[i] != nil {
				continue
			}
			if err, ok := failed[ref.EntityType]; ok {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			masters := loaded[ref.EntityType][ref.EntityID]
			if masters == nil {
				masters = []domain.HistoryMaster{}
			}
			results[i] = &dataloader.Result{Data: masters}
		}
		return results
	}

	options := append([]dataloader.Option{dataloader.WithWait(5 * time.Millisecond)}, opts...)
	loader := dataloader.NewBatchedLoader(batchFn, options...)

	return &HistoryLoader{Loader: loader}
}

// Load returns the history of one entity.
func (l *HistoryLoader) Load(ctx context.Context, entityType, entityID string) ([]domain.HistoryMaster, error) {
	return Load(ctx, l.Loader, entityType, entityID)
}

// Load resolves one entity's history through a shared loader.
func Load(ctx context.Context, loader *dataloader.Loader, entityType, entityID string) ([]domain.HistoryMaster, error) {
	ref := EntityRef{EntityType: strings.TrimSpace(entityType), EntityID: strings.TrimSpace(entityID)}
	data, err := loader.Load(ctx, ref)()
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", ref, err)
	}
	masters, ok := data.([]domain.HistoryMaster)
	if !ok {
		return nil, fmt.Errorf("unexpected history payload %T", data)
	}
	return masters, nil
}

// LoadMany resolves several entities of the same type in one batch.
func LoadMany(ctx context.Context, loader *dataloader.Loader, entityType string, entityIDs []string) (map[string][]domain.HistoryMaster, error) {
	keys := make(dataloader.Keys, len(entityIDs))
	for i, id := range entityIDs {
		keys[i] = EntityRef{EntityType: strings.TrimSpace(entityType), EntityID: strings.TrimSpace(id)}
	}
	data, errs := loader.LoadMany(ctx, keys)()
	out := make(map[string][]domain.HistoryMaster, len(entityIDs))
	for i, item := range data {
		if i < len(errs) && errs[i] != nil {
			return nil, fmt.Errorf("failed to load history of %s: %w", keys[i], errs[i])
		}
		masters, ok := item.([]domain.HistoryMaster)
		if !ok {
			return nil, fmt.Errorf("unexpected history payload %T", item)
		}
		out[keys[i].Raw().(EntityRef).EntityID] = masters
	}
	return out, nil
}
