package historyloader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/candh/internal/domain"
	"github.com/rpattn/candh/internal/repository"
)

type countingRepo struct {
	repository.HistoryRepository
	calls atomic.Int32
	err   error
}

func (r *countingRepo) ListByEntities(ctx context.Context, entityType string, ids []string) (map[string][]domain.HistoryMaster, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.HistoryRepository.ListByEntities(ctx, entityType, ids)
}

func seed(t *testing.T, repo repository.HistoryRepository, entityType, entityID string) {
	t.Helper()
	err := repo.Save(context.Background(), domain.HistoryMaster{
		ID:         domain.NewHistoryID(),
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  domain.EntityOpInsert,
		ModifiedBy: "tester",
		ModifiedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestHistoryLoaderBatchesByEntityType(t *testing.T) {
	repo := &countingRepo{HistoryRepository: repository.NewMemoryHistoryRepository()}
	seed(t, repo, "User", "u1")
	seed(t, repo, "User", "u2")
	seed(t, repo, "CostAssignment", "c1")

	loader := NewHistoryLoader(repo, dataloader.WithWait(50*time.Millisecond))
	ctx := context.Background()

	refs := []EntityRef{
		{EntityType: "User", EntityID: "u1"},
		{EntityType: "User", EntityID: "u2"},
		{EntityType: "User", EntityID: "u3"},
		{EntityType: "CostAssignment", EntityID: "c1"},
	}
	counts := make([]int, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			masters, err := loader.Load(ctx, ref.EntityType, ref.EntityID)
			assert.NoError(t, err)
			counts[i] = len(masters)
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{1, 1, 0, 1}, counts)
	assert.Equal(t, int32(2), repo.calls.Load(), "one repository call per entity type")
}

func TestLoadMany(t *testing.T) {
	repo := repository.NewMemoryHistoryRepository()
	seed(t, repo, "User", "u1")
	loader := NewHistoryLoader(repo)

	got, err := LoadMany(context.Background(), loader.Loader, "User", []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, got["u1"], 1)
	assert.Empty(t, got["u2"])
}

func TestHistoryLoaderPropagatesErrors(t *testing.T) {
	boom := errors.New("database unavailable")
	repo := &countingRepo{HistoryRepository: repository.NewMemoryHistoryRepository(), err: boom}
	loader := NewHistoryLoader(repo)

	_, err := loader.Load(context.Background(), "User", "u1")
	assert.ErrorIs(t, err, boom)
}
