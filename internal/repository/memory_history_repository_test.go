package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/candh/internal/domain"
)

func newMaster(entityID string, at time.Time, names ...string) domain.HistoryMaster {
	master := domain.HistoryMaster{
		ID:         domain.NewHistoryID(),
		EntityType: "User",
		EntityID:   entityID,
		Operation:  domain.EntityOpUpdate,
		ModifiedBy: "tester",
		ModifiedAt: at,
		Attributes: []domain.HistoryAttribute{},
	}
	for _, name := range names {
		value := name + "-new"
		master.Attributes = append(master.Attributes, domain.HistoryAttribute{
			ID:           domain.NewHistoryID(),
			MasterID:     master.ID,
			PropertyName: name,
			PropertyType: "string",
			NewValue:     &value,
			Operation:    domain.PropertyOpUpdate,
		})
	}
	return master
}

func TestMemoryHistoryRepository_SaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	later := newMaster("u1", base.Add(time.Hour), "email")
	earlier := newMaster("u1", base, "username", "firstname")
	other := newMaster("u2", base)
	for _, m := range []domain.HistoryMaster{later, earlier, other} {
		if err := repo.Save(ctx, m); err != nil {
			t.Fatalf("unexpected error saving history: %v", err)
		}
	}

	got, err := repo.ListByEntity(ctx, "User", "u1")
	if err != nil {
		t.Fatalf("unexpected error listing history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 masters, got %d", len(got))
	}
	if got[0].ID != earlier.ID || got[1].ID != later.ID {
		t.Fatalf("expected oldest first, got %s then %s", got[0].ID, got[1].ID)
	}
	if len(got[0].Attributes) != 2 {
		t.Fatalf("expected attributes to be stored with the master, got %d", len(got[0].Attributes))
	}

	got[0].Attributes[0].PropertyName = "mutated"
	again, _ := repo.ListByEntity(ctx, "User", "u1")
	if again[0].Attributes[0].PropertyName != "username" {
		t.Fatalf("stored history was mutated through a returned copy")
	}

	byID, err := repo.ListByEntities(ctx, "User", []string{"u1", "u2", "missing"})
	if err != nil {
		t.Fatalf("unexpected error listing histories: %v", err)
	}
	if len(byID) != 2 || len(byID["u1"]) != 2 || len(byID["u2"]) != 1 {
		t.Fatalf("unexpected grouping: %#v", byID)
	}
	if _, ok := byID["missing"]; ok {
		t.Fatalf("expected ids without history to be absent")
	}
}

func TestMemoryHistoryRepository_IsAppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()
	master := newMaster("u1", time.Now())

	if err := repo.Save(ctx, master); err != nil {
		t.Fatalf("unexpected error saving history: %v", err)
	}
	if err := repo.Save(ctx, master); !errors.Is(err, ErrDuplicateHistory) {
		t.Fatalf("expected ErrDuplicateHistory, got %v", err)
	}
}

func TestMemoryHistoryRepository_RejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	tests := map[string]func(m *domain.HistoryMaster){
		"missing id":        func(m *domain.HistoryMaster) { m.ID = uuid.Nil },
		"missing entity id": func(m *domain.HistoryMaster) { m.EntityID = "" },
		"unknown operation": func(m *domain.HistoryMaster) { m.Operation = "MERGE" },
		"foreign attribute": func(m *domain.HistoryMaster) { m.Attributes[0].MasterID = uuid.New() },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			master := newMaster("u1", time.Now(), "email")
			mutate(&master)
			if err := repo.Save(ctx, master); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMemoryHistoryRepository_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryHistoryRepository()
	if err := repo.Save(ctx, newMaster("u1", time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
