package candh

import (
	"fmt"
	"time"

	"github.com/rpattn/candh/internal/domain"
)

// AssembleOption configures history assembly.
type AssembleOption func(*assembleConfig)

type assembleConfig struct {
	snapshot bool
}

// WithSnapshot requests full-field attributes for inserts and deletes.
// Without it those masters carry no attributes.
func WithSnapshot() AssembleOption {
	return func(c *assembleConfig) { c.snapshot = true }
}

func assembleSettings(opts []AssembleOption) assembleConfig {
	var cfg assembleConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Assemble converts a context into a history master. Updates get one
// attribute per entry, with the entry's operation. An update with an empty
// context yields a master without attributes.
func Assemble(entityType, entityID string, op domain.EntityOpType, actingUser string, at time.Time, audit *Context, opts ...AssembleOption) (domain.HistoryMaster, error) {
	if !op.Valid() {
		return domain.HistoryMaster{}, fmt.Errorf("unknown entity operation %q", op)
	}
	cfg := assembleSettings(opts)

	master := domain.HistoryMaster{
		ID:         domain.NewHistoryID(),
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		ModifiedBy: actingUser,
		ModifiedAt: at,
		Attributes: []domain.HistoryAttribute{},
	}

	if audit == nil {
		return master, nil
	}
	if op != domain.EntityOpUpdate && !cfg.snapshot {
		return master, nil
	}
	if !audit.Debug() && audit.Changed() {
		return domain.HistoryMaster{}, fmt.Errorf("assemble %s %s: %w", entityType, entityID, ErrEntriesNotRetained)
	}

	for _, entry := range audit.Entries() {
		master.Attributes = append(master.Attributes, domain.HistoryAttribute{
			ID:           domain.NewHistoryID(),
			MasterID:     master.ID,
			PropertyName: entry.PropertyName,
			PropertyType: entry.PropertyType,
			OldValue:     entry.OldValue,
			NewValue:     entry.NewValue,
			Operation:    entry.Operation,
		})
	}
	return master, nil
}
