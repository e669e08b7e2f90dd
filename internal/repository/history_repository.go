package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/db"
	"github.com/rpattn/candh/internal/domain"
)

type postgresHistoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresHistoryRepository wires a repository backed by pgxpool.
func NewPostgresHistoryRepository(pool *pgxpool.Pool, logger *zap.Logger) HistoryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresHistoryRepository{pool: pool, logger: logger}
}

func (r *postgresHistoryRepository) Save(ctx context.Context, master domain.HistoryMaster) error {
	if r.pool == nil {
		return fmt.Errorf("history repository not initialized")
	}
	if err := validateMaster(master); err != nil {
		return err
	}

	return db.WithTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		tag, err := tx.Exec(
			ctx,
			`INSERT INTO history_master (id, entity_type, entity_id, operation, modified_by, modified_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			master.ID,
			master.EntityType,
			master.EntityID,
			string(master.Operation),
			master.ModifiedBy,
			master.ModifiedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert history master: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateHistory, master.ID)
		}

		if len(master.Attributes) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, attr := range master.Attributes {
			batch.Queue(
				`INSERT INTO history_attribute (id, master_id, ordinal, property_name, property_type, old_value, new_value, operation)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				attr.ID,
				master.ID,
				i,
				attr.PropertyName,
				attr.PropertyType,
				attr.OldValue,
				attr.NewValue,
				string(attr.Operation),
			)
		}
		results := tx.SendBatch(ctx, batch)
		for range master.Attributes {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert history attribute: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to flush history attributes: %w", err)
		}
		return nil
	})
}

func (r *postgresHistoryRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.HistoryMaster, error) {
	byID, err := r.ListByEntities(ctx, entityType, []string{entityID})
	if err != nil {
		return nil, err
	}
	masters := byID[entityID]
	if masters == nil {
		masters = []domain.HistoryMaster{}
	}
	return masters, nil
}

func (r *postgresHistoryRepository) ListByEntities(ctx context.Context, entityType string, entityIDs []string) (map[string][]domain.HistoryMaster, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("history repository not initialized")
	}
	out := make(map[string][]domain.HistoryMaster, len(entityIDs))
	if len(entityIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, entity_type, entity_id, operation, modified_by, modified_at
		 FROM history_master
		 WHERE entity_type = $1
		   AND entity_id = ANY($2)
		 ORDER BY modified_at, id`,
		entityType,
		entityIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	var masters []domain.HistoryMaster
	for rows.Next() {
		var (
			master     domain.HistoryMaster
			operation  string
			modifiedAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&master.ID,
			&master.EntityType,
			&master.EntityID,
			&operation,
			&master.ModifiedBy,
			&modifiedAt,
		); scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan history master: %w", scanErr)
		}
		master.Operation = domain.EntityOpType(operation)
		if modifiedAt.Valid {
			master.ModifiedAt = modifiedAt.Time
		}
		master.Attributes = []domain.HistoryAttribute{}
		masters = append(masters, master)
	}
	rows.Close()
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", rowsErr)
	}
	if len(masters) == 0 {
		return out, nil
	}

	if err := r.loadAttributes(ctx, masters); err != nil {
		return nil, err
	}
	for _, m := range masters {
		out[m.EntityID] = append(out[m.EntityID], m)
	}
	return out, nil
}

func (r *postgresHistoryRepository) loadAttributes(ctx context.Context, masters []domain.HistoryMaster) error {
	index := make(map[uuid.UUID]int, len(masters))
	ids := make([]uuid.UUID, len(masters))
	for i, m := range masters {
		index[m.ID] = i
		ids[i] = m.ID
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, master_id, property_name, property_type, old_value, new_value, operation
		 FROM history_attribute
		 WHERE master_id = ANY($1)
		 ORDER BY master_id, ordinal`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to list history attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			attr      domain.HistoryAttribute
			operation string
		)
		if scanErr := rows.Scan(
			&attr.ID,
			&attr.MasterID,
			&attr.PropertyName,
			&attr.PropertyType,
			&attr.OldValue,
			&attr.NewValue,
			&operation,
		); scanErr != nil {
			return fmt.Errorf("failed to scan history attribute: %w", scanErr)
		}
		attr.Operation = domain.PropertyOpType(operation)
		i, ok := index[attr.MasterID]
		if !ok {
			continue
		}
		masters[i].Attributes = append(masters[i].Attributes, attr)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return fmt.Errorf("failed to iterate history attributes: %w", rowsErr)
	}
	return nil
}
