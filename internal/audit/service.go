package audit

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/auth"
	"github.com/rpattn/candh/internal/candh"
	"github.com/rpattn/candh/internal/domain"
	"github.com/rpattn/candh/internal/metrics"
	"github.com/rpattn/candh/internal/repository"
)

// Service records the history of entity mutations. The acting user comes
// from the request context and the timestamp from the clock.
type Service struct {
	engine       *candh.Engine
	repo         repository.HistoryRepository
	clock        clockwork.Clock
	logger       *zap.Logger
	metrics      *metrics.Metrics
	suppressNoop bool
	snapshots    bool
	debugEntries bool
}

// Option configures a Service.
type Option func(*Service)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSuppressNoopUpdates skips storing updates without attributes.
func WithSuppressNoopUpdates(suppress bool) Option {
	return func(s *Service) { s.suppressNoop = suppress }
}

// WithDebugEntries logs every stored attribute at debug level.
func WithDebugEntries(enabled bool) Option {
	return func(s *Service) { s.debugEntries = enabled }
}

// WithSnapshots stores full-field attributes for inserts and deletes.
func WithSnapshots(enabled bool) Option {
	return func(s *Service) { s.snapshots = enabled }
}

func NewService(engine *candh.Engine, repo repository.HistoryRepository, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		repo:   repo,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInsert stores the history of a newly persisted entity.
func (s *Service) RecordInsert(ctx context.Context, entity any, entityID string) (*domain.HistoryMaster, error) {
	_, master, err := s.record(ctx, entity, nil, entityID, domain.EntityOpInsert)
	return master, err
}

// RecordUpdate copies incoming into stored and records what changed. The
// returned master is nil when a no-op update was suppressed.
func (s *Service) RecordUpdate(ctx context.Context, incoming, stored any, entityID string) (candh.EntityCopyStatus, *domain.HistoryMaster, error) {
	return s.record(ctx, incoming, stored, entityID, domain.EntityOpUpdate)
}

// RecordDelete stores the history of a removed entity.
func (s *Service) RecordDelete(ctx context.Context, entity any, entityID string) (*domain.HistoryMaster, error) {
	_, master, err := s.record(ctx, nil, entity, entityID, domain.EntityOpDelete)
	return master, err
}

// History returns the stored history of one entity.
func (s *Service) History(ctx context.Context, entityType, entityID string) ([]domain.HistoryMaster, error) {
	masters, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s %s: %w", entityType, entityID, err)
	}
	return masters, nil
}

func (s *Service) record(ctx context.Context, src, dest any, entityID string, op domain.EntityOpType) (candh.EntityCopyStatus, *domain.HistoryMaster, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return candh.StatusNone, nil, err
	}

	var opts []candh.AssembleOption
	if s.snapshots {
		opts = append(opts, candh.WithSnapshot())
	}

	status, master, err := s.engine.RunChangeDetection(src, dest, entityID, op, actor, s.clock.Now().UTC(), opts...)
	if err != nil {
		return status, nil, err
	}

	if op == domain.EntityOpUpdate {
		s.metrics.ObserveStatus(master.EntityType, status.String())
	}
	if master.IsNoop() && s.suppressNoop {
		s.metrics.ObserveSuppressed(master.EntityType)
		s.logger.Debug("skipping no-op update",
			zap.String("entity_type", master.EntityType),
			zap.String("entity_id", entityID),
		)
		return status, nil, nil
	}

	if err := s.repo.Save(ctx, *master); err != nil {
		return status, nil, fmt.Errorf("failed to store history of %s %s: %w", master.EntityType, entityID, err)
	}
	s.metrics.ObserveRecord(master.EntityType, string(op), len(master.Attributes))
	if s.debugEntries {
		for _, attr := range master.Attributes {
			s.logger.Debug("history attribute",
				zap.String("entity_type", master.EntityType),
				zap.String("entity_id", entityID),
				zap.String("property", attr.PropertyName),
				zap.String("operation", string(attr.Operation)),
				zap.Stringp("old", attr.OldValue),
				zap.Stringp("new", attr.NewValue),
			)
		}
	}
	s.logger.Info("history recorded",
		zap.String("entity_type", master.EntityType),
		zap.String("entity_id", entityID),
		zap.String("operation", string(op)),
		zap.String("status", status.String()),
		zap.Int("attributes", len(master.Attributes)),
	)
	return status, master, nil
}
