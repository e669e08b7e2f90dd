package candh

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/domain"
)

// ErrNilEntity is returned when src or dest is nil.
var ErrNilEntity = errors.New("entity is nil")

// Engine runs diff walks against a Registry. It holds no mutable state and
// may be shared across goroutines; each call owns its own Context.
type Engine struct {
	registry *Registry
	debug    bool
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDebug makes CopyValues retain rendered debug entries.
func WithDebug(debug bool) EngineOption {
	return func(e *Engine) { e.debug = debug }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over an immutable registry.
func NewEngine(registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{registry: registry, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine dispatches with.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// CopyValues copies every walked property of src into dest and reports how
// significant the changes were. ignoreFields names top-level properties to
// leave untouched.
func (e *Engine) CopyValues(src, dest any, ignoreFields ...string) (EntityCopyStatus, error) {
	audit := NewContext(e.debug)
	if err := e.Walk(src, dest, audit, ignoreFields...); err != nil {
		return audit.Status(), err
	}
	return audit.Status(), nil
}

// Compare runs a walk that retains every entry. The caller passes a scratch
// dest when the comparison must not touch managed state.
func (e *Engine) Compare(src, dest any, ignoreFields ...string) (*Context, error) {
	audit := NewContext(true)
	if err := e.Walk(src, dest, audit, ignoreFields...); err != nil {
		return audit, err
	}
	return audit, nil
}

// Walk runs one diff walk into a caller-supplied context.
func (e *Engine) Walk(src, dest any, audit *Context, ignoreFields ...string) error {
	if domain.IsNil(src) || domain.IsNil(dest) {
		return ErrNilEntity
	}
	schema, err := e.registry.SchemaFor(dest)
	if err != nil {
		return err
	}

	var ignore map[string]struct{}
	if len(ignoreFields) > 0 {
		ignore = make(map[string]struct{}, len(ignoreFields))
		for _, name := range ignoreFields {
			ignore[name] = struct{}{}
		}
	}

	if err := e.registry.walk(schema, src, dest, audit, "", ignore); err != nil {
		e.logger.Warn("change detection aborted",
			zap.String("entity", schema.name),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Snapshot records every walked property of entity as inserted (old value
// nil) or deleted (new value nil). Collections contribute one entry per
// element.
func (e *Engine) Snapshot(entity any, op domain.EntityOpType) (*Context, error) {
	if domain.IsNil(entity) {
		return nil, ErrNilEntity
	}
	if op != domain.EntityOpInsert && op != domain.EntityOpDelete {
		return nil, fmt.Errorf("snapshot of %s operation is not supported", op)
	}
	schema, err := e.registry.SchemaFor(entity)
	if err != nil {
		return nil, err
	}

	audit := NewContext(true)
	propOp := domain.PropertyOpInsert
	if op == domain.EntityOpDelete {
		propOp = domain.PropertyOpDelete
	}

	for _, p := range schema.props {
		if p.transient || p.role != bookkeepingNone {
			continue
		}
		value := p.get(entity)
		if p.collection != nil {
			items, _, _ := p.collection.items(value)
			for pos, item := range items {
				text := elementText(p.collection.element, item)
				recordSnapshot(audit, elementPath(p.name, p.collection.key, item, pos), p.collection.element.name, text, propOp, p.minor)
			}
			continue
		}
		if _, ok := domain.RenderValue(value); !ok {
			continue
		}
		recordSnapshot(audit, p.name, p.typeLabel(), value, propOp, p.minor)
	}
	return audit, nil
}

func recordSnapshot(audit *Context, name, typeLabel string, value any, op domain.PropertyOpType, minor bool) {
	if op == domain.PropertyOpInsert {
		audit.record(name, typeLabel, nil, value, op, minor)
		return
	}
	audit.record(name, typeLabel, value, nil, op, minor)
}

// RunChangeDetection walks src into dest for updates and assembles the
// history record of the mutation. For inserts src is the new entity and
// dest may be nil; for deletes dest is the removed entity and src may be
// nil. actingUser and at are supplied by the caller's security context.
func (e *Engine) RunChangeDetection(src, dest any, entityID string, op domain.EntityOpType, actingUser string, at time.Time, opts ...AssembleOption) (EntityCopyStatus, *domain.HistoryMaster, error) {
	settings := assembleSettings(opts)

	var (
		audit  *Context
		status EntityCopyStatus
		entity any
	)
	switch op {
	case domain.EntityOpUpdate:
		entity = dest
		audit = NewContext(true)
		if err := e.Walk(src, dest, audit); err != nil {
			return audit.Status(), nil, err
		}
		status = audit.Status()
	case domain.EntityOpInsert:
		entity = src
		status = StatusMajor
	case domain.EntityOpDelete:
		entity = dest
		status = StatusMajor
	default:
		return StatusNone, nil, fmt.Errorf("unknown entity operation %q", op)
	}

	if domain.IsNil(entity) {
		return StatusNone, nil, ErrNilEntity
	}
	schema, err := e.registry.SchemaFor(entity)
	if err != nil {
		return status, nil, err
	}

	if op != domain.EntityOpUpdate {
		audit = NewContext(true)
		if settings.snapshot {
			if audit, err = e.Snapshot(entity, op); err != nil {
				return status, nil, err
			}
		}
	}

	master, err := Assemble(schema.name, entityID, op, actingUser, at, audit, opts...)
	if err != nil {
		return status, nil, err
	}
	return status, &master, nil
}
