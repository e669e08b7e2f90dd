package candh

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type interfaceBinding struct {
	iface   reflect.Type
	handler Handler
}

// Registry maps declared property types to handlers and holds the bound
// schemas of every registered entity type. It is immutable once built and
// safe for concurrent use without locking.
type Registry struct {
	exact    map[reflect.Type]Handler
	ifaces   []interfaceBinding
	fallback Handler
	schemas  map[reflect.Type]*Schema
	logger   *zap.Logger
}

// Dispatch resolves the handler for a declared type: exact registration,
// then the pointer's element type, then the first registered interface the
// type implements, then the default handler.
func (r *Registry) Dispatch(declared reflect.Type) Handler {
	if declared == nil {
		return r.fallback
	}
	if h, ok := r.exact[declared]; ok {
		return h
	}
	if declared.Kind() == reflect.Pointer {
		if h, ok := r.exact[declared.Elem()]; ok {
			return h
		}
	}
	for _, binding := range r.ifaces {
		if declared.Implements(binding.iface) {
			return binding.handler
		}
		if declared.Kind() != reflect.Pointer && declared.Kind() != reflect.Interface &&
			reflect.PointerTo(declared).Implements(binding.iface) {
			return binding.handler
		}
	}
	return r.fallback
}

// Schema returns the bound schema for an entity pointer type.
func (r *Registry) Schema(entityType reflect.Type) (*Schema, bool) {
	s, ok := r.schemas[entityType]
	return s, ok
}

// SchemaFor returns the bound schema of the entity's dynamic type.
func (r *Registry) SchemaFor(entity any) (*Schema, error) {
	t := reflect.TypeOf(entity)
	s, ok := r.schemas[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredEntity, typeName(t))
	}
	return s, nil
}

// SchemaNamed finds a bound schema by its entity type name.
func (r *Registry) SchemaNamed(name string) (*Schema, bool) {
	for _, s := range r.schemas {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// RegistryBuilder collects handler registrations and schemas at startup.
type RegistryBuilder struct {
	exact    map[reflect.Type]Handler
	ifaces   []interfaceBinding
	fallback Handler
	schemas  []*Schema
	logger   *zap.Logger
}

// NewRegistryBuilder starts from the standard handler set: decimals, times,
// Identifiable references and the default handler.
func NewRegistryBuilder() *RegistryBuilder {
	b := &RegistryBuilder{
		exact:    make(map[reflect.Type]Handler),
		fallback: DefaultHandler{},
		logger:   zap.NewNop(),
	}
	b.Handle(reflect.TypeFor[decimal.Decimal](), DecimalHandler{})
	b.Handle(reflect.TypeFor[decimal.NullDecimal](), DecimalHandler{})
	b.Handle(reflect.TypeFor[time.Time](), TimeHandler{})
	b.HandleInterface(reflect.TypeFor[Identifiable](), ReferenceHandler{})
	return b
}

// Handle registers a handler for an exact declared type.
func (b *RegistryBuilder) Handle(t reflect.Type, h Handler) *RegistryBuilder {
	b.exact[t] = h
	return b
}

// HandleInterface registers a handler for every declared type implementing
// iface. Interfaces are tried in registration order.
func (b *RegistryBuilder) HandleInterface(iface reflect.Type, h Handler) *RegistryBuilder {
	b.ifaces = append(b.ifaces, interfaceBinding{iface: iface, handler: h})
	return b
}

// Fallback replaces the default handler.
func (b *RegistryBuilder) Fallback(h Handler) *RegistryBuilder {
	b.fallback = h
	return b
}

// Schema registers an entity schema. Element schemas of its collections are
// registered implicitly.
func (b *RegistryBuilder) Schema(s *Schema) *RegistryBuilder {
	b.schemas = append(b.schemas, s)
	return b
}

// Logger sets the logger used during walks.
func (b *RegistryBuilder) Logger(logger *zap.Logger) *RegistryBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Build validates the registrations and resolves the handler of every
// schema property. The builder must not be reused afterwards.
func (b *RegistryBuilder) Build() (*Registry, error) {
	exact := make(map[reflect.Type]Handler, len(b.exact))
	for t, h := range b.exact {
		if h == nil {
			return nil, fmt.Errorf("nil handler registered for %s", typeName(t))
		}
		exact[t] = h
	}
	for _, binding := range b.ifaces {
		if binding.iface == nil || binding.iface.Kind() != reflect.Interface {
			return nil, fmt.Errorf("interface binding for %s is not an interface", typeName(binding.iface))
		}
	}

	reg := &Registry{
		exact:    exact,
		ifaces:   append([]interfaceBinding(nil), b.ifaces...),
		fallback: b.fallback,
		schemas:  make(map[reflect.Type]*Schema),
		logger:   b.logger,
	}

	explicit := make(map[reflect.Type]struct{}, len(b.schemas))
	for _, s := range b.schemas {
		if _, exists := explicit[s.typ]; exists {
			return nil, fmt.Errorf("schema for %s registered twice", typeName(s.typ))
		}
		explicit[s.typ] = struct{}{}
		if _, err := reg.bind(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// bind copies s with resolved handlers. Element schemas are bound first.
func (r *Registry) bind(s *Schema) (*Schema, error) {
	if bound, ok := r.schemas[s.typ]; ok {
		return bound, nil
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	bound := &Schema{name: s.name, typ: s.typ, props: make([]Property, len(s.props))}
	r.schemas[s.typ] = bound

	for i, p := range s.props {
		if p.collection != nil {
			spec := *p.collection
			if spec.element == nil {
				return nil, fmt.Errorf("schema %s: collection %s has no element schema", s.name, p.name)
			}
			if spec.element.typ != spec.elemType {
				return nil, fmt.Errorf("schema %s: collection %s element schema describes %s, want %s",
					s.name, p.name, typeName(spec.element.typ), typeName(spec.elemType))
			}
			element, err := r.bind(spec.element)
			if err != nil {
				return nil, err
			}
			spec.element = element
			if spec.orderBy != "" {
				order, ok := element.Property(spec.orderBy)
				if !ok {
					return nil, fmt.Errorf("schema %s: collection %s orders by unknown property %s", s.name, p.name, spec.orderBy)
				}
				if !isInteger(order.declared) {
					return nil, fmt.Errorf("schema %s: collection %s order property %s is %s, want an integer",
						s.name, p.name, spec.orderBy, typeName(order.declared))
				}
			}
			p.collection = &spec
		} else if p.handler == nil {
			p.handler = r.Dispatch(p.declared)
		}
		bound.props[i] = p
	}
	return bound, nil
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
