package candh

import (
	"fmt"
	"reflect"
	"time"
)

// Day is the temporal precision for date-only properties.
const Day = 24 * time.Hour

type bookkeeping int

const (
	bookkeepingNone bookkeeping = iota
	bookkeepingIdentity
	bookkeepingCreated
	bookkeepingLastUpdate
)

// Property describes one persistable property of an entity type with a
// typed accessor pair. Properties are created with Field or Collection and
// are immutable afterwards.
type Property struct {
	name      string
	owner     reflect.Type
	declared  reflect.Type
	get       func(entity any) any
	set       func(entity any, value any) error
	minor     bool
	transient bool
	role      bookkeeping
	precision time.Duration

	collection *collectionSpec
	handler    Handler
}

// PropertyOption configures a Property.
type PropertyOption func(*Property)

// Minor flags a low-significance property; changes to it yield StatusMinor.
func Minor() PropertyOption {
	return func(p *Property) { p.minor = true }
}

// Transient excludes the property from every walk.
func Transient() PropertyOption {
	return func(p *Property) { p.transient = true }
}

// Identity marks the primary key. It is never copied from src.
func Identity() PropertyOption {
	return func(p *Property) { p.role = bookkeepingIdentity }
}

// Created marks the creation timestamp. It is preserved on dest.
func Created() PropertyOption {
	return func(p *Property) { p.role = bookkeepingCreated }
}

// LastUpdate marks the last-modified timestamp. It is preserved on dest.
func LastUpdate() PropertyOption {
	return func(p *Property) { p.role = bookkeepingLastUpdate }
}

// Precision sets the equality precision of a temporal property.
func Precision(d time.Duration) PropertyOption {
	return func(p *Property) { p.precision = d }
}

// Field declares a property of E with value type V.
func Field[E any, V any](name string, get func(*E) V, set func(*E, V), opts ...PropertyOption) Property {
	p := Property{
		name:     name,
		owner:    reflect.TypeFor[*E](),
		declared: reflect.TypeFor[V](),
	}
	p.get = func(entity any) any {
		return get(entity.(*E))
	}
	p.set = func(entity any, value any) error {
		if value == nil {
			var zero V
			set(entity.(*E), zero)
			return nil
		}
		typed, ok := value.(V)
		if !ok {
			return &TypeMismatchError{
				Property: name,
				Declared: p.declared,
				Src:      reflect.TypeOf(value),
				Dest:     p.declared,
			}
		}
		set(entity.(*E), typed)
		return nil
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Name returns the property name.
func (p Property) Name() string { return p.name }

// DeclaredType returns the declared value type.
func (p Property) DeclaredType() reflect.Type { return p.declared }

// IsMinor reports whether the property is low-significance.
func (p Property) IsMinor() bool { return p.minor }

// IsBookkeeping reports whether the property is identity or a timestamp
// preserved from dest.
func (p Property) IsBookkeeping() bool { return p.role != bookkeepingNone }

// Get reads the property from entity.
func (p Property) Get(entity any) any { return p.get(entity) }

// Set writes value to entity.
func (p Property) Set(entity any, value any) error { return p.set(entity, value) }

func (p Property) typeLabel() string {
	if p.collection != nil {
		return "collection<" + p.collection.element.name + ">"
	}
	return typeName(p.declared)
}

// Schema is the property-descriptor table of one entity type.
type Schema struct {
	name  string
	typ   reflect.Type
	props []Property
}

// NewSchema declares the persistable properties of E in walk order.
func NewSchema[E any](name string, props ...Property) *Schema {
	cloned := make([]Property, len(props))
	copy(cloned, props)
	return &Schema{
		name:  name,
		typ:   reflect.TypeFor[*E](),
		props: cloned,
	}
}

// Name returns the entity type name recorded in history.
func (s *Schema) Name() string { return s.name }

// Type returns the pointer type of the entity.
func (s *Schema) Type() reflect.Type { return s.typ }

// Properties returns the descriptors in declaration order.
func (s *Schema) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// Property looks up a descriptor by name.
func (s *Schema) Property(name string) (Property, bool) {
	for _, p := range s.props {
		if p.name == name {
			return p, true
		}
	}
	return Property{}, false
}

func (s *Schema) identity() (Property, bool) {
	for _, p := range s.props {
		if p.role == bookkeepingIdentity {
			return p, true
		}
	}
	return Property{}, false
}

func (s *Schema) validate() error {
	seen := make(map[string]struct{}, len(s.props))
	for _, p := range s.props {
		if p.name == "" {
			return fmt.Errorf("schema %s: property without name", s.name)
		}
		if _, dup := seen[p.name]; dup {
			return fmt.Errorf("schema %s: duplicate property %s", s.name, p.name)
		}
		seen[p.name] = struct{}{}
		if p.owner != s.typ {
			return fmt.Errorf("schema %s: property %s belongs to %s", s.name, p.name, typeName(p.owner))
		}
	}
	return nil
}
