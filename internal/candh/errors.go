package candh

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrTypeMismatch is raised by a handler when src and dest expose
	// different runtime types for the same declared property.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupportedPropertyType is surfaced by the walker when a property
	// could not be handled. It is a configuration error and is never retried.
	ErrUnsupportedPropertyType = errors.New("unsupported property type")

	// ErrUnregisteredEntity is returned when no schema exists for a type.
	ErrUnregisteredEntity = errors.New("entity type not registered")

	// ErrEntriesNotRetained is returned when history is assembled from a
	// context that was created without debug retention.
	ErrEntriesNotRetained = errors.New("context did not retain entries")
)

// TypeMismatchError carries the types involved in a handler mismatch.
type TypeMismatchError struct {
	Property string
	Declared reflect.Type
	Src      reflect.Type
	Dest     reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on %s: declared %s, src %s, dest %s",
		e.Property, typeName(e.Declared), typeName(e.Src), typeName(e.Dest))
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// UnsupportedPropertyTypeError identifies the property that aborted a walk.
type UnsupportedPropertyTypeError struct {
	Property string
	Owner    reflect.Type
	Src      reflect.Type
	Dest     reflect.Type
	Err      error
}

func (e *UnsupportedPropertyTypeError) Error() string {
	return fmt.Sprintf("unsupported property type for %s.%s (src %s, dest %s): %v",
		typeName(e.Owner), e.Property, typeName(e.Src), typeName(e.Dest), e.Err)
}

func (e *UnsupportedPropertyTypeError) Unwrap() []error {
	return []error{ErrUnsupportedPropertyType, e.Err}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func mismatch(pc PropertyContext) error {
	return &TypeMismatchError{
		Property: pc.Path,
		Declared: pc.Property.declared,
		Src:      reflect.TypeOf(pc.SrcValue),
		Dest:     reflect.TypeOf(pc.DestValue),
	}
}
