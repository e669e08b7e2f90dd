package candh

import (
	"errors"
	"reflect"

	"github.com/rpattn/candh/internal/domain"
)

// PropertyContext describes one property comparison of a walk.
type PropertyContext struct {
	OwnerType reflect.Type
	Src       any
	Dest      any
	// PropertyName is the bare property name; Path qualifies it with the
	// collection element it belongs to, e.g. "lines[42].percentage".
	PropertyName string
	Path         string
	Property     Property
	SrcValue     any
	DestValue    any

	registry *Registry
}

// Handler compares one property and copies src into dest when they differ.
// When it copies, it appends exactly one entry to the audit context, except
// for collections, which report per element.
type Handler interface {
	Name() string
	EqualOrCopy(pc PropertyContext, audit *Context) error
}

// Comparer is implemented by scalar handlers to expose their equality policy.
type Comparer interface {
	ValuesEqual(p Property, src, dest any) (bool, error)
}

// copyIfDifferent implements EqualOrCopy for scalar handlers.
func copyIfDifferent(c Comparer, pc PropertyContext, audit *Context) error {
	equal, err := c.ValuesEqual(pc.Property, pc.SrcValue, pc.DestValue)
	if err != nil {
		var tm *TypeMismatchError
		if errors.As(err, &tm) && tm.Property == "" {
			tm.Property = pc.Path
		}
		return err
	}
	if equal {
		return nil
	}
	if err := pc.Property.set(pc.Dest, pc.SrcValue); err != nil {
		return err
	}
	audit.record(pc.Path, pc.Property.typeLabel(), pc.DestValue, pc.SrcValue, domain.PropertyOpUpdate, pc.Property.minor)
	return nil
}

// DefaultHandler compares values by natural equality. It serves strings,
// booleans, numbers, enums and plain value types.
type DefaultHandler struct{}

func (DefaultHandler) Name() string { return "default" }

func (h DefaultHandler) EqualOrCopy(pc PropertyContext, audit *Context) error {
	return copyIfDifferent(h, pc, audit)
}

func (DefaultHandler) ValuesEqual(p Property, src, dest any) (bool, error) {
	srcNil, destNil := domain.IsNil(src), domain.IsNil(dest)
	if srcNil || destNil {
		return srcNil && destNil, nil
	}
	if reflect.TypeOf(src) != reflect.TypeOf(dest) {
		return false, &TypeMismatchError{
			Declared: p.declared,
			Src:      reflect.TypeOf(src),
			Dest:     reflect.TypeOf(dest),
		}
	}
	return reflect.DeepEqual(src, dest), nil
}
