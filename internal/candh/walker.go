package candh

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// walk compares every persistable property of src and dest, described by
// s, and lets the resolved handler copy differences into dest. Bookkeeping
// properties are skipped and restored from a snapshot of dest afterwards.
// Properties copied before a failure stay copied.
func (r *Registry) walk(s *Schema, src, dest any, audit *Context, prefix string, ignore map[string]struct{}) error {
	if reflect.TypeOf(src) != s.typ || reflect.TypeOf(dest) != s.typ {
		return &UnsupportedPropertyTypeError{
			Property: prefix,
			Owner:    s.typ,
			Src:      reflect.TypeOf(src),
			Dest:     reflect.TypeOf(dest),
			Err:      ErrTypeMismatch,
		}
	}

	saved := r.snapshotBookkeeping(s, dest)
	defer r.restoreBookkeeping(s, dest, saved)

	for _, p := range s.props {
		if p.transient || p.role != bookkeepingNone {
			continue
		}
		if _, skip := ignore[p.name]; skip {
			continue
		}

		pc := PropertyContext{
			OwnerType:    s.typ,
			Src:          src,
			Dest:         dest,
			PropertyName: p.name,
			Path:         prefix + p.name,
			Property:     p,
			SrcValue:     p.get(src),
			DestValue:    p.get(dest),
			registry:     r,
		}
		if err := p.handler.EqualOrCopy(pc, audit); err != nil {
			return r.unsupported(pc, err)
		}
	}
	return nil
}

func (r *Registry) unsupported(pc PropertyContext, err error) error {
	var already *UnsupportedPropertyTypeError
	if errors.As(err, &already) {
		return err
	}
	if errors.Is(err, ErrTypeMismatch) {
		return &UnsupportedPropertyTypeError{
			Property: pc.Path,
			Owner:    pc.OwnerType,
			Src:      reflect.TypeOf(pc.SrcValue),
			Dest:     reflect.TypeOf(pc.DestValue),
			Err:      err,
		}
	}
	return fmt.Errorf("property %s: %w", pc.Path, err)
}

type savedValue struct {
	prop  Property
	value any
}

func (r *Registry) snapshotBookkeeping(s *Schema, dest any) []savedValue {
	var saved []savedValue
	for _, p := range s.props {
		if p.role == bookkeepingNone {
			continue
		}
		saved = append(saved, savedValue{prop: p, value: p.get(dest)})
	}
	return saved
}

func (r *Registry) restoreBookkeeping(s *Schema, dest any, saved []savedValue) {
	for _, sv := range saved {
		if reflect.DeepEqual(sv.prop.get(dest), sv.value) {
			continue
		}
		if err := sv.prop.set(dest, sv.value); err != nil {
			r.logger.Warn("failed to restore bookkeeping property",
				zap.String("entity", s.name),
				zap.String("property", sv.prop.name),
				zap.Error(err),
			)
		}
	}
}
