package candh

import (
	"reflect"

	"github.com/rpattn/candh/internal/domain"
)

// Identifiable is implemented by persisted entities. persisted is false for
// instances that have not been assigned a primary key yet.
type Identifiable interface {
	IdentityKey() (key string, persisted bool)
}

// ReferenceHandler compares single-valued associations by identity key and
// replaces the whole reference when the keys differ. It never descends into
// the referenced entity.
type ReferenceHandler struct{}

func (ReferenceHandler) Name() string { return "reference" }

func (h ReferenceHandler) EqualOrCopy(pc PropertyContext, audit *Context) error {
	return copyIfDifferent(h, pc, audit)
}

func (ReferenceHandler) ValuesEqual(p Property, src, dest any) (bool, error) {
	srcNil, destNil := domain.IsNil(src), domain.IsNil(dest)
	if srcNil || destNil {
		return srcNil && destNil, nil
	}
	srcRef, srcOK := src.(Identifiable)
	destRef, destOK := dest.(Identifiable)
	if !srcOK || !destOK || reflect.TypeOf(src) != reflect.TypeOf(dest) {
		return false, &TypeMismatchError{
			Declared: p.declared,
			Src:      reflect.TypeOf(src),
			Dest:     reflect.TypeOf(dest),
		}
	}

	srcKey, srcPersisted := srcRef.IdentityKey()
	destKey, destPersisted := destRef.IdentityKey()
	if srcPersisted && destPersisted {
		return srcKey == destKey, nil
	}
	// Unsaved instances are only equal to themselves.
	if reflect.TypeOf(src).Kind() == reflect.Pointer {
		return src == dest, nil
	}
	return reflect.DeepEqual(src, dest), nil
}
