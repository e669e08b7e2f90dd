package candh

import (
	"reflect"
	"time"

	"github.com/rpattn/candh/internal/domain"
)

// TimeHandler compares timestamps at the precision the property declares.
// Comparison is by instant, so values loaded in a different location are
// not reported as changed. Day precision additionally accepts values whose
// calendar dates match in their own locations.
type TimeHandler struct{}

func (TimeHandler) Name() string { return "time" }

func (h TimeHandler) EqualOrCopy(pc PropertyContext, audit *Context) error {
	return copyIfDifferent(h, pc, audit)
}

func (TimeHandler) ValuesEqual(p Property, src, dest any) (bool, error) {
	srcValue, srcOK, srcErr := asTime(src)
	destValue, destOK, destErr := asTime(dest)
	if srcErr || destErr {
		return false, &TypeMismatchError{
			Declared: p.declared,
			Src:      reflect.TypeOf(src),
			Dest:     reflect.TypeOf(dest),
		}
	}
	if !srcOK || !destOK {
		return srcOK == destOK, nil
	}
	return timesEqual(srcValue, destValue, p.precision), nil
}

func timesEqual(a, b time.Time, precision time.Duration) bool {
	switch {
	case precision >= Day:
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		if ay == by && am == bm && ad == bd {
			return true
		}
		uy, um, ud := a.UTC().Date()
		vy, vm, vd := b.UTC().Date()
		return uy == vy && um == vm && ud == vd
	case precision > 0:
		return a.Truncate(precision).Equal(b.Truncate(precision))
	}
	return a.Equal(b)
}

func asTime(value any) (t time.Time, ok bool, wrongType bool) {
	if domain.IsNil(value) {
		return time.Time{}, false, false
	}
	switch typed := value.(type) {
	case time.Time:
		return typed, true, false
	case *time.Time:
		return *typed, true, false
	}
	return time.Time{}, false, true
}
