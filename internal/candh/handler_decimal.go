package candh

import (
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/rpattn/candh/internal/domain"
)

// DecimalHandler compares decimals ignoring scale, so 1 and 1.00 are equal.
// The copy assigns the src value unchanged and so keeps its scale.
type DecimalHandler struct{}

func (DecimalHandler) Name() string { return "decimal" }

func (h DecimalHandler) EqualOrCopy(pc PropertyContext, audit *Context) error {
	return copyIfDifferent(h, pc, audit)
}

func (DecimalHandler) ValuesEqual(p Property, src, dest any) (bool, error) {
	srcValue, srcOK, srcErr := asDecimal(src)
	destValue, destOK, destErr := asDecimal(dest)
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
	return srcValue.Equal(destValue), nil
}

// asDecimal unwraps the supported decimal shapes. ok is false for null.
func asDecimal(value any) (d decimal.Decimal, ok bool, wrongType bool) {
	if domain.IsNil(value) {
		return decimal.Decimal{}, false, false
	}
	switch typed := value.(type) {
	case decimal.Decimal:
		return typed, true, false
	case *decimal.Decimal:
		return *typed, true, false
	case decimal.NullDecimal:
		return typed.Decimal, typed.Valid, false
	}
	return decimal.Decimal{}, false, true
}
