package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Keyed is implemented by values that render as their identity key.
type Keyed interface {
	IdentityKey() (string, bool)
}

// RenderValue converts a property value into the canonical string stored in
// the audit trail. The boolean is false when the value is nil.
func RenderValue(value any) (rendered string, ok bool) {
	if IsNil(value) {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			rendered = fmt.Sprintf("<unrenderable %T: %v>", value, r)
			ok = true
		}
	}()

	value = deref(value)

	switch typed := value.(type) {
	case string:
		return typed, true
	case bool:
		if typed {
			return "true", true
		}
		return "false", true
	case decimal.Decimal:
		return renderDecimal(typed), true
	case decimal.NullDecimal:
		if !typed.Valid {
			return "", false
		}
		return renderDecimal(typed.Decimal), true
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano), true
	case Keyed:
		if key, persisted := typed.IdentityKey(); persisted {
			return key, true
		}
		return fmt.Sprintf("<transient %T>", typed), true
	case fmt.Stringer:
		return typed.String(), true
	case error:
		return typed.Error(), true
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value), true
	}
	return string(encoded), true
}

// renderDecimal keeps the scale, so 100.00 renders as "100.00".
func renderDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// RenderPointer is RenderValue shaped for nullable record columns.
func RenderPointer(value any) *string {
	rendered, ok := RenderValue(value)
	if !ok {
		return nil
	}
	return &rendered
}

// IsNil reports whether value is nil or a typed nil pointer, map, slice,
// interface or func.
func IsNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func deref(value any) any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return value
	}
	switch value.(type) {
	case *time.Time, *decimal.Decimal:
		return rv.Elem().Interface()
	case Keyed, fmt.Stringer, error:
		return value
	}
	return rv.Elem().Interface()
}
