package candh

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/domain"
)

type collectionSpec struct {
	element  *Schema
	elemType reflect.Type
	items    func(value any) (items []any, nils []int, ok bool)
	build    func(items []any) any
	adopt    func(element any) any
	key      KeyFunc
	orderBy  string
}

// Collection declares a one-to-many property of E whose elements are
// described by element. Elements implementing Identifiable correlate by key.
func Collection[E any, C any](name string, get func(*E) []*C, set func(*E, []*C), element *Schema, opts ...PropertyOption) Property {
	p := Field(name, get, set)
	p.collection = &collectionSpec{
		element:  element,
		elemType: reflect.TypeFor[*C](),
		items: func(value any) ([]any, []int, bool) {
			if value == nil {
				return nil, nil, true
			}
			list, ok := value.([]*C)
			if !ok {
				return nil, nil, false
			}
			out := make([]any, 0, len(list))
			for _, item := range list {
				if item != nil {
					out = append(out, item)
				}
			}
			return out, nil, true
		},
		build: func(items []any) any {
			out := make([]*C, len(items))
			for i, item := range items {
				out[i] = item.(*C)
			}
			return out
		},
		adopt: func(element any) any {
			clone := *(element.(*C))
			return &clone
		},
		key: func(element any) (string, bool) {
			if id, ok := element.(Identifiable); ok {
				return id.IdentityKey()
			}
			return "", false
		},
	}
	p.handler = CollectionHandler{}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// OrderedBy names the integer element property that holds the element's
// position. It is renumbered contiguously after reconciliation.
func OrderedBy(property string) PropertyOption {
	return func(p *Property) {
		if p.collection != nil {
			p.collection.orderBy = property
		}
	}
}

// CollectionHandler reconciles nested one-to-many collections. Unmatched
// dest elements are removed from the owning slice, unmatched src elements
// are appended as copies, and matched pairs are walked with the element
// schema. Retained elements keep their relative order. Nil elements of dest
// are removed and recorded as deletes; nil elements of src are ignored.
type CollectionHandler struct{}

func (CollectionHandler) Name() string { return "collection" }

func (CollectionHandler) EqualOrCopy(pc PropertyContext, audit *Context) error {
	spec := pc.Property.collection
	if spec == nil {
		return mismatch(pc)
	}
	srcItems, _, srcOK := spec.items(pc.SrcValue)
	destItems, destNils, destOK := spec.items(pc.DestValue)
	if !srcOK || !destOK {
		return mismatch(pc)
	}

	plan := Reconcile(srcItems, destItems, spec.key)
	if n := plan.Positional(); n > 0 {
		pc.registry.logger.Debug("collection elements correlated by position",
			zap.String("property", pc.Path),
			zap.Int("count", n),
		)
	}

	var ignore map[string]struct{}
	if spec.orderBy != "" {
		ignore = map[string]struct{}{spec.orderBy: {}}
	}

	matchByDest := make(map[int]Match, len(plan.Matches))
	for _, m := range plan.Matches {
		matchByDest[m.DestIndex] = m
	}

	for _, idx := range destNils {
		audit.record(fmt.Sprintf("%s[#%d]", pc.Path, idx), spec.element.name, nil, nil, domain.PropertyOpDelete, pc.Property.minor)
	}

	result := make([]any, 0, len(plan.Matches)+len(plan.Added))
	for i, destElement := range destItems {
		m, matched := matchByDest[i]
		if !matched {
			var text any
			if audit.Debug() {
				text = elementText(spec.element, destElement)
			}
			audit.record(elementPath(pc.Path, spec.key, destElement, i), spec.element.name, text, nil, domain.PropertyOpDelete, pc.Property.minor)
			continue
		}
		prefix := elementPath(pc.Path, spec.key, destElement, i) + "."
		if err := pc.registry.walk(spec.element, srcItems[m.SrcIndex], destElement, audit, prefix, ignore); err != nil {
			return err
		}
		result = append(result, destElement)
	}

	retained := len(result)
	for _, srcIndex := range plan.Added {
		result = append(result, spec.adopt(srcItems[srcIndex]))
	}

	if spec.orderBy != "" {
		if err := renumber(pc, spec, result, retained, audit); err != nil {
			return err
		}
	}

	for pos := retained; pos < len(result); pos++ {
		var text any
		if audit.Debug() {
			text = elementText(spec.element, result[pos])
		}
		audit.record(elementPath(pc.Path, spec.key, result[pos], pos), spec.element.name, nil, text, domain.PropertyOpInsert, pc.Property.minor)
	}

	if !plan.Structural() && len(destNils) == 0 {
		return nil
	}
	return pc.Property.set(pc.Dest, spec.build(result))
}

// renumber assigns contiguous positions. Changes to retained elements are
// recorded; adopted elements are assigned silently before their insert
// entry is written.
func renumber(pc PropertyContext, spec *collectionSpec, result []any, retained int, audit *Context) error {
	prop, ok := spec.element.Property(spec.orderBy)
	if !ok {
		return fmt.Errorf("collection %s: order property %s not found", pc.Path, spec.orderBy)
	}
	for pos, element := range result {
		want := reflect.ValueOf(pos).Convert(prop.declared).Interface()
		current := prop.get(element)
		if reflect.DeepEqual(current, want) {
			continue
		}
		if err := prop.set(element, want); err != nil {
			return err
		}
		if pos < retained {
			path := elementPath(pc.Path, spec.key, element, pos) + "." + prop.name
			audit.record(path, prop.typeLabel(), current, want, domain.PropertyOpUpdate, prop.minor)
		}
	}
	return nil
}

func elementPath(base string, key KeyFunc, element any, pos int) string {
	if k, ok := key(element); ok {
		return fmt.Sprintf("%s[%s]", base, k)
	}
	return fmt.Sprintf("%s[#%d]", base, pos)
}

// elementText renders an element as "{name=value, ...}" in schema order.
func elementText(s *Schema, element any) string {
	parts := make([]string, 0, len(s.props))
	for _, p := range s.props {
		if p.transient {
			continue
		}
		value := p.get(element)
		if p.collection != nil {
			items, _, _ := p.collection.items(value)
			parts = append(parts, fmt.Sprintf("%s=<%d items>", p.name, len(items)))
			continue
		}
		rendered, ok := domain.RenderValue(value)
		if !ok {
			rendered = "null"
		}
		parts = append(parts, p.name+"="+rendered)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
