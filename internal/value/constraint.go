package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/terrane/internal/diag"
)

// Constraint is a declared type such as string, list(number) or
// object({name = string}). The zero Constraint accepts any value.
type Constraint struct {
	kind  Kind
	elem  *Constraint
	attrs map[string]Constraint
}

// Any accepts every value.
var Any = Constraint{}

// Primitive returns a constraint for a primitive kind.
func Primitive(k Kind) Constraint {
	switch k {
	case KindBool, KindNumber, KindString:
		return Constraint{kind: k}
	default:
		panic(fmt.Sprintf("value: Primitive(%s)", k))
	}
}

// ListOf returns a list constraint with the given element constraint.
func ListOf(elem Constraint) Constraint { return Constraint{kind: KindList, elem: &elem} }

// SetOf returns a set constraint.
func SetOf(elem Constraint) Constraint { return Constraint{kind: KindSet, elem: &elem} }

// MapOf returns a map constraint.
func MapOf(elem Constraint) Constraint { return Constraint{kind: KindMap, elem: &elem} }

// ObjectOf returns an object constraint requiring exactly the given
// attributes.
func ObjectOf(attrs map[string]Constraint) Constraint {
	cp := make(map[string]Constraint, len(attrs))
	for k, c := range attrs {
		cp[k] = c
	}
	return Constraint{kind: KindObject, attrs: cp}
}

// IsAny reports whether the constraint accepts every value.
func (c Constraint) IsAny() bool { return c.kind == KindInvalid }

// String renders the constraint in declaration syntax.
func (c Constraint) String() string {
	switch c.kind {
	case KindInvalid:
		return "any"
	case KindList, KindSet, KindMap:
		return fmt.Sprintf("%s(%s)", c.kind, c.elem)
	case KindObject:
		keys := make([]string, 0, len(c.attrs))
		for k := range c.attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = %s", k, c.attrs[k])
		}
		return "object({" + strings.Join(parts, ", ") + "})"
	default:
		return c.kind.String()
	}
}

// Conform coerces v to satisfy the constraint, applying Convert where the
// kinds differ, and returns a ConversionError when no coercion exists.
// Null and Unknown conform to every constraint.
func (c Constraint) Conform(v Value) (Value, error) {
	if c.IsAny() || v.IsNull() || v.IsUnknown() {
		return v, nil
	}
	switch c.kind {
	case KindBool, KindNumber, KindString:
		return Convert(v, c.kind)
	case KindList, KindSet, KindMap:
		return c.conformCollection(v)
	case KindObject:
		return c.conformObject(v)
	default:
		return v, nil
	}
}

func (c Constraint) conformCollection(v Value) (Value, error) {
	// A tuple-ish or object-ish source is acceptable as long as every
	// element conforms to the element constraint.
	switch c.kind {
	case KindList, KindSet:
		if v.kind != KindList && v.kind != KindSet {
			return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String()}
		}
		elems := make([]Value, len(v.elems))
		for i, e := range v.elems {
			ce, err := c.elem.Conform(e)
			if err != nil {
				return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String(), Detail: fmt.Sprintf("element %d: %s", i, err)}
			}
			elems[i] = ce
		}
		if c.kind == KindSet {
			return SetVal(elems), nil
		}
		return ListVal(elems), nil
	default: // KindMap
		if v.kind != KindMap && v.kind != KindObject {
			return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String()}
		}
		pairs := make([]Pair, 0, len(v.keys))
		for _, k := range v.keys {
			ce, err := c.elem.Conform(v.fields[k])
			if err != nil {
				return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String(), Detail: fmt.Sprintf("key %q: %s", k, err)}
			}
			pairs = append(pairs, Pair{Key: k, Val: ce})
		}
		return MapVal(pairs...), nil
	}
}

func (c Constraint) conformObject(v Value) (Value, error) {
	if v.kind != KindMap && v.kind != KindObject {
		return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String()}
	}
	pairs := make([]Pair, 0, len(c.attrs))
	for _, k := range v.keys {
		ac, ok := c.attrs[k]
		if !ok {
			return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String(), Detail: fmt.Sprintf("unexpected attribute %q", k)}
		}
		cv, err := ac.Conform(v.fields[k])
		if err != nil {
			return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String(), Detail: fmt.Sprintf("attribute %q: %s", k, err)}
		}
		pairs = append(pairs, Pair{Key: k, Val: cv})
	}
	for k := range c.attrs {
		if _, ok := v.fields[k]; !ok {
			return Value{}, diag.ConversionError{From: v.kind.String(), To: c.String(), Detail: fmt.Sprintf("missing attribute %q", k)}
		}
	}
	return ObjectVal(pairs...), nil
}
