// Package value implements the typed runtime value model of the
// configuration language: a closed set of kinds, deep structural equality,
// a total ordering, and explicit conversions between kinds.
//
// Values are immutable. Constructors copy their inputs and accessors copy
// their outputs, so a Value can be shared freely between goroutines.
// Numbers are arbitrary-precision decimals (never binary floats), so
// arithmetic over quantities like prices or address prefixes cannot drift.
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Kind enumerates the closed set of value kinds.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindList
	KindSet
	KindMap
	KindObject
	KindUnknown
)

// String returns the language-level name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Value is one runtime value. The zero Value is invalid; use the
// constructors.
type Value struct {
	kind   Kind
	b      bool
	num    *apd.Decimal
	str    string
	elems  []Value          // List, Set (Sets are kept sorted and deduplicated)
	keys   []string         // Map, Object: key insertion order
	fields map[string]Value // Map, Object
}

// Singleton values.
var (
	Null    = Value{kind: KindNull}
	Unknown = Value{kind: KindUnknown}
	True    = Value{kind: KindBool, b: true}
	False   = Value{kind: KindBool, b: false}
)

// Pair is one key/value entry of a Map or Object, in insertion order.
type Pair struct {
	Key string
	Val Value
}

// BoolVal constructs a Bool.
func BoolVal(b bool) Value {
	if b {
		return True
	}
	return False
}

// StringVal constructs a String.
func StringVal(s string) Value { return Value{kind: KindString, str: s} }

// NumberVal constructs a Number from a decimal. The decimal is copied;
// the caller keeps ownership of d.
func NumberVal(d *apd.Decimal) Value {
	cp := &apd.Decimal{}
	cp.Set(d)
	return Value{kind: KindNumber, num: cp}
}

// IntVal constructs a Number from an int64.
func IntVal(i int64) Value {
	d := &apd.Decimal{}
	d.SetInt64(i)
	return Value{kind: KindNumber, num: d}
}

// ListVal constructs a List preserving element order. Duplicates allowed.
func ListVal(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindList, elems: cp}
}

// EmptyList is a List with no elements.
var EmptyList = Value{kind: KindList}

// SetVal constructs a Set: elements are deduplicated by structural equality
// and stored in canonical (total) order, so iteration is deterministic.
func SetVal(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	sort.SliceStable(cp, func(i, j int) bool { return Compare(cp[i], cp[j]) < 0 })
	out := cp[:0]
	for _, e := range cp {
		if len(out) > 0 && Equal(out[len(out)-1], e) {
			continue
		}
		out = append(out, e)
	}
	return Value{kind: KindSet, elems: out}
}

// MapVal constructs a Map from ordered pairs. A repeated key keeps its
// first position but takes the last value.
func MapVal(pairs ...Pair) Value {
	return keyed(KindMap, pairs)
}

// ObjectVal constructs an Object from ordered pairs.
func ObjectVal(pairs ...Pair) Value {
	return keyed(KindObject, pairs)
}

// MapValSorted constructs a Map from a Go map, ordering keys
// lexicographically for determinism.
func MapValSorted(m map[string]Value) Value {
	return keyedSorted(KindMap, m)
}

// ObjectValSorted constructs an Object from a Go map with sorted keys.
func ObjectValSorted(m map[string]Value) Value {
	return keyedSorted(KindObject, m)
}

func keyed(kind Kind, pairs []Pair) Value {
	keys := make([]string, 0, len(pairs))
	fields := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		if _, seen := fields[p.Key]; !seen {
			keys = append(keys, p.Key)
		}
		fields[p.Key] = p.Val
	}
	return Value{kind: kind, keys: keys, fields: fields}
}

func keyedSorted(kind Kind, m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return Value{kind: kind, keys: keys, fields: fields}
}

// Kind returns the value's kind. The zero Value reports KindInvalid.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsUnknown reports whether the value is the Unknown placeholder.
func (v Value) IsUnknown() bool { return v.kind == KindUnknown }

// IsKnown is the negation of IsUnknown.
func (v Value) IsKnown() bool { return v.kind != KindUnknown }

// ContainsUnknown reports whether the value is Unknown or any element or
// field nested inside it is.
func (v Value) ContainsUnknown() bool {
	switch v.kind {
	case KindUnknown:
		return true
	case KindList, KindSet:
		for _, e := range v.elems {
			if e.ContainsUnknown() {
				return true
			}
		}
	case KindMap, KindObject:
		for _, f := range v.fields {
			if f.ContainsUnknown() {
				return true
			}
		}
	}
	return false
}

// AsBool returns the bool payload. Panics unless KindBool.
func (v Value) AsBool() bool {
	v.mustKind(KindBool)
	return v.b
}

// AsString returns the string payload. Panics unless KindString.
func (v Value) AsString() string {
	v.mustKind(KindString)
	return v.str
}

// AsDecimal returns a copy of the number payload. Panics unless KindNumber.
func (v Value) AsDecimal() *apd.Decimal {
	v.mustKind(KindNumber)
	cp := &apd.Decimal{}
	cp.Set(v.num)
	return cp
}

// AsInt64 returns the number as an exact int64, or an error when the value
// has a fractional part or overflows. Panics unless KindNumber.
func (v Value) AsInt64() (int64, error) {
	v.mustKind(KindNumber)
	return v.num.Int64()
}

// Elements returns a copy of the element slice of a List or Set.
func (v Value) Elements() []Value {
	if v.kind != KindList && v.kind != KindSet {
		panic(fmt.Sprintf("value: Elements on %s", v.kind))
	}
	cp := make([]Value, len(v.elems))
	copy(cp, v.elems)
	return cp
}

// Len returns the element count of a List, Set, Map or Object, or the
// length in bytes of a String.
func (v Value) Len() int {
	switch v.kind {
	case KindList, KindSet:
		return len(v.elems)
	case KindMap, KindObject:
		return len(v.keys)
	case KindString:
		return len(v.str)
	default:
		panic(fmt.Sprintf("value: Len on %s", v.kind))
	}
}

// Keys returns the keys of a Map or Object in insertion order.
func (v Value) Keys() []string {
	v.mustKeyed()
	cp := make([]string, len(v.keys))
	copy(cp, v.keys)
	return cp
}

// Field returns the value stored under key in a Map or Object.
func (v Value) Field(key string) (Value, bool) {
	v.mustKeyed()
	f, ok := v.fields[key]
	return f, ok
}

// Pairs returns the entries of a Map or Object in insertion order.
func (v Value) Pairs() []Pair {
	v.mustKeyed()
	out := make([]Pair, 0, len(v.keys))
	for _, k := range v.keys {
		out = append(out, Pair{Key: k, Val: v.fields[k]})
	}
	return out
}

func (v Value) mustKind(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: %s accessor on %s", k, v.kind))
	}
}

func (v Value) mustKeyed() {
	if v.kind != KindMap && v.kind != KindObject {
		panic(fmt.Sprintf("value: keyed accessor on %s", v.kind))
	}
}

// String renders the value in configuration-language syntax, for error
// messages and logs. Not a serialization format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindUnknown:
		return "(known after apply)"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return NumberText(v)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindList, KindSet:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		body := strings.Join(parts, ", ")
		if v.kind == KindSet {
			return "toset([" + body + "])"
		}
		return "[" + body + "]"
	case KindMap, KindObject:
		parts := make([]string, 0, len(v.keys))
		for _, k := range v.keys {
			parts = append(parts, fmt.Sprintf("%s = %s", k, v.fields[k].String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "(invalid value)"
	}
}
