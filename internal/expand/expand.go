// Package expand turns a resource's evaluated multiplicity source into
// concrete instances. It is deliberately tiny and pure: the graph decides
// when to evaluate the source and what to do with a deferred expansion,
// this package only fixes the instance identity rules.
package expand

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/schema"
	"github.com/specialistvlad/terrane/internal/value"
)

// Kind classifies an expansion outcome.
type Kind int

const (
	// Singleton is a resource with no multiplicity argument: exactly one
	// instance, addressed without a key.
	Singleton Kind = iota
	// Count is integer multiplicity: instances keyed 0..n-1.
	Count
	// Keyed is for_each multiplicity: instances keyed by string.
	Keyed
	// Deferred means the multiplicity source is Unknown. How many
	// instances exist cannot be decided in this run; the declaration
	// stays collapsed and its value is Unknown to dependents.
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Singleton:
		return "singleton"
	case Count:
		return "count"
	case Keyed:
		return "for_each"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Expansion is the outcome of evaluating a multiplicity source.
type Expansion struct {
	kind Kind
	n    int64
	keys []string
	vals map[string]value.Value
}

// Kind returns the expansion's classification.
func (e Expansion) Kind() Kind { return e.kind }

// IsDeferred reports whether the expansion must wait for a later run.
func (e Expansion) IsDeferred() bool { return e.kind == Deferred }

// CountN returns the instance count of a Count expansion.
func (e Expansion) CountN() int64 { return e.n }

// Keys returns the sorted instance keys of a Keyed expansion.
func (e Expansion) Keys() []string {
	cp := make([]string, len(e.keys))
	copy(cp, e.keys)
	return cp
}

// Expand classifies the evaluated multiplicity source v for mult. A nil
// mult is the singleton case and ignores v.
func Expand(mult *schema.Multiplicity, v value.Value) (Expansion, error) {
	if mult == nil {
		return Expansion{kind: Singleton}, nil
	}
	if v.IsUnknown() {
		return Expansion{kind: Deferred}, nil
	}

	switch mult.Mode {
	case schema.MultCount:
		return expandCount(v)
	case schema.MultForEach:
		return expandForEach(v)
	default:
		return Expansion{}, diag.TypeError{Subject: "multiplicity", Detail: fmt.Sprintf("unsupported mode %s", mult.Mode)}
	}
}

func expandCount(v value.Value) (Expansion, error) {
	if v.Kind() != value.KindNumber {
		return Expansion{}, diag.TypeError{Subject: "count", Want: "number", Got: v.Kind().String()}
	}
	n, err := v.AsInt64()
	if err != nil {
		return Expansion{}, diag.TypeError{Subject: "count", Want: "integral number", Got: "number", Detail: err.Error()}
	}
	if n < 0 {
		return Expansion{}, diag.TypeError{Subject: "count", Want: "non-negative number", Got: fmt.Sprintf("%d", n)}
	}
	return Expansion{kind: Count, n: n}, nil
}

func expandForEach(v value.Value) (Expansion, error) {
	switch v.Kind() {
	case value.KindSet:
		keys := make([]string, 0, v.Len())
		vals := make(map[string]value.Value, v.Len())
		for _, e := range v.Elements() {
			if e.IsUnknown() {
				return Expansion{kind: Deferred}, nil
			}
			if e.Kind() != value.KindString {
				return Expansion{}, diag.TypeError{
					Subject: "for_each",
					Want:    "set of strings",
					Got:     fmt.Sprintf("set containing %s", e.Kind()),
				}
			}
			keys = append(keys, e.AsString())
			vals[e.AsString()] = e
		}
		// Set order is already canonical, but identity must never lean
		// on that: sort explicitly.
		sort.Strings(keys)
		return Expansion{kind: Keyed, keys: keys, vals: vals}, nil

	case value.KindMap, value.KindObject:
		keys := v.Keys()
		sort.Strings(keys)
		vals := make(map[string]value.Value, len(keys))
		for _, k := range keys {
			vals[k], _ = v.Field(k)
		}
		return Expansion{kind: Keyed, keys: keys, vals: vals}, nil

	case value.KindList:
		// Lists carry duplicate elements and positional identity, either
		// of which would make instance addresses unstable under
		// reordering. The conversion must be a visible, deliberate step.
		return Expansion{}, diag.TypeError{
			Subject: "for_each",
			Want:    "map or set of strings",
			Got:     "list",
			Detail:  "wrap the expression in toset() to use its elements as keys",
		}

	case value.KindNull:
		return Expansion{}, diag.TypeError{Subject: "for_each", Want: "map or set of strings", Got: "null"}

	default:
		return Expansion{}, diag.TypeError{Subject: "for_each", Want: "map or set of strings", Got: v.Kind().String()}
	}
}

// InstanceInfo is one expanded instance: its address and the bindings its
// evaluation scope receives (count.index, or each.key and each.value).
type InstanceInfo struct {
	Addr     addr.Instance
	Bindings map[string]value.Value
}

// Instances lists the expansion's instances for the declaration at decl,
// in deterministic order: 0..n-1 for count, sorted keys for for_each.
// A Deferred expansion has no instances.
func (e Expansion) Instances(decl addr.Path) []InstanceInfo {
	switch e.kind {
	case Singleton:
		return []InstanceInfo{{Addr: addr.Instance{Decl: decl}}}
	case Count:
		out := make([]InstanceInfo, 0, e.n)
		for i := int64(0); i < e.n; i++ {
			out = append(out, InstanceInfo{
				Addr: addr.Instance{Decl: decl, Key: addr.IntKey(i)},
				Bindings: map[string]value.Value{
					"count": value.ObjectVal(value.Pair{Key: "index", Val: value.IntVal(i)}),
				},
			})
		}
		return out
	case Keyed:
		out := make([]InstanceInfo, 0, len(e.keys))
		for _, k := range e.keys {
			out = append(out, InstanceInfo{
				Addr: addr.Instance{Decl: decl, Key: addr.StringKey(k)},
				Bindings: map[string]value.Value{
					"each": value.ObjectVal(
						value.Pair{Key: "key", Val: value.StringVal(k)},
						value.Pair{Key: "value", Val: e.vals[k]},
					),
				},
			})
		}
		return out
	default:
		return nil
	}
}
