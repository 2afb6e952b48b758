package eval

import (
	"context"

	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

// forItem is one iteration of a comprehension: the key binding (position
// for lists, element for sets, key for maps) and the element value.
type forItem struct {
	key value.Value
	val value.Value
}

func forItems(coll value.Value) ([]forItem, error) {
	switch coll.Kind() {
	case value.KindList:
		elems := coll.Elements()
		items := make([]forItem, len(elems))
		for i, e := range elems {
			items[i] = forItem{key: value.IntVal(int64(i)), val: e}
		}
		return items, nil
	case value.KindSet:
		// Canonical element order; the key binding is the element itself.
		elems := coll.Elements()
		items := make([]forItem, len(elems))
		for i, e := range elems {
			items[i] = forItem{key: e, val: e}
		}
		return items, nil
	case value.KindMap, value.KindObject:
		pairs := coll.Pairs()
		items := make([]forItem, len(pairs))
		for i, p := range pairs {
			items[i] = forItem{key: value.StringVal(p.Key), val: p.Val}
		}
		return items, nil
	default:
		return nil, diag.TypeError{
			Subject: "for expression",
			Want:    "list, set, map or object",
			Got:     coll.Kind().String(),
		}
	}
}

func evalFor(ctx context.Context, x *ast.ForExpr, sc *Scope) (value.Value, error) {
	coll, err := Evaluate(ctx, x.Coll, sc)
	if err != nil {
		return value.Value{}, err
	}
	if coll.IsUnknown() {
		return value.Unknown, nil
	}
	items, err := forItems(coll)
	if err != nil {
		return value.Value{}, err
	}

	mapForm := x.KeyExpr != nil
	var listOut []value.Value
	var pairs []value.Pair
	groups := make(map[string][]value.Value)
	seen := make(map[string]bool)
	unknownKeys := false

	for _, item := range items {
		bindings := map[string]value.Value{x.ValVar: item.val}
		if x.KeyVar != "" {
			bindings[x.KeyVar] = item.key
		}
		child := sc.Child(bindings)

		if x.Cond != nil {
			cond, err := Evaluate(ctx, x.Cond, child)
			if err != nil {
				return value.Value{}, err
			}
			if cond.IsUnknown() {
				// Which elements survive cannot be known yet, so neither
				// can the shape of the result.
				return value.Unknown, nil
			}
			if cond.Kind() != value.KindBool {
				return value.Value{}, diag.TypeError{Subject: "for expression filter", Want: "bool", Got: cond.Kind().String()}
			}
			if !cond.AsBool() {
				continue
			}
		}

		v, err := Evaluate(ctx, x.ValExpr, child)
		if err != nil {
			return value.Value{}, err
		}

		if !mapForm {
			listOut = append(listOut, v)
			continue
		}

		kv, err := Evaluate(ctx, x.KeyExpr, child)
		if err != nil {
			return value.Value{}, err
		}
		if kv.IsUnknown() {
			unknownKeys = true
			continue
		}
		if kv.Kind() != value.KindString {
			return value.Value{}, diag.TypeError{Subject: "for expression key", Want: "string", Got: kv.Kind().String()}
		}
		key := kv.AsString()
		if x.Group {
			if !seen[key] {
				pairs = append(pairs, value.Pair{Key: key})
			}
			seen[key] = true
			groups[key] = append(groups[key], v)
			continue
		}
		if seen[key] {
			return value.Value{}, diag.DuplicateKeyError{Key: key}
		}
		seen[key] = true
		pairs = append(pairs, value.Pair{Key: key, Val: v})
	}

	if !mapForm {
		return value.ListVal(listOut), nil
	}
	if unknownKeys {
		return value.Unknown, nil
	}
	if x.Group {
		for i, p := range pairs {
			pairs[i].Val = value.ListVal(groups[p.Key])
		}
	}
	return value.MapVal(pairs...), nil
}

// evalSplat desugars source[*].path: Null becomes an empty list, a
// non-collection value is treated as a single-element list, and each
// element flows through the Each tree via the anonymous binding.
func evalSplat(ctx context.Context, x *ast.Splat, sc *Scope) (value.Value, error) {
	source, err := Evaluate(ctx, x.Source, sc)
	if err != nil {
		return value.Value{}, err
	}

	var elems []value.Value
	switch source.Kind() {
	case value.KindNull:
		return value.EmptyList, nil
	case value.KindUnknown:
		return value.Unknown, nil
	case value.KindList, value.KindSet:
		elems = source.Elements()
	default:
		elems = []value.Value{source}
	}

	out := make([]value.Value, 0, len(elems))
	for _, e := range elems {
		v, err := Evaluate(ctx, x.Each, sc.childAnon(e))
		if err != nil {
			return value.Value{}, err
		}
		out = append(out, v)
	}
	return value.ListVal(out), nil
}
