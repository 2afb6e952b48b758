package funcs

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

var (
	anyP     = Param{Name: "value"}
	listP    = Param{Name: "list", Kinds: []value.Kind{value.KindList}}
	setP     = Param{Name: "set", Kinds: []value.Kind{value.KindSet}}
	stringP  = Param{Name: "string", Kinds: []value.Kind{value.KindString}}
	numberP  = Param{Name: "number", Kinds: []value.Kind{value.KindNumber}}
	collP    = Param{Name: "collection", Kinds: []value.Kind{value.KindList, value.KindSet}}
	mappingP = Param{Name: "map", Kinds: []value.Kind{value.KindMap, value.KindObject}}
)

func registerCollection(r *Registry) {
	r.register(&Spec{
		Name:        "merge",
		Variadic:    &mappingP,
		MinVariadic: 1,
		Impl:        mergeImpl,
	})
	r.register(&Spec{
		Name:   "flatten",
		Params: []Param{collP},
		Impl:   flattenImpl,
	})
	r.register(&Spec{
		Name:   "distinct",
		Params: []Param{listP},
		Impl:   distinctImpl,
	})
	r.register(&Spec{
		Name:        "concat",
		Variadic:    &listP,
		MinVariadic: 1,
		Impl:        concatImpl,
	})
	r.register(&Spec{
		Name:     "lookup",
		Params:   []Param{mappingP, {Name: "key", Kinds: []value.Kind{value.KindString}}},
		Optional: []Param{{Name: "default"}},
		Impl:     lookupImpl,
	})
	r.register(&Spec{
		Name:   "zipmap",
		Params: []Param{{Name: "keys", Kinds: []value.Kind{value.KindList}}, {Name: "values", Kinds: []value.Kind{value.KindList}}},
		Impl:   zipmapImpl,
	})
	r.register(&Spec{
		Name:   "keys",
		Params: []Param{mappingP},
		Impl: func(args []value.Value) (value.Value, error) {
			ks := args[0].Keys()
			sort.Strings(ks)
			elems := make([]value.Value, len(ks))
			for i, k := range ks {
				elems[i] = value.StringVal(k)
			}
			return value.ListVal(elems), nil
		},
	})
	r.register(&Spec{
		Name:   "values",
		Params: []Param{mappingP},
		Impl: func(args []value.Value) (value.Value, error) {
			ks := args[0].Keys()
			sort.Strings(ks)
			elems := make([]value.Value, len(ks))
			for i, k := range ks {
				elems[i], _ = args[0].Field(k)
			}
			return value.ListVal(elems), nil
		},
	})
	r.register(&Spec{
		Name:   "length",
		Params: []Param{{Name: "value", Kinds: []value.Kind{value.KindList, value.KindSet, value.KindMap, value.KindObject, value.KindString}}},
		Impl:   lengthImpl,
	})
	r.register(&Spec{
		Name:   "element",
		Params: []Param{listP, {Name: "index", Kinds: []value.Kind{value.KindNumber}}},
		Impl:   elementImpl,
	})
	r.register(&Spec{
		Name:   "contains",
		Params: []Param{collP, anyP},
		Impl: func(args []value.Value) (value.Value, error) {
			for _, e := range args[0].Elements() {
				if value.Equal(e, args[1]) {
					return value.True, nil
				}
			}
			return value.False, nil
		},
	})
	r.register(&Spec{
		Name:        "coalesce",
		Variadic:    &anyP,
		MinVariadic: 1,
		Impl:        coalesceImpl,
	})
	r.register(&Spec{
		Name:   "compact",
		Params: []Param{listP},
		Impl:   compactImpl,
	})
	r.register(&Spec{
		Name:   "range",
		Params: []Param{numberP},
		// range(max), range(start, max), range(start, max, step)
		Optional: []Param{{Name: "max", Kinds: []value.Kind{value.KindNumber}}, {Name: "step", Kinds: []value.Kind{value.KindNumber}}},
		Impl:     rangeImpl,
	})
	r.register(&Spec{
		Name:   "slice",
		Params: []Param{listP, {Name: "start", Kinds: []value.Kind{value.KindNumber}}, {Name: "end", Kinds: []value.Kind{value.KindNumber}}},
		Impl:   sliceImpl,
	})
	r.register(&Spec{
		Name:   "sort",
		Params: []Param{listP},
		Impl:   sortImpl,
	})
	r.register(&Spec{
		Name:        "setunion",
		Variadic:    &setP,
		MinVariadic: 1,
		Impl: func(args []value.Value) (value.Value, error) {
			var elems []value.Value
			for _, s := range args {
				elems = append(elems, s.Elements()...)
			}
			return value.SetVal(elems), nil
		},
	})
	r.register(&Spec{
		Name:        "setintersection",
		Variadic:    &setP,
		MinVariadic: 1,
		Impl:        setIntersectionImpl,
	})

	// Explicit conversions. Implicit coercion does not exist anywhere in
	// the language; these are the doorway.
	r.register(convertSpec("tolist", value.KindList))
	r.register(convertSpec("toset", value.KindSet))
	r.register(convertSpec("tomap", value.KindMap))
	r.register(convertSpec("tostring", value.KindString))
	r.register(convertSpec("tonumber", value.KindNumber))
	r.register(convertSpec("tobool", value.KindBool))
}

func convertSpec(name string, target value.Kind) *Spec {
	return &Spec{
		Name:   name,
		Params: []Param{anyP},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.Convert(args[0], target)
		},
	}
}

// mergeImpl unions maps shallowly, left to right, the rightmost
// occurrence of a key winning. The first occurrence fixes key order.
func mergeImpl(args []value.Value) (value.Value, error) {
	allMaps := true
	var pairs []value.Pair
	for _, m := range args {
		if m.Kind() != value.KindMap {
			allMaps = false
		}
		pairs = append(pairs, m.Pairs()...)
	}
	if allMaps {
		return value.MapVal(pairs...), nil
	}
	return value.ObjectVal(pairs...), nil
}

// flattenImpl recursively splices nested Lists and Sets into one flat
// List; non-collection elements pass through unchanged. An Unknown
// element makes the whole result Unknown, because it might itself be a
// list that would splice in any number of elements.
func flattenImpl(args []value.Value) (value.Value, error) {
	var out []value.Value
	var walk func(v value.Value) bool
	walk = func(v value.Value) bool {
		for _, e := range v.Elements() {
			switch e.Kind() {
			case value.KindList, value.KindSet:
				if !walk(e) {
					return false
				}
			case value.KindUnknown:
				return false
			default:
				out = append(out, e)
			}
		}
		return true
	}
	if !walk(args[0]) {
		return value.Unknown, nil
	}
	return value.ListVal(out), nil
}

func distinctImpl(args []value.Value) (value.Value, error) {
	var out []value.Value
	for _, e := range args[0].Elements() {
		dup := false
		for _, seen := range out {
			if value.Equal(seen, e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return value.ListVal(out), nil
}

func concatImpl(args []value.Value) (value.Value, error) {
	var out []value.Value
	for _, l := range args {
		out = append(out, l.Elements()...)
	}
	return value.ListVal(out), nil
}

func lookupImpl(args []value.Value) (value.Value, error) {
	if v, ok := args[0].Field(args[1].AsString()); ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return value.Value{}, diag.IndexOutOfRangeError{Key: args[1].AsString()}
}

func zipmapImpl(args []value.Value) (value.Value, error) {
	ks, vs := args[0].Elements(), args[1].Elements()
	if len(ks) != len(vs) {
		return value.Value{}, diag.TypeError{
			Subject: "zipmap",
			Detail:  fmt.Sprintf("key list has %d elements, value list has %d", len(ks), len(vs)),
		}
	}
	pairs := make([]value.Pair, 0, len(ks))
	for i, k := range ks {
		if k.Kind() != value.KindString {
			return value.Value{}, diag.TypeError{Subject: "zipmap", ArgPos: 1, Want: "list of string keys", Got: k.Kind().String()}
		}
		pairs = append(pairs, value.Pair{Key: k.AsString(), Val: vs[i]})
	}
	return value.MapVal(pairs...), nil
}

func lengthImpl(args []value.Value) (value.Value, error) {
	if args[0].Kind() == value.KindString {
		return value.IntVal(int64(runeLen(args[0].AsString()))), nil
	}
	return value.IntVal(int64(args[0].Len())), nil
}

// elementImpl wraps around the end of the list, so element(l, n) is
// always defined for a non-empty l.
func elementImpl(args []value.Value) (value.Value, error) {
	idx, err := args[1].AsInt64()
	if err != nil {
		return value.Value{}, diag.TypeError{Subject: "element", ArgPos: 2, Want: "integral number", Got: "number", Detail: err.Error()}
	}
	elems := args[0].Elements()
	if len(elems) == 0 {
		return value.Value{}, diag.IndexOutOfRangeError{Index: int(idx), Length: 0}
	}
	i := int(idx) % len(elems)
	if i < 0 {
		i += len(elems)
	}
	return elems[i], nil
}

// coalesceImpl returns the first argument that is neither null nor an
// empty string.
func coalesceImpl(args []value.Value) (value.Value, error) {
	for _, a := range args {
		if a.IsNull() {
			continue
		}
		if a.Kind() == value.KindString && a.AsString() == "" {
			continue
		}
		return a, nil
	}
	return value.Value{}, diag.ValidationError{Subject: "coalesce", Message: "no argument was non-null and non-empty"}
}

func compactImpl(args []value.Value) (value.Value, error) {
	var out []value.Value
	for _, e := range args[0].Elements() {
		if e.IsNull() {
			continue
		}
		if e.Kind() != value.KindString {
			return value.Value{}, diag.TypeError{Subject: "compact", ArgPos: 1, Want: "list of strings", Got: e.Kind().String()}
		}
		if e.AsString() == "" {
			continue
		}
		out = append(out, e)
	}
	return value.ListVal(out), nil
}

// rangeLimit bounds the number of elements range may generate; a
// fractional step in the wrong direction would otherwise loop forever.
const rangeLimit = 1 << 16

func rangeImpl(args []value.Value) (value.Value, error) {
	start := value.IntVal(0)
	end := args[0]
	step := value.IntVal(1)
	switch len(args) {
	case 2:
		start, end = args[0], args[1]
	case 3:
		start, end, step = args[0], args[1], args[2]
	}

	stepDec := step.AsDecimal()
	if stepDec.IsZero() {
		return value.Value{}, diag.ValidationError{Subject: "range", Message: "step must not be zero"}
	}
	descending := stepDec.Negative

	var out []value.Value
	cur := start
	for {
		cmp := value.Compare(cur, end)
		if (!descending && cmp >= 0) || (descending && cmp <= 0) {
			break
		}
		out = append(out, cur)
		if len(out) > rangeLimit {
			return value.Value{}, diag.ValidationError{Subject: "range", Message: fmt.Sprintf("more than %d values", rangeLimit)}
		}
		next, err := value.Add(cur, step)
		if err != nil {
			return value.Value{}, err
		}
		cur = next
	}
	return value.ListVal(out), nil
}

func sliceImpl(args []value.Value) (value.Value, error) {
	elems := args[0].Elements()
	start, err := args[1].AsInt64()
	if err != nil {
		return value.Value{}, diag.TypeError{Subject: "slice", ArgPos: 2, Want: "integral number", Got: "number", Detail: err.Error()}
	}
	end, err := args[2].AsInt64()
	if err != nil {
		return value.Value{}, diag.TypeError{Subject: "slice", ArgPos: 3, Want: "integral number", Got: "number", Detail: err.Error()}
	}
	if start < 0 || start > int64(len(elems)) {
		return value.Value{}, diag.IndexOutOfRangeError{Index: int(start), Length: len(elems)}
	}
	if end < start || end > int64(len(elems)) {
		return value.Value{}, diag.IndexOutOfRangeError{Index: int(end), Length: len(elems)}
	}
	return value.ListVal(elems[start:end]), nil
}

func sortImpl(args []value.Value) (value.Value, error) {
	elems := args[0].Elements()
	for _, e := range elems {
		if e.Kind() != value.KindString {
			return value.Value{}, diag.TypeError{Subject: "sort", ArgPos: 1, Want: "list of strings", Got: e.Kind().String()}
		}
	}
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].AsString() < elems[j].AsString() })
	return value.ListVal(elems), nil
}

func setIntersectionImpl(args []value.Value) (value.Value, error) {
	var out []value.Value
	for _, e := range args[0].Elements() {
		inAll := true
		for _, s := range args[1:] {
			found := false
			for _, o := range s.Elements() {
				if value.Equal(e, o) {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, e)
		}
	}
	return value.SetVal(out), nil
}
