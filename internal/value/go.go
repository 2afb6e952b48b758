package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/specialistvlad/terrane/internal/diag"
)

// FromGo converts a plain Go value, as produced by the yaml and json
// decoders, into a Value. Go maps carry no order, so their keys are
// sorted. Floats go through their shortest decimal rendering so that a
// YAML 3.14 becomes exactly the number 3.14.
func FromGo(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null, nil
	case bool:
		return BoolVal(x), nil
	case string:
		return StringVal(x), nil
	case int:
		return IntVal(int64(x)), nil
	case int64:
		return IntVal(x), nil
	case uint64:
		return ParseNumber(strconv.FormatUint(x, 10))
	case float64:
		return ParseNumber(strconv.FormatFloat(x, 'g', -1, 64))
	case json.Number:
		return ParseNumber(x.String())
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return ListVal(elems), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]Pair, 0, len(keys))
		for _, k := range keys {
			v, err := FromGo(x[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			pairs = append(pairs, Pair{Key: k, Val: v})
		}
		return ObjectVal(pairs...), nil
	case map[any]any:
		conv := make(map[string]any, len(x))
		for k, v := range x {
			ks, ok := k.(string)
			if !ok {
				return Value{}, diag.ConversionError{From: fmt.Sprintf("%T", k), To: "string", Detail: "map keys must be strings"}
			}
			conv[ks] = v
		}
		return FromGo(conv)
	default:
		return Value{}, diag.ConversionError{From: fmt.Sprintf("%T", raw), To: "value"}
	}
}

// ToGo converts a fully known Value into plain Go data suitable for
// encoding/json: nil, bool, json.Number, string, []any and
// map[string]any. Unknown anywhere in the value is an error; callers
// that may hold unknowns use Display instead.
func ToGo(v Value) (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindNumber:
		return json.Number(NumberText(v)), nil
	case KindString:
		return v.str, nil
	case KindList, KindSet:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			g, err := ToGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case KindMap, KindObject:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			g, err := ToGo(v.fields[k])
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	case KindUnknown:
		return nil, diag.ConversionError{From: "unknown", To: "go value", Detail: "value is not yet known"}
	default:
		return nil, diag.ConversionError{From: v.kind.String(), To: "go value"}
	}
}

// Display converts a Value into plain Go data for human-facing output,
// rendering Unknown as the placeholder string "(known after apply)".
func Display(v Value) any {
	switch v.kind {
	case KindUnknown:
		return "(known after apply)"
	case KindList, KindSet:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = Display(e)
		}
		return out
	case KindMap, KindObject:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = Display(v.fields[k])
		}
		return out
	default:
		g, err := ToGo(v)
		if err != nil {
			return v.String()
		}
		return g
	}
}
