package hcl

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/terrane/internal/value"
)

// fromCtyValue converts a literal produced by the HCL parser into the
// evaluator's value model. Numbers go through their decimal text so that
// a source literal like 0.1 keeps its written digits instead of whatever
// binary float happens to be nearest.
func fromCtyValue(v cty.Value) (value.Value, error) {
	if !v.IsKnown() {
		return value.Unknown, nil
	}
	if v.IsNull() {
		return value.Null, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return value.BoolVal(v.True()), nil

	case ty == cty.String:
		return value.StringVal(v.AsString()), nil

	case ty == cty.Number:
		return value.ParseNumber(v.AsBigFloat().Text('f', -1))

	case ty.IsTupleType(), ty.IsListType(), ty.IsSetType():
		elems := make([]value.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			e, err := fromCtyValue(ev)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, e)
		}
		if ty.IsSetType() {
			return value.SetVal(elems), nil
		}
		return value.ListVal(elems), nil

	case ty.IsObjectType(), ty.IsMapType():
		pairs := make([]value.Pair, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			e, err := fromCtyValue(ev)
			if err != nil {
				return value.Value{}, err
			}
			pairs = append(pairs, value.Pair{Key: kv.AsString(), Val: e})
		}
		if ty.IsMapType() {
			return value.MapVal(pairs...), nil
		}
		return value.ObjectVal(pairs...), nil

	default:
		return value.Value{}, fmt.Errorf("unsupported literal of type %s", ty.FriendlyName())
	}
}
