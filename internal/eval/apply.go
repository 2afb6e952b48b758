package eval

import (
	"fmt"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

// ApplyPath applies the steps of p starting at index from to subject:
// name steps become attribute access, key steps become indexing. The
// graph uses this to finish resolving a reference like
// resource.vm.web[0].ip after the node's own value is available.
func ApplyPath(subject value.Value, p addr.Path, from int) (value.Value, error) {
	v := subject
	for _, step := range p.Steps[from:] {
		var err error
		if step.Key != nil {
			switch k := step.Key.(type) {
			case addr.IntKey:
				v, err = indexValue(v, value.IntVal(int64(k)))
			case addr.StringKey:
				v, err = indexValue(v, value.StringVal(string(k)))
			}
		} else {
			v, err = attrValue(v, step.Name)
		}
		if err != nil {
			return value.Value{}, err
		}
	}
	return v, nil
}

// indexValue implements coll[key] for every collection kind. Unknown in
// either position yields Unknown.
func indexValue(coll, key value.Value) (value.Value, error) {
	if coll.IsUnknown() || key.IsUnknown() {
		return value.Unknown, nil
	}
	switch coll.Kind() {
	case value.KindList:
		if key.Kind() != value.KindNumber {
			return value.Value{}, diag.TypeError{Subject: "index", Want: "number", Got: key.Kind().String()}
		}
		i, err := key.AsInt64()
		if err != nil {
			return value.Value{}, diag.TypeError{Subject: "index", Want: "integral number", Got: "number", Detail: err.Error()}
		}
		elems := coll.Elements()
		if i < 0 || i >= int64(len(elems)) {
			return value.Value{}, diag.IndexOutOfRangeError{Index: int(i), Length: len(elems)}
		}
		return elems[i], nil
	case value.KindMap, value.KindObject:
		if key.Kind() != value.KindString {
			return value.Value{}, diag.TypeError{Subject: "index", Want: "string", Got: key.Kind().String()}
		}
		v, ok := coll.Field(key.AsString())
		if !ok {
			return value.Value{}, diag.IndexOutOfRangeError{Key: key.AsString()}
		}
		return v, nil
	default:
		return value.Value{}, diag.TypeError{
			Subject: "index",
			Want:    "list, map or object",
			Got:     coll.Kind().String(),
		}
	}
}

// attrValue implements source.name. Maps are addressable by attribute
// syntax as well as by index.
func attrValue(source value.Value, name string) (value.Value, error) {
	if source.IsUnknown() {
		return value.Unknown, nil
	}
	switch source.Kind() {
	case value.KindObject, value.KindMap:
		v, ok := source.Field(name)
		if !ok {
			return value.Value{}, diag.IndexOutOfRangeError{Key: name}
		}
		return v, nil
	default:
		return value.Value{}, diag.TypeError{
			Subject: fmt.Sprintf("attribute %q", name),
			Want:    "object or map",
			Got:     source.Kind().String(),
		}
	}
}
