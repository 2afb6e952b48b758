package value

import (
	"fmt"

	"github.com/specialistvlad/terrane/internal/diag"
)

// Convert coerces v to the requested kind, or returns a ConversionError.
// There is no implicit coercion anywhere in the language; this is the one
// place values change kind, and callers reach it only through the to*
// functions and declared type constraints.
//
// Unknown converts to anything (it stays Unknown: the eventual value is
// assumed convertible, and a wrong assumption surfaces on the later pass
// when the value is known). Null likewise stays Null under any target.
func Convert(v Value, target Kind) (Value, error) {
	if v.kind == target {
		return v, nil
	}
	switch v.kind {
	case KindUnknown:
		return Unknown, nil
	case KindNull:
		return Null, nil
	}

	switch target {
	case KindString:
		switch v.kind {
		case KindNumber:
			return StringVal(NumberText(v)), nil
		case KindBool:
			if v.b {
				return StringVal("true"), nil
			}
			return StringVal("false"), nil
		}
	case KindNumber:
		if v.kind == KindString {
			n, err := ParseNumber(v.str)
			if err != nil {
				return Value{}, err
			}
			return n, nil
		}
	case KindBool:
		if v.kind == KindString {
			switch v.str {
			case "true":
				return True, nil
			case "false":
				return False, nil
			}
			return Value{}, diag.ConversionError{From: "string", To: "bool", Detail: fmt.Sprintf("%q is neither \"true\" nor \"false\"", v.str)}
		}
	case KindList:
		if v.kind == KindSet {
			return ListVal(v.elems), nil
		}
	case KindSet:
		if v.kind == KindList {
			return SetVal(v.elems), nil
		}
	case KindMap:
		if v.kind == KindObject {
			// A Map is homogeneous; the object's fields must all share one
			// kind. Unknown and Null fields take whatever kind that is.
			uniform := KindUnknown
			for _, key := range v.keys {
				k := v.fields[key].Kind()
				if k == KindUnknown || k == KindNull {
					continue
				}
				if uniform == KindUnknown {
					uniform = k
					continue
				}
				if k != uniform {
					return Value{}, diag.ConversionError{
						From:   "object",
						To:     "map",
						Detail: fmt.Sprintf("fields mix %s and %s", uniform, k),
					}
				}
			}
			return Value{kind: KindMap, keys: v.keys, fields: v.fields}, nil
		}
	case KindObject:
		if v.kind == KindMap {
			return Value{kind: KindObject, keys: v.keys, fields: v.fields}, nil
		}
	}

	return Value{}, diag.ConversionError{From: v.kind.String(), To: target.String()}
}
