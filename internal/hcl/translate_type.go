// This file parses type constraint expressions (e.g. `string`,
// `list(number)`, `object({name = string})`) into value constraints.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/specialistvlad/terrane/internal/value"
)

// typeConstraint converts a type expression into its constraint
// equivalent. A nil or omitted expression means the value is
// unconstrained.
func typeConstraint(expr hcl.Expression) (value.Constraint, error) {
	if !exprDefined(expr) {
		return value.Any, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return value.Any, fmt.Errorf("invalid type keyword: expected a single identifier")
		}
		switch name := v.Traversal.RootName(); name {
		case "string":
			return value.Primitive(value.KindString), nil
		case "number":
			return value.Primitive(value.KindNumber), nil
		case "bool":
			return value.Primitive(value.KindBool), nil
		case "any":
			return value.Any, nil
		default:
			return value.Any, fmt.Errorf("unknown primitive type %q", name)
		}

	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return value.Any, fmt.Errorf("type constructor %s requires exactly one argument, got %d", v.Name, len(v.Args))
		}
		switch v.Name {
		case "list", "map", "set":
			elem, err := typeConstraint(v.Args[0])
			if err != nil {
				return value.Any, err
			}
			switch v.Name {
			case "list":
				return value.ListOf(elem), nil
			case "map":
				return value.MapOf(elem), nil
			default:
				return value.SetOf(elem), nil
			}
		case "object":
			return objectConstraint(v.Args[0])
		default:
			return value.Any, fmt.Errorf("unknown type constructor %q", v.Name)
		}

	case *hclsyntax.ObjectConsExpr:
		return value.Any, fmt.Errorf("attribute types must be wrapped in object({...})")

	default:
		return value.Any, fmt.Errorf("unsupported type expression %T", v)
	}
}

// objectConstraint parses the {name = type, ...} argument of object().
func objectConstraint(expr hclsyntax.Expression) (value.Constraint, error) {
	cons, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return value.Any, fmt.Errorf("object() requires a {name = type, ...} argument, got %T", expr)
	}

	attrs := make(map[string]value.Constraint, len(cons.Items))
	for _, item := range cons.Items {
		key := hclsyntax.Expression(item.KeyExpr)
		if wrapped, isKey := key.(*hclsyntax.ObjectConsKeyExpr); isKey {
			key = wrapped.Wrapped
		}
		name := hcl.ExprAsKeyword(key)
		if name == "" {
			return value.Any, fmt.Errorf("object() attribute names must be identifiers")
		}
		ac, err := typeConstraint(item.ValueExpr)
		if err != nil {
			return value.Any, fmt.Errorf("object() attribute %q: %w", name, err)
		}
		attrs[name] = ac
	}
	return value.ObjectOf(attrs), nil
}

// exprDefined reports whether an optional attribute was actually written
// in the source. The decoder populates omitted optional expression fields
// with zero-width placeholders, so a nil check alone is not enough.
func exprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
