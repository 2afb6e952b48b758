// Package eval is the expression evaluator: a pure tree walk over
// internal/ast producing internal/value results. It owns every semantic
// rule about Unknown propagation, operator typing and comprehension
// behavior; it knows nothing about declarations, files or the graph
// beyond the Resolver interface it is handed.
package eval

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

// Evaluate computes the value of n in sc. Errors carry the node's source
// range when it has one.
func Evaluate(ctx context.Context, n ast.Node, sc *Scope) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return value.Value{}, err
	}

	switch x := n.(type) {
	case *ast.Literal:
		return x.Val, nil

	case *ast.SymbolRef:
		return evalSymbol(ctx, x, sc)

	case *ast.AnonRef:
		v, ok := sc.anonValue()
		if !ok {
			return value.Value{}, diag.TypeError{Subject: "splat", Detail: "splat element reference outside a splat expression"}
		}
		return v, nil

	case *ast.Index:
		coll, err := Evaluate(ctx, x.Coll, sc)
		if err != nil {
			return value.Value{}, err
		}
		key, err := Evaluate(ctx, x.Key, sc)
		if err != nil {
			return value.Value{}, err
		}
		return indexValue(coll, key)

	case *ast.Attr:
		source, err := Evaluate(ctx, x.Source, sc)
		if err != nil {
			return value.Value{}, err
		}
		return attrValue(source, x.Name)

	case *ast.Call:
		return evalCall(ctx, x, sc)

	case *ast.Conditional:
		return evalConditional(ctx, x, sc)

	case *ast.BinaryOp:
		return evalBinary(ctx, x, sc)

	case *ast.UnaryOp:
		return evalUnary(ctx, x, sc)

	case *ast.ForExpr:
		return evalFor(ctx, x, sc)

	case *ast.Splat:
		return evalSplat(ctx, x, sc)

	case *ast.Template:
		return evalTemplate(ctx, x, sc)

	case *ast.TupleCons:
		elems := make([]value.Value, len(x.Items))
		for i, item := range x.Items {
			v, err := Evaluate(ctx, item, sc)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
		return value.ListVal(elems), nil

	case *ast.ObjectCons:
		return evalObjectCons(ctx, x, sc)

	default:
		return value.Value{}, diag.TypeError{Subject: "expression", Detail: "unsupported expression node"}
	}
}

func evalSymbol(ctx context.Context, x *ast.SymbolRef, sc *Scope) (value.Value, error) {
	root := x.Path.Root()
	if bound, ok := sc.lookup(root); ok {
		return ApplyPath(bound, x.Path, 1)
	}
	return sc.resolveRef(ctx, x.Path)
}

func evalCall(ctx context.Context, x *ast.Call, sc *Scope) (value.Value, error) {
	// try and can evaluate their arguments lazily, so they cannot live in
	// the registry, which receives finished values.
	switch x.Name {
	case "try":
		return evalTry(ctx, x, sc)
	case "can":
		return evalCan(ctx, x, sc)
	}

	args := make([]value.Value, len(x.Args))
	for i, argExpr := range x.Args {
		v, err := Evaluate(ctx, argExpr, sc)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}

	reg := sc.funcRegistry()
	if reg == nil {
		return value.Value{}, diag.UndefinedSymbolError{Symbol: x.Name, Referrer: "function call"}
	}
	return reg.Call(x.Name, args)
}

// evalTry returns the first candidate that evaluates without error.
// Unknown is success: the candidate exists, its value just is not known
// yet. When every candidate fails the errors are returned together.
func evalTry(ctx context.Context, x *ast.Call, sc *Scope) (value.Value, error) {
	if len(x.Args) == 0 {
		return value.Value{}, diag.ArityError{Func: "try", Want: "at least 1", Got: 0}
	}
	var all *multierror.Error
	for _, cand := range x.Args {
		v, err := Evaluate(ctx, cand, sc)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return value.Value{}, err
		}
		all = multierror.Append(all, err)
	}
	return value.Value{}, diag.ValidationError{
		Subject: "try",
		Message: "no candidate expression succeeded: " + all.Error(),
	}
}

// evalCan converts evaluation failure to false and success to true,
// never exposing the underlying value.
func evalCan(ctx context.Context, x *ast.Call, sc *Scope) (value.Value, error) {
	if len(x.Args) != 1 {
		return value.Value{}, diag.ArityError{Func: "can", Want: "1", Got: len(x.Args)}
	}
	if _, err := Evaluate(ctx, x.Args[0], sc); err != nil {
		if ctx.Err() != nil {
			return value.Value{}, err
		}
		return value.False, nil
	}
	return value.True, nil
}

func evalConditional(ctx context.Context, x *ast.Conditional, sc *Scope) (value.Value, error) {
	cond, err := Evaluate(ctx, x.Cond, sc)
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case cond.IsUnknown():
		// Conservative rule: branches are not evaluated, so neither
		// branch's failure can surface while the condition is unknown.
		return value.Unknown, nil
	case cond.Kind() != value.KindBool:
		return value.Value{}, diag.TypeError{Subject: "conditional", Want: "bool condition", Got: cond.Kind().String()}
	case cond.AsBool():
		return Evaluate(ctx, x.True, sc)
	default:
		return Evaluate(ctx, x.False, sc)
	}
}

func evalTemplate(ctx context.Context, x *ast.Template, sc *Scope) (value.Value, error) {
	var sb strings.Builder
	unknown := false
	for _, part := range x.Parts {
		v, err := Evaluate(ctx, part, sc)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsUnknown() {
			unknown = true
			continue
		}
		switch v.Kind() {
		case value.KindString:
			sb.WriteString(v.AsString())
		case value.KindNumber, value.KindBool:
			conv, cerr := value.Convert(v, value.KindString)
			if cerr != nil {
				return value.Value{}, cerr
			}
			sb.WriteString(conv.AsString())
		default:
			return value.Value{}, diag.TypeError{
				Subject: "template interpolation",
				Want:    "string, number or bool",
				Got:     v.Kind().String(),
			}
		}
	}
	if unknown {
		return value.Unknown, nil
	}
	return value.StringVal(sb.String()), nil
}

func evalObjectCons(ctx context.Context, x *ast.ObjectCons, sc *Scope) (value.Value, error) {
	pairs := make([]value.Pair, 0, len(x.Keys))
	seen := make(map[string]bool, len(x.Keys))
	unknown := false
	for i, keyExpr := range x.Keys {
		kv, err := Evaluate(ctx, keyExpr, sc)
		if err != nil {
			return value.Value{}, err
		}
		vv, err := Evaluate(ctx, x.Values[i], sc)
		if err != nil {
			return value.Value{}, err
		}
		if kv.IsUnknown() {
			// One unknown key makes the whole shape unknowable.
			unknown = true
			continue
		}
		key, err := objectKey(kv)
		if err != nil {
			return value.Value{}, err
		}
		if seen[key] {
			return value.Value{}, diag.DuplicateKeyError{Key: key}
		}
		seen[key] = true
		pairs = append(pairs, value.Pair{Key: key, Val: vv})
	}
	if unknown {
		return value.Unknown, nil
	}
	return value.ObjectVal(pairs...), nil
}

func objectKey(kv value.Value) (string, error) {
	switch kv.Kind() {
	case value.KindString:
		return kv.AsString(), nil
	case value.KindNumber, value.KindBool:
		conv, err := value.Convert(kv, value.KindString)
		if err != nil {
			return "", err
		}
		return conv.AsString(), nil
	default:
		return "", diag.TypeError{Subject: "object key", Want: "string", Got: kv.Kind().String()}
	}
}
