package eval

import (
	"context"
	"fmt"

	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func evalBinary(ctx context.Context, x *ast.BinaryOp, sc *Scope) (value.Value, error) {
	if x.Op == ast.OpAnd || x.Op == ast.OpOr {
		return evalLogical(ctx, x, sc)
	}

	lhs, err := Evaluate(ctx, x.LHS, sc)
	if err != nil {
		return value.Value{}, err
	}
	rhs, err := Evaluate(ctx, x.RHS, sc)
	if err != nil {
		return value.Value{}, err
	}

	switch x.Op {
	case ast.OpEq, ast.OpNeq:
		// Structural equality is total: operands of different kinds are
		// simply unequal, never a type error.
		if lhs.IsUnknown() || rhs.IsUnknown() {
			return value.Unknown, nil
		}
		eq := value.Equal(lhs, rhs)
		if x.Op == ast.OpNeq {
			eq = !eq
		}
		return value.BoolVal(eq), nil

	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		if err := requireNumbers(x.Op, lhs, rhs); err != nil {
			return value.Value{}, err
		}
		if lhs.IsUnknown() || rhs.IsUnknown() {
			return value.Unknown, nil
		}
		c := value.Compare(lhs, rhs)
		switch x.Op {
		case ast.OpLt:
			return value.BoolVal(c < 0), nil
		case ast.OpLte:
			return value.BoolVal(c <= 0), nil
		case ast.OpGt:
			return value.BoolVal(c > 0), nil
		default:
			return value.BoolVal(c >= 0), nil
		}

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if err := requireNumbers(x.Op, lhs, rhs); err != nil {
			return value.Value{}, err
		}
		if lhs.IsUnknown() || rhs.IsUnknown() {
			return value.Unknown, nil
		}
		switch x.Op {
		case ast.OpAdd:
			return value.Add(lhs, rhs)
		case ast.OpSub:
			return value.Sub(lhs, rhs)
		case ast.OpMul:
			return value.Mul(lhs, rhs)
		case ast.OpDiv:
			return value.Div(lhs, rhs)
		default:
			return value.Mod(lhs, rhs)
		}

	default:
		return value.Value{}, diag.TypeError{Subject: fmt.Sprintf("operator %q", x.Op), Detail: "unsupported operator"}
	}
}

// evalLogical applies && and ||. Operands evaluate left to right; a known
// Bool left operand short-circuits on value, and a known dominating right
// operand (false for &&, true for ||) decides the result even when the
// left is Unknown.
func evalLogical(ctx context.Context, x *ast.BinaryOp, sc *Scope) (value.Value, error) {
	lhs, err := Evaluate(ctx, x.LHS, sc)
	if err != nil {
		return value.Value{}, err
	}
	if err := requireBool(x.Op, lhs); err != nil {
		return value.Value{}, err
	}

	if lhs.Kind() == value.KindBool {
		if x.Op == ast.OpAnd && !lhs.AsBool() {
			return value.False, nil
		}
		if x.Op == ast.OpOr && lhs.AsBool() {
			return value.True, nil
		}
	}

	rhs, err := Evaluate(ctx, x.RHS, sc)
	if err != nil {
		return value.Value{}, err
	}
	if err := requireBool(x.Op, rhs); err != nil {
		return value.Value{}, err
	}

	if rhs.Kind() == value.KindBool {
		if x.Op == ast.OpAnd && !rhs.AsBool() {
			return value.False, nil
		}
		if x.Op == ast.OpOr && rhs.AsBool() {
			return value.True, nil
		}
	}
	if lhs.IsUnknown() || rhs.IsUnknown() {
		return value.Unknown, nil
	}
	return rhs, nil
}

func evalUnary(ctx context.Context, x *ast.UnaryOp, sc *Scope) (value.Value, error) {
	operand, err := Evaluate(ctx, x.Operand, sc)
	if err != nil {
		return value.Value{}, err
	}

	switch x.Op {
	case ast.OpNot:
		if err := requireBool(x.Op, operand); err != nil {
			return value.Value{}, err
		}
		if operand.IsUnknown() {
			return value.Unknown, nil
		}
		return value.BoolVal(!operand.AsBool()), nil

	case ast.OpNeg:
		if err := requireNumbers(x.Op, operand); err != nil {
			return value.Value{}, err
		}
		if operand.IsUnknown() {
			return value.Unknown, nil
		}
		return value.Neg(operand), nil

	default:
		return value.Value{}, diag.TypeError{Subject: fmt.Sprintf("operator %q", x.Op), Detail: "unsupported operator"}
	}
}

func requireNumbers(op ast.Op, operands ...value.Value) error {
	for _, v := range operands {
		if v.IsUnknown() || v.Kind() == value.KindNumber {
			continue
		}
		return diag.TypeError{
			Subject: fmt.Sprintf("operator %q", op),
			Want:    "number",
			Got:     v.Kind().String(),
		}
	}
	return nil
}

func requireBool(op ast.Op, v value.Value) error {
	if v.IsUnknown() || v.Kind() == value.KindBool {
		return nil
	}
	return diag.TypeError{
		Subject: fmt.Sprintf("operator %q", op),
		Want:    "bool",
		Got:     v.Kind().String(),
	}
}
