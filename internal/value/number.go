package value

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/specialistvlad/terrane/internal/diag"
)

// numCtx is the shared decimal context for all arithmetic: 34 significant
// digits, matching IEEE 754 decimal128. Results of inexact operations
// (1/3 and friends) are rounded to this precision; integer arithmetic
// within the precision is exact.
var numCtx = apd.BaseContext.WithPrecision(34)

// NumberContext returns the decimal context used for all Number
// arithmetic. Callers must not mutate it.
func NumberContext() *apd.Context { return numCtx }

// ParseNumber constructs a Number from a decimal literal such as
// "42", "-1.5" or "6.02e23".
func ParseNumber(s string) (Value, error) {
	d := &apd.Decimal{}
	if _, _, err := d.SetString(s); err != nil {
		return Value{}, diag.ConversionError{From: "string", To: "number", Detail: fmt.Sprintf("%q is not a valid number", s)}
	}
	if d.Form != apd.Finite {
		return Value{}, diag.ConversionError{From: "string", To: "number", Detail: fmt.Sprintf("%q is not a finite number", s)}
	}
	return Value{kind: KindNumber, num: d}, nil
}

// MustParseNumber is ParseNumber for literals known to be well-formed.
func MustParseNumber(s string) Value {
	v, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NumberText renders a Number canonically: trailing zeros removed, plain
// notation for human-scale exponents. MustParseNumber(NumberText(v))
// round-trips to an equal value.
func NumberText(v Value) string {
	v.mustKind(KindNumber)
	reduced := &apd.Decimal{}
	reduced.Reduce(v.num)
	if exp := int(reduced.Exponent); exp >= -32 && exp <= 32 {
		return reduced.Text('f')
	}
	return reduced.Text('g')
}

// Add returns a + b.
func Add(a, b Value) (Value, error) { return arith("+", a, b, numCtx.Add) }

// Sub returns a - b.
func Sub(a, b Value) (Value, error) { return arith("-", a, b, numCtx.Sub) }

// Mul returns a * b.
func Mul(a, b Value) (Value, error) { return arith("*", a, b, numCtx.Mul) }

// Div returns a / b, or DivisionByZeroError when b is zero.
func Div(a, b Value) (Value, error) {
	b.mustKind(KindNumber)
	if b.num.IsZero() {
		return Value{}, diag.DivisionByZeroError{Op: "/"}
	}
	return arith("/", a, b, numCtx.Quo)
}

// Mod returns the remainder of a / b with the sign of a, or
// DivisionByZeroError when b is zero.
func Mod(a, b Value) (Value, error) {
	b.mustKind(KindNumber)
	if b.num.IsZero() {
		return Value{}, diag.DivisionByZeroError{Op: "%"}
	}
	return arith("%", a, b, numCtx.Rem)
}

// Neg returns -a.
func Neg(a Value) Value {
	a.mustKind(KindNumber)
	d := &apd.Decimal{}
	d.Neg(a.num)
	return Value{kind: KindNumber, num: d}
}

type binOp func(d, x, y *apd.Decimal) (apd.Condition, error)

func arith(op string, a, b Value, f binOp) (Value, error) {
	a.mustKind(KindNumber)
	b.mustKind(KindNumber)
	d := &apd.Decimal{}
	if _, err := f(d, a.num, b.num); err != nil {
		return Value{}, diag.TypeError{Subject: fmt.Sprintf("operator %q", op), Detail: err.Error()}
	}
	return Value{kind: KindNumber, num: d}, nil
}
