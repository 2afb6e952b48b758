package funcs

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func registerNumeric(r *Registry) {
	r.register(&Spec{
		Name:   "abs",
		Params: []Param{numberP},
		Impl: func(args []value.Value) (value.Value, error) {
			d := args[0].AsDecimal()
			d.Abs(d)
			return value.NumberVal(d), nil
		},
	})
	r.register(&Spec{
		Name:   "ceil",
		Params: []Param{numberP},
		Impl:   roundSpec((*apd.Context).Ceil),
	})
	r.register(&Spec{
		Name:   "floor",
		Params: []Param{numberP},
		Impl:   roundSpec((*apd.Context).Floor),
	})
	r.register(&Spec{
		Name:        "min",
		Variadic:    &numberP,
		MinVariadic: 1,
		Impl:        extremumSpec(-1),
	})
	r.register(&Spec{
		Name:        "max",
		Variadic:    &numberP,
		MinVariadic: 1,
		Impl:        extremumSpec(1),
	})
	r.register(&Spec{
		Name:   "signum",
		Params: []Param{numberP},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.IntVal(int64(args[0].AsDecimal().Sign())), nil
		},
	})
	r.register(&Spec{
		Name:   "pow",
		Params: []Param{{Name: "base", Kinds: []value.Kind{value.KindNumber}}, {Name: "exponent", Kinds: []value.Kind{value.KindNumber}}},
		Impl:   powImpl,
	})
	r.register(&Spec{
		Name:   "parseint",
		Params: []Param{stringP, {Name: "base", Kinds: []value.Kind{value.KindNumber}}},
		Impl:   parseintImpl,
	})
}

func roundSpec(round func(*apd.Context, *apd.Decimal, *apd.Decimal) (apd.Condition, error)) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		d := &apd.Decimal{}
		if _, err := round(value.NumberContext(), d, args[0].AsDecimal()); err != nil {
			return value.Value{}, diag.TypeError{Subject: "rounding", Detail: err.Error()}
		}
		return value.NumberVal(d), nil
	}
}

func extremumSpec(keep int) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		best := args[0]
		for _, a := range args[1:] {
			if value.Compare(a, best) == keep {
				best = a
			}
		}
		return best, nil
	}
}

func powImpl(args []value.Value) (value.Value, error) {
	d := &apd.Decimal{}
	if _, err := value.NumberContext().Pow(d, args[0].AsDecimal(), args[1].AsDecimal()); err != nil {
		return value.Value{}, diag.TypeError{Subject: "pow", Detail: err.Error()}
	}
	return value.NumberVal(d), nil
}

func parseintImpl(args []value.Value) (value.Value, error) {
	base, err := args[1].AsInt64()
	if err != nil || base < 2 || base > 62 {
		return value.Value{}, diag.TypeError{Subject: "parseint", ArgPos: 2, Want: "integral number between 2 and 62", Got: args[1].String()}
	}
	s := strings.TrimSpace(args[0].AsString())
	n, perr := strconv.ParseInt(s, int(base), 64)
	if perr != nil {
		return value.Value{}, diag.ConversionError{From: "string", To: "number", Detail: perr.Error()}
	}
	return value.IntVal(n), nil
}
