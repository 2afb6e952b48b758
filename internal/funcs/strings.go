package funcs

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func registerString(r *Registry) {
	r.register(simpleString("upper", strings.ToUpper))
	r.register(simpleString("lower", strings.ToLower))
	r.register(simpleString("trimspace", strings.TrimSpace))
	r.register(stringPair("trim", strings.Trim))
	r.register(stringPair("trimprefix", strings.TrimPrefix))
	r.register(stringPair("trimsuffix", strings.TrimSuffix))
	r.register(&Spec{
		Name:   "replace",
		Params: []Param{stringP, {Name: "substr", Kinds: []value.Kind{value.KindString}}, {Name: "replacement", Kinds: []value.Kind{value.KindString}}},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.StringVal(strings.ReplaceAll(args[0].AsString(), args[1].AsString(), args[2].AsString())), nil
		},
	})
	r.register(&Spec{
		Name:   "split",
		Params: []Param{{Name: "separator", Kinds: []value.Kind{value.KindString}}, stringP},
		Impl: func(args []value.Value) (value.Value, error) {
			parts := strings.Split(args[1].AsString(), args[0].AsString())
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.StringVal(p)
			}
			return value.ListVal(elems), nil
		},
	})
	r.register(&Spec{
		Name:   "join",
		Params: []Param{{Name: "separator", Kinds: []value.Kind{value.KindString}}, listP},
		Impl:   joinImpl,
	})
	r.register(&Spec{
		Name:     "format",
		Params:   []Param{stringP},
		Variadic: &anyP,
		Impl:     formatImpl,
	})
	r.register(&Spec{
		Name:   "substr",
		Params: []Param{stringP, {Name: "offset", Kinds: []value.Kind{value.KindNumber}}, {Name: "length", Kinds: []value.Kind{value.KindNumber}}},
		Impl:   substrImpl,
	})
	r.register(&Spec{
		Name:   "startswith",
		Params: []Param{stringP, {Name: "prefix", Kinds: []value.Kind{value.KindString}}},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.BoolVal(strings.HasPrefix(args[0].AsString(), args[1].AsString())), nil
		},
	})
	r.register(&Spec{
		Name:   "endswith",
		Params: []Param{stringP, {Name: "suffix", Kinds: []value.Kind{value.KindString}}},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.BoolVal(strings.HasSuffix(args[0].AsString(), args[1].AsString())), nil
		},
	})
	r.register(&Spec{
		Name:   "indent",
		Params: []Param{{Name: "spaces", Kinds: []value.Kind{value.KindNumber}}, stringP},
		Impl:   indentImpl,
	})
}

func simpleString(name string, f func(string) string) *Spec {
	return &Spec{
		Name:   name,
		Params: []Param{stringP},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.StringVal(f(args[0].AsString())), nil
		},
	}
}

func stringPair(name string, f func(string, string) string) *Spec {
	return &Spec{
		Name:   name,
		Params: []Param{stringP, {Name: "cut", Kinds: []value.Kind{value.KindString}}},
		Impl: func(args []value.Value) (value.Value, error) {
			return value.StringVal(f(args[0].AsString(), args[1].AsString())), nil
		},
	}
}

func joinImpl(args []value.Value) (value.Value, error) {
	elems := args[1].Elements()
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.Kind() != value.KindString {
			return value.Value{}, diag.TypeError{Subject: "join", ArgPos: 2, Want: "list of strings", Got: e.Kind().String()}
		}
		parts[i] = e.AsString()
	}
	return value.StringVal(strings.Join(parts, args[0].AsString())), nil
}

// formatImpl understands the verbs %s (any value rendered as a string),
// %d (integral number), %f (number), %q (quoted string) and %%. Anything
// else in the format string is a TypeError, not silently passed through.
func formatImpl(args []value.Value) (value.Value, error) {
	f := args[0].AsString()
	rest := args[1:]
	var sb strings.Builder
	argIdx := 0

	takeArg := func() (value.Value, error) {
		if argIdx >= len(rest) {
			return value.Value{}, diag.ArityError{Func: "format", Want: fmt.Sprintf("at least %d", argIdx+2), Got: len(args)}
		}
		a := rest[argIdx]
		argIdx++
		return a, nil
	}

	for i := 0; i < len(f); i++ {
		if f[i] != '%' {
			sb.WriteByte(f[i])
			continue
		}
		i++
		if i >= len(f) {
			return value.Value{}, diag.TypeError{Subject: "format", ArgPos: 1, Detail: "format string ends with a bare %"}
		}
		switch verb := f[i]; verb {
		case '%':
			sb.WriteByte('%')
		case 's':
			a, err := takeArg()
			if err != nil {
				return value.Value{}, err
			}
			s, err := formatAsString(a, argIdx)
			if err != nil {
				return value.Value{}, err
			}
			sb.WriteString(s)
		case 'q':
			a, err := takeArg()
			if err != nil {
				return value.Value{}, err
			}
			s, err := formatAsString(a, argIdx)
			if err != nil {
				return value.Value{}, err
			}
			fmt.Fprintf(&sb, "%q", s)
		case 'd':
			a, err := takeArg()
			if err != nil {
				return value.Value{}, err
			}
			if a.Kind() != value.KindNumber {
				return value.Value{}, diag.TypeError{Subject: "format", ArgPos: argIdx + 1, Want: "number", Got: a.Kind().String()}
			}
			n, ierr := a.AsInt64()
			if ierr != nil {
				return value.Value{}, diag.TypeError{Subject: "format", ArgPos: argIdx + 1, Want: "integral number", Got: "number", Detail: ierr.Error()}
			}
			fmt.Fprintf(&sb, "%d", n)
		case 'f':
			a, err := takeArg()
			if err != nil {
				return value.Value{}, err
			}
			if a.Kind() != value.KindNumber {
				return value.Value{}, diag.TypeError{Subject: "format", ArgPos: argIdx + 1, Want: "number", Got: a.Kind().String()}
			}
			sb.WriteString(value.NumberText(a))
		default:
			return value.Value{}, diag.TypeError{Subject: "format", ArgPos: 1, Detail: fmt.Sprintf("unsupported verb %%%c", verb)}
		}
	}

	if argIdx < len(rest) {
		return value.Value{}, diag.ArityError{Func: "format", Want: fmt.Sprintf("%d", argIdx+1), Got: len(args)}
	}
	return value.StringVal(sb.String()), nil
}

func formatAsString(a value.Value, pos int) (string, error) {
	switch a.Kind() {
	case value.KindString:
		return a.AsString(), nil
	case value.KindNumber, value.KindBool:
		conv, err := value.Convert(a, value.KindString)
		if err != nil {
			return "", err
		}
		return conv.AsString(), nil
	default:
		return "", diag.TypeError{Subject: "format", ArgPos: pos + 1, Want: "string, number or bool", Got: a.Kind().String()}
	}
}

func substrImpl(args []value.Value) (value.Value, error) {
	runes := []rune(args[0].AsString())
	offset, err := args[1].AsInt64()
	if err != nil || offset < 0 {
		return value.Value{}, diag.TypeError{Subject: "substr", ArgPos: 2, Want: "non-negative integral number", Got: args[1].String()}
	}
	length, err := args[2].AsInt64()
	if err != nil || length < -1 {
		return value.Value{}, diag.TypeError{Subject: "substr", ArgPos: 3, Want: "integral number >= -1", Got: args[2].String()}
	}
	if offset > int64(len(runes)) {
		return value.Value{}, diag.IndexOutOfRangeError{Index: int(offset), Length: len(runes)}
	}
	end := int64(len(runes))
	if length != -1 && offset+length < end {
		end = offset + length
	}
	return value.StringVal(string(runes[offset:end])), nil
}

// indentImpl adds spaces to the start of every line except the first,
// which is assumed to sit after existing content.
func indentImpl(args []value.Value) (value.Value, error) {
	n, err := args[0].AsInt64()
	if err != nil || n < 0 {
		return value.Value{}, diag.TypeError{Subject: "indent", ArgPos: 1, Want: "non-negative integral number", Got: args[0].String()}
	}
	pad := strings.Repeat(" ", int(n))
	return value.StringVal(strings.ReplaceAll(args[1].AsString(), "\n", "\n"+pad)), nil
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
