// Package funcs implements the fixed function library available to
// expressions. The library is closed: there is no user extension point,
// so the evaluator can treat every call as pure and memoize freely.
//
// Dispatch enforces the shared call contract in one place — arity,
// per-argument kind checks with 1-based positions, null rejection for
// typed parameters, and blanket Unknown propagation — so the individual
// implementations only ever see well-shaped known arguments.
package funcs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

// Param describes one parameter of a function.
type Param struct {
	Name  string
	Kinds []value.Kind // empty means any kind, including Null
}

// Spec is one function: fixed parameters, then optional parameters, then
// an optional variadic tail.
type Spec struct {
	Name     string
	Params   []Param
	Optional []Param
	Variadic *Param
	// MinVariadic is the minimum number of variadic arguments; only
	// meaningful when Variadic is set.
	MinVariadic int
	Impl        func(args []value.Value) (value.Value, error)
}

// Registry maps function names to their specs.
type Registry struct {
	specs map[string]*Spec
}

// New returns a Registry holding the complete standard library.
func New() *Registry {
	r := &Registry{specs: make(map[string]*Spec)}
	registerCollection(r)
	registerNumeric(r)
	registerString(r)
	registerEncoding(r)
	registerCIDR(r)
	return r
}

func (r *Registry) register(s *Spec) {
	if _, dup := r.specs[s.Name]; dup {
		panic("funcs: duplicate registration of " + s.Name)
	}
	r.specs[s.Name] = s
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns all registered function names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for n := range r.specs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Call invokes the named function. Any Unknown argument short-circuits to
// Unknown after arity and kind checking, so a call that will fail on
// kinds fails even while its inputs are still unresolved.
func (r *Registry) Call(name string, args []value.Value) (value.Value, error) {
	s, ok := r.specs[name]
	if !ok {
		return value.Value{}, diag.UndefinedSymbolError{Symbol: name, Referrer: "function call"}
	}

	if err := s.checkArity(len(args)); err != nil {
		return value.Value{}, err
	}
	unknown := false
	for i, arg := range args {
		p := s.paramAt(i)
		if arg.IsUnknown() {
			unknown = true
			continue
		}
		if err := checkParam(s.Name, i, p, arg); err != nil {
			return value.Value{}, err
		}
	}
	if unknown {
		return value.Unknown, nil
	}
	return s.Impl(args)
}

func (s *Spec) paramAt(i int) Param {
	if i < len(s.Params) {
		return s.Params[i]
	}
	i -= len(s.Params)
	if i < len(s.Optional) {
		return s.Optional[i]
	}
	return *s.Variadic
}

func (s *Spec) checkArity(got int) error {
	min := len(s.Params)
	if s.Variadic != nil {
		min += s.MinVariadic
		if got < min {
			return diag.ArityError{Func: s.Name, Want: fmt.Sprintf("at least %d", min), Got: got}
		}
		return nil
	}
	max := min + len(s.Optional)
	if got >= min && got <= max {
		return nil
	}
	want := fmt.Sprintf("%d", min)
	if max > min {
		want = fmt.Sprintf("%d to %d", min, max)
	}
	return diag.ArityError{Func: s.Name, Want: want, Got: got}
}

func checkParam(fn string, i int, p Param, arg value.Value) error {
	if len(p.Kinds) == 0 {
		return nil
	}
	for _, k := range p.Kinds {
		if arg.Kind() == k {
			return nil
		}
	}
	return diag.TypeError{
		Subject: fn,
		ArgPos:  i + 1,
		Want:    kindList(p.Kinds),
		Got:     arg.Kind().String(),
	}
}

func kindList(kinds []value.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, " or ")
}
