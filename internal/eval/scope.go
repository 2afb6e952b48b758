package eval

import (
	"context"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/funcs"
	"github.com/specialistvlad/terrane/internal/value"
)

// Resolver looks up a reference that is not bound locally in the scope
// chain — in practice, the running graph. ResolveRef blocks until the
// referenced node has a result, so expression evaluation and scheduling
// compose without the evaluator knowing the graph exists.
type Resolver interface {
	ResolveRef(ctx context.Context, p addr.Path) (value.Value, error)
}

// Scope is an immutable chain of symbol bindings. The root scope carries
// the function registry and the Resolver; children add iteration
// variables ("k", "v"), instance symbols ("count", "each") and splat
// holes without mutating their parent, so sibling evaluations can share
// a parent scope across goroutines.
type Scope struct {
	parent   *Scope
	bindings map[string]value.Value
	anon     *value.Value
	resolver Resolver
	registry *funcs.Registry
}

// NewScope returns a root scope. Either argument may be nil: a nil
// resolver turns every graph reference into UndefinedSymbolError, and a
// nil registry turns every function call into one.
func NewScope(r Resolver, reg *funcs.Registry) *Scope {
	return &Scope{resolver: r, registry: reg}
}

// Child returns a scope extending s with the given bindings. Each
// binding shadows the whole root name: binding "count" hides every
// count.* path of the parent.
func (s *Scope) Child(bindings map[string]value.Value) *Scope {
	cp := make(map[string]value.Value, len(bindings))
	for k, v := range bindings {
		cp[k] = v
	}
	return &Scope{parent: s, bindings: cp}
}

func (s *Scope) childAnon(v value.Value) *Scope {
	return &Scope{parent: s, anon: &v}
}

func (s *Scope) lookup(name string) (value.Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.bindings[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

func (s *Scope) anonValue() (value.Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.anon != nil {
			return *sc.anon, true
		}
	}
	return value.Value{}, false
}

func (s *Scope) funcRegistry() *funcs.Registry {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.registry != nil {
			return sc.registry
		}
	}
	return nil
}

func (s *Scope) resolveRef(ctx context.Context, p addr.Path) (value.Value, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.resolver != nil {
			return sc.resolver.ResolveRef(ctx, p)
		}
	}
	return value.Value{}, diag.UndefinedSymbolError{Symbol: p.String()}
}
