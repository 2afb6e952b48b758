// Package refs is the static reference analyzer: it walks expression
// trees without evaluating anything and reports which symbols they
// mention. The graph builder derives its dependency edges entirely from
// this package, which is why evaluation order never depends on file
// order.
package refs

import (
	"sort"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ast"
)

// Extract returns every symbol path referenced by n that is not bound by
// an enclosing for-expression variable or splat hole. The result is
// deduplicated and sorted for deterministic output.
//
// The analysis is a deliberate over-approximation: both branches of a
// conditional contribute, and a reference inside a filtered-out
// for-expression body still counts. Extract answers "what could this
// expression read", not "what will it read".
func Extract(n ast.Node) []addr.Path {
	byKey := make(map[string]addr.Path)
	collect(n, map[string]bool{}, byKey)

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]addr.Path, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

// ExtractDecls returns the declaration addresses n depends on: Extract
// truncated to declaration prefixes, dropping instance-local symbols
// (count.index, each.key, each.value) that resolve inside the referring
// node rather than through the graph.
func ExtractDecls(n ast.Node) []addr.Path {
	byKey := make(map[string]addr.Path)
	for _, p := range Extract(n) {
		if decl, ok := p.DeclAddr(); ok {
			byKey[decl.String()] = decl
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]addr.Path, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

func collect(n ast.Node, bound map[string]bool, byKey map[string]addr.Path) {
	switch x := n.(type) {
	case nil:
		return
	case *ast.SymbolRef:
		if !bound[x.Path.Root()] {
			byKey[x.Path.String()] = x.Path
		}
	case *ast.AnonRef:
		// Always bound by the enclosing splat.
	case *ast.Index:
		collect(x.Coll, bound, byKey)
		collect(x.Key, bound, byKey)
	case *ast.Attr:
		collect(x.Source, bound, byKey)
	case *ast.Call:
		for _, a := range x.Args {
			collect(a, bound, byKey)
		}
	case *ast.Conditional:
		collect(x.Cond, bound, byKey)
		collect(x.True, bound, byKey)
		collect(x.False, bound, byKey)
	case *ast.BinaryOp:
		collect(x.LHS, bound, byKey)
		collect(x.RHS, bound, byKey)
	case *ast.UnaryOp:
		collect(x.Operand, bound, byKey)
	case *ast.ForExpr:
		// The collection is evaluated in the outer scope; the body and
		// filter see the iteration variables.
		collect(x.Coll, bound, byKey)
		inner := bound
		if x.KeyVar != "" || x.ValVar != "" {
			inner = make(map[string]bool, len(bound)+2)
			for k := range bound {
				inner[k] = true
			}
			if x.KeyVar != "" {
				inner[x.KeyVar] = true
			}
			inner[x.ValVar] = true
		}
		collect(x.KeyExpr, inner, byKey)
		collect(x.ValExpr, inner, byKey)
		collect(x.Cond, inner, byKey)
	case *ast.Splat:
		collect(x.Source, bound, byKey)
		collect(x.Each, bound, byKey)
	case *ast.Template:
		for _, p := range x.Parts {
			collect(p, bound, byKey)
		}
	case *ast.TupleCons:
		for _, it := range x.Items {
			collect(it, bound, byKey)
		}
	case *ast.ObjectCons:
		for _, k := range x.Keys {
			collect(k, bound, byKey)
		}
		for _, v := range x.Values {
			collect(v, bound, byKey)
		}
	}
}
