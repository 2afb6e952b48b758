package ast

// Walk visits n and its children in pre-order. If f returns false the
// children of the current node are skipped. Scope-sensitive analyses
// (reference extraction) recurse by hand instead, because Walk knows
// nothing about iteration-variable binding.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch x := n.(type) {
	case *Index:
		Walk(x.Coll, f)
		Walk(x.Key, f)
	case *Attr:
		Walk(x.Source, f)
	case *Call:
		for _, a := range x.Args {
			Walk(a, f)
		}
	case *Conditional:
		Walk(x.Cond, f)
		Walk(x.True, f)
		Walk(x.False, f)
	case *BinaryOp:
		Walk(x.LHS, f)
		Walk(x.RHS, f)
	case *UnaryOp:
		Walk(x.Operand, f)
	case *ForExpr:
		Walk(x.Coll, f)
		Walk(x.KeyExpr, f)
		Walk(x.ValExpr, f)
		Walk(x.Cond, f)
	case *Splat:
		Walk(x.Source, f)
		Walk(x.Each, f)
	case *Template:
		for _, p := range x.Parts {
			Walk(p, f)
		}
	case *TupleCons:
		for _, it := range x.Items {
			Walk(it, f)
		}
	case *ObjectCons:
		for _, k := range x.Keys {
			Walk(k, f)
		}
		for _, v := range x.Values {
			Walk(v, f)
		}
	}
}
