// This file translates hclsyntax expression trees into the evaluator's
// own tree. Surface syntax with no counterpart there is desugared:
// template for-directives become join() calls, parentheses disappear,
// and a one-part template hands over its inner expression unchanged,
// which is also how hclsyntax itself evaluates `"${x}"`.

package hcl

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

// knownRoots are the reference namespaces the evaluator understands.
// Anything else at the root of a traversal is a typo, caught here rather
// than left to dangle until evaluation.
var knownRoots = map[string]bool{
	addr.RootVar:      true,
	addr.RootLocal:    true,
	addr.RootResource: true,
	addr.RootOutput:   true,
	addr.RootCount:    true,
	addr.RootEach:     true,
}

var binOps = map[*hclsyntax.Operation]ast.Op{
	hclsyntax.OpAdd:                ast.OpAdd,
	hclsyntax.OpSubtract:           ast.OpSub,
	hclsyntax.OpMultiply:           ast.OpMul,
	hclsyntax.OpDivide:             ast.OpDiv,
	hclsyntax.OpModulo:             ast.OpMod,
	hclsyntax.OpEqual:              ast.OpEq,
	hclsyntax.OpNotEqual:           ast.OpNeq,
	hclsyntax.OpLessThan:           ast.OpLt,
	hclsyntax.OpLessThanOrEqual:    ast.OpLte,
	hclsyntax.OpGreaterThan:        ast.OpGt,
	hclsyntax.OpGreaterThanOrEqual: ast.OpGte,
	hclsyntax.OpLogicalAnd:         ast.OpAnd,
	hclsyntax.OpLogicalOr:          ast.OpOr,
}

var unaryOps = map[*hclsyntax.Operation]ast.Op{
	hclsyntax.OpLogicalNot: ast.OpNot,
	hclsyntax.OpNegate:     ast.OpNeg,
}

// exprTranslator carries the set of identifiers bound by enclosing
// for-expressions, so that `x` in `[for x in coll : x]` is recognized as
// an iteration variable and not rejected as an unknown namespace.
type exprTranslator struct {
	bound map[string]int
}

func newExprTranslator() *exprTranslator {
	return &exprTranslator{bound: make(map[string]int)}
}

// translateExpr is the entry point used by the block translators.
func translateExpr(expr hcl.Expression) (ast.Node, error) {
	return newExprTranslator().expr(expr)
}

func (tr *exprTranslator) push(names ...string) {
	for _, n := range names {
		if n != "" {
			tr.bound[n]++
		}
	}
}

func (tr *exprTranslator) pop(names ...string) {
	for _, n := range names {
		if n != "" {
			tr.bound[n]--
		}
	}
}

func srcRange(r hcl.Range) string {
	return fmt.Sprintf("%s:%d,%d", r.Filename, r.Start.Line, r.Start.Column)
}

func (tr *exprTranslator) expr(expr hcl.Expression) (ast.Node, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		v, err := fromCtyValue(e.Val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", srcRange(e.Range()), err)
		}
		n := &ast.Literal{Val: v}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.TemplateExpr:
		return tr.template(e)

	case *hclsyntax.TemplateWrapExpr:
		return tr.expr(e.Wrapped)

	case *hclsyntax.TemplateJoinExpr:
		// A %{for} directive inside a template yields a tuple of rendered
		// chunks; joining on "" concatenates them back into one string.
		tuple, err := tr.expr(e.Tuple)
		if err != nil {
			return nil, err
		}
		sep := &ast.Literal{Val: value.StringVal("")}
		n := &ast.Call{Name: "join", Args: []ast.Node{sep, tuple}}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.ScopeTraversalExpr:
		return tr.scopeTraversal(e)

	case *hclsyntax.RelativeTraversalExpr:
		source, err := tr.expr(e.Source)
		if err != nil {
			return nil, err
		}
		return applyTraversal(source, e.Traversal)

	case *hclsyntax.FunctionCallExpr:
		if e.ExpandFinal {
			return nil, fmt.Errorf("%s: expansion of the final argument with ... is not supported", srcRange(e.Range()))
		}
		args := make([]ast.Node, len(e.Args))
		for i, a := range e.Args {
			n, err := tr.expr(a)
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		n := &ast.Call{Name: e.Name, Args: args}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.BinaryOpExpr:
		op, ok := binOps[e.Op]
		if !ok {
			return nil, fmt.Errorf("%s: unsupported binary operator", srcRange(e.Range()))
		}
		lhs, err := tr.expr(e.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := tr.expr(e.RHS)
		if err != nil {
			return nil, err
		}
		n := &ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.UnaryOpExpr:
		op, ok := unaryOps[e.Op]
		if !ok {
			return nil, fmt.Errorf("%s: unsupported unary operator", srcRange(e.Range()))
		}
		operand, err := tr.expr(e.Val)
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryOp{Op: op, Operand: operand}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.ConditionalExpr:
		cond, err := tr.expr(e.Condition)
		if err != nil {
			return nil, err
		}
		t, err := tr.expr(e.TrueResult)
		if err != nil {
			return nil, err
		}
		f, err := tr.expr(e.FalseResult)
		if err != nil {
			return nil, err
		}
		n := &ast.Conditional{Cond: cond, True: t, False: f}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.IndexExpr:
		coll, err := tr.expr(e.Collection)
		if err != nil {
			return nil, err
		}
		key, err := tr.expr(e.Key)
		if err != nil {
			return nil, err
		}
		n := &ast.Index{Coll: coll, Key: key}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.TupleConsExpr:
		items := make([]ast.Node, len(e.Exprs))
		for i, item := range e.Exprs {
			n, err := tr.expr(item)
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		n := &ast.TupleCons{Items: items}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.ObjectConsExpr:
		keys := make([]ast.Node, len(e.Items))
		vals := make([]ast.Node, len(e.Items))
		for i, item := range e.Items {
			k, err := tr.objectKey(item.KeyExpr)
			if err != nil {
				return nil, err
			}
			v, err := tr.expr(item.ValueExpr)
			if err != nil {
				return nil, err
			}
			keys[i], vals[i] = k, v
		}
		n := &ast.ObjectCons{Keys: keys, Values: vals}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.ObjectConsKeyExpr:
		return tr.objectKey(e)

	case *hclsyntax.ForExpr:
		return tr.forExpr(e)

	case *hclsyntax.SplatExpr:
		source, err := tr.expr(e.Source)
		if err != nil {
			return nil, err
		}
		each, err := tr.expr(e.Each)
		if err != nil {
			return nil, err
		}
		n := &ast.Splat{Source: source, Each: each}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.AnonSymbolExpr:
		n := &ast.AnonRef{}
		n.Rng = srcRange(e.Range())
		return n, nil

	case *hclsyntax.ParenthesesExpr:
		return tr.expr(e.Expression)

	default:
		return nil, fmt.Errorf("%s: unsupported expression construct %T", srcRange(expr.Range()), expr)
	}
}

// scopeTraversal turns an absolute traversal such as
// resource.server.web[0].ip into a single symbol reference, after
// checking the root namespace is one the evaluator can resolve.
func (tr *exprTranslator) scopeTraversal(e *hclsyntax.ScopeTraversalExpr) (ast.Node, error) {
	root := e.Traversal.RootName()
	if !knownRoots[root] && tr.bound[root] == 0 {
		return nil, fmt.Errorf("%s: %w", srcRange(e.Range()), diag.UndefinedSymbolError{Symbol: root})
	}
	p, err := traversalToPath(e.Traversal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", srcRange(e.Range()), err)
	}
	n := &ast.SymbolRef{Path: p}
	n.Rng = srcRange(e.Range())
	return n, nil
}

func (tr *exprTranslator) template(e *hclsyntax.TemplateExpr) (ast.Node, error) {
	if len(e.Parts) == 1 {
		return tr.expr(e.Parts[0])
	}
	parts := make([]ast.Node, len(e.Parts))
	for i, p := range e.Parts {
		n, err := tr.expr(p)
		if err != nil {
			return nil, err
		}
		parts[i] = n
	}
	n := &ast.Template{Parts: parts}
	n.Rng = srcRange(e.Range())
	return n, nil
}

// objectKey unwraps the key of an object constructor item. A naked
// identifier key means its own name, unless the source forced expression
// interpretation with (parens).
func (tr *exprTranslator) objectKey(expr hclsyntax.Expression) (ast.Node, error) {
	if key, isKey := expr.(*hclsyntax.ObjectConsKeyExpr); isKey {
		if !key.ForceNonLiteral {
			if kw := hcl.ExprAsKeyword(key.Wrapped); kw != "" {
				n := &ast.Literal{Val: value.StringVal(kw)}
				n.Rng = srcRange(key.Range())
				return n, nil
			}
		}
		return tr.expr(key.Wrapped)
	}
	return tr.expr(expr)
}

func (tr *exprTranslator) forExpr(e *hclsyntax.ForExpr) (ast.Node, error) {
	coll, err := tr.expr(e.CollExpr)
	if err != nil {
		return nil, err
	}

	tr.push(e.KeyVar, e.ValVar)
	defer tr.pop(e.KeyVar, e.ValVar)

	var keyExpr ast.Node
	if e.KeyExpr != nil {
		if keyExpr, err = tr.expr(e.KeyExpr); err != nil {
			return nil, err
		}
	}
	valExpr, err := tr.expr(e.ValExpr)
	if err != nil {
		return nil, err
	}
	var cond ast.Node
	if e.CondExpr != nil {
		if cond, err = tr.expr(e.CondExpr); err != nil {
			return nil, err
		}
	}

	n := &ast.ForExpr{
		KeyVar:  e.KeyVar,
		ValVar:  e.ValVar,
		Coll:    coll,
		KeyExpr: keyExpr,
		ValExpr: valExpr,
		Cond:    cond,
		Group:   e.Group,
	}
	n.Rng = srcRange(e.Range())
	return n, nil
}

// traversalToPath converts traversal steps into a structured path.
// Attribute steps become name steps; index steps become key steps.
func traversalToPath(t hcl.Traversal) (addr.Path, error) {
	var p addr.Path
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			p = p.Child(s.Name)
		case hcl.TraverseAttr:
			p = p.Child(s.Name)
		case hcl.TraverseIndex:
			k, err := keyFromCty(s.Key)
			if err != nil {
				return addr.Path{}, err
			}
			p = p.Index(k)
		default:
			return addr.Path{}, fmt.Errorf("unsupported traversal step %T", step)
		}
	}
	return p, nil
}

// applyTraversal chains attribute and index nodes onto an already
// translated base expression, for traversals relative to a computed value
// such as jsondecode(x).items[0].
func applyTraversal(base ast.Node, t hcl.Traversal) (ast.Node, error) {
	n := base
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			a := &ast.Attr{Source: n, Name: s.Name}
			a.Rng = srcRange(s.SrcRange)
			n = a
		case hcl.TraverseIndex:
			kv, err := fromCtyValue(s.Key)
			if err != nil {
				return nil, err
			}
			key := &ast.Literal{Val: kv}
			key.Rng = srcRange(s.SrcRange)
			idx := &ast.Index{Coll: n, Key: key}
			idx.Rng = srcRange(s.SrcRange)
			n = idx
		default:
			return nil, fmt.Errorf("unsupported traversal step %T", step)
		}
	}
	return n, nil
}

func keyFromCty(k cty.Value) (addr.Key, error) {
	switch k.Type() {
	case cty.String:
		return addr.StringKey(k.AsString()), nil
	case cty.Number:
		i, acc := k.AsBigFloat().Int64()
		if acc != big.Exact {
			return nil, diag.TypeError{Subject: "index", Want: "integer", Got: "fractional number"}
		}
		return addr.IntKey(i), nil
	default:
		return nil, diag.TypeError{Subject: "index", Want: "string or integer", Got: k.Type().FriendlyName()}
	}
}
