// Package ast defines the expression tree evaluated by internal/eval.
// The node set is closed: front ends (HCL today) desugar richer surface
// syntax — template directives, legacy splats — into these variants, so
// the evaluator and the reference analyzer only ever see this package.
package ast

import (
	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/value"
)

// Node is one expression tree node. SrcRange returns a human-readable
// source position ("main.tf:12,3") or "" when the node was built
// programmatically.
type Node interface {
	SrcRange() string
	node()
}

type withRange struct {
	Rng string
}

func (w withRange) SrcRange() string { return w.Rng }

// Literal is a constant value.
type Literal struct {
	withRange
	Val value.Value
}

// SymbolRef is a reference to a symbol path such as var.region or
// resource.vm.web.ip.
type SymbolRef struct {
	withRange
	Path addr.Path
}

// AnonRef is the per-element hole inside a Splat's Each tree. It has no
// meaning outside a Splat.
type AnonRef struct {
	withRange
}

// Index is coll[key].
type Index struct {
	withRange
	Coll Node
	Key  Node
}

// Attr is source.name on an Object value.
type Attr struct {
	withRange
	Source Node
	Name   string
}

// Call is a function call by name with positional arguments.
type Call struct {
	withRange
	Name string
	Args []Node
}

// Conditional is cond ? t : f.
type Conditional struct {
	withRange
	Cond  Node
	True  Node
	False Node
}

// Op names a unary or binary operator by its surface token.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpMod Op = "%"

	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="

	OpAnd Op = "&&"
	OpOr  Op = "||"
	OpNot Op = "!"
	OpNeg Op = "u-"
)

// BinaryOp applies Op to two operands.
type BinaryOp struct {
	withRange
	Op  Op
	LHS Node
	RHS Node
}

// UnaryOp applies OpNot or OpNeg to a single operand.
type UnaryOp struct {
	withRange
	Op      Op
	Operand Node
}

// ForExpr is a for-expression over a collection.
//
//	[for v in coll : expr if cond]          KeyVar="", KeyExpr=nil
//	[for k, v in coll : expr]               KeyVar="k"
//	{for k, v in coll : kexpr => vexpr}     KeyExpr=kexpr (object form)
//	{for k, v in coll : kexpr => vexpr...}  Group=true (values grouped)
type ForExpr struct {
	withRange
	KeyVar  string // "" when only the value variable is bound
	ValVar  string
	Coll    Node
	KeyExpr Node // nil for the list/tuple form
	ValExpr Node
	Cond    Node // nil when there is no filter
	Group   bool
}

// Splat is source[*].attr...: Each is evaluated once per element of
// Source with AnonRef bound to the element.
type Splat struct {
	withRange
	Source Node
	Each   Node
}

// Template is a string interpolation: Parts alternate Literal string
// segments and arbitrary expressions. A single-expression template is
// not wrapped: the front end hands over the expression itself.
type Template struct {
	withRange
	Parts []Node
}

// TupleCons constructs a List from element expressions.
type TupleCons struct {
	withRange
	Items []Node
}

// ObjectCons constructs an Object from parallel key and value
// expressions. Keys are usually Literal strings but may be computed.
type ObjectCons struct {
	withRange
	Keys   []Node
	Values []Node
}

func (*Literal) node()     {}
func (*SymbolRef) node()   {}
func (*AnonRef) node()     {}
func (*Index) node()       {}
func (*Attr) node()        {}
func (*Call) node()        {}
func (*Conditional) node() {}
func (*BinaryOp) node()    {}
func (*UnaryOp) node()     {}
func (*ForExpr) node()     {}
func (*Splat) node()       {}
func (*Template) node()    {}
func (*TupleCons) node()   {}
func (*ObjectCons) node()  {}
