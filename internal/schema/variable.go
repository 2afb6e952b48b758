// Copyright (c) 2025 Vladyslav Kazantsev
// SPDX-License-Identifier: MIT
//
// This file models variable declarations: the typed inputs of a run.
//
// Why keep the default as an expression?
//
// A default may reference functions ("cidrsubnet(...)") or be a structural
// literal, so it is stored unevaluated and goes through the same evaluator
// as everything else. Supplied values, by contrast, arrive from outside the
// language (var files, --var flags) as finished values. The two meet in the
// graph: supplied wins, then the default, then the variable is an error.
package schema

import (
	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/value"
)

// Variable is one "variable" block.
type Variable struct {
	Name        string
	Description string
	Type        value.Constraint // zero Constraint accepts anything
	Default     ast.Node         // nil when the variable is required
	Sensitive   bool
	Validations []Validation
}

// Validation is one custom rule attached to a variable. Condition is
// evaluated with the variable's final value in scope; when it yields
// false the run fails with Message.
type Validation struct {
	Condition ast.Node
	Message   string
}
