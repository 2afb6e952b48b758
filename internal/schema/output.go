// Copyright (c) 2025 Vladyslav Kazantsev
// SPDX-License-Identifier: MIT
//
// This file models output declarations.
package schema

import "github.com/specialistvlad/terrane/internal/ast"

// Output is one "output" block: a named value exported from the run.
// Sensitive outputs evaluate normally but render redacted.
type Output struct {
	Name        string
	Description string
	Expr        ast.Node
	Sensitive   bool
}
