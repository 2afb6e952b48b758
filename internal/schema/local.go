// Copyright (c) 2025 Vladyslav Kazantsev
// SPDX-License-Identifier: MIT
//
// This file models local value declarations.
package schema

import "github.com/specialistvlad/terrane/internal/ast"

// Local is one named expression from a "locals" block. Each name becomes
// its own graph node, so locals within one block may depend on each other
// and evaluate in dependency order, not in file order.
type Local struct {
	Name string
	Expr ast.Node
}
