// Copyright (c) 2025 Vladyslav Kazantsev
// SPDX-License-Identifier: MIT
//
// This file models resource declarations, the central objects of a
// configuration.
//
// Why an ordered argument map?
//
// Argument order never affects evaluation (dependencies do), but it is the
// order users wrote and therefore the order error messages, rendered plans
// and tests should see. A plain Go map would shuffle it on every run, so
// ArgMap remembers insertion order next to the lookup index.
package schema

import (
	"fmt"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ast"
)

// Resource is one "resource" block: a desired-state object of a given
// type, identified by resource.<type>.<name>.
type Resource struct {
	Type string
	Name string
	Args *ArgMap

	// Multiplicity is nil for a singleton resource, otherwise the count
	// or for_each setting that expands it into instances.
	Multiplicity *Multiplicity

	// DependsOn lists explicit dependency edges beyond the ones the
	// reference analyzer finds in Args.
	DependsOn []addr.Path

	Lifecycle Lifecycle
}

// Addr returns the declaration address resource.<type>.<name>.
func (r *Resource) Addr() addr.Path {
	return addr.MakePath(addr.RootResource, r.Type, r.Name)
}

// MultiplicityMode distinguishes count from for_each.
type MultiplicityMode int

const (
	MultCount MultiplicityMode = iota + 1
	MultForEach
)

func (m MultiplicityMode) String() string {
	switch m {
	case MultCount:
		return "count"
	case MultForEach:
		return "for_each"
	default:
		return fmt.Sprintf("MultiplicityMode(%d)", int(m))
	}
}

// Multiplicity is a resource's count or for_each argument, unevaluated.
type Multiplicity struct {
	Mode MultiplicityMode
	Expr ast.Node
}

// Lifecycle carries the lifecycle meta-arguments of a resource.
type Lifecycle struct {
	PreventDestroy      bool
	CreateBeforeDestroy bool
	IgnoreChanges       []string
}

// ArgMap is an insertion-ordered map of argument name to expression.
type ArgMap struct {
	names []string
	exprs map[string]ast.Node
}

// NewArgMap returns an empty ArgMap.
func NewArgMap() *ArgMap {
	return &ArgMap{exprs: make(map[string]ast.Node)}
}

// Set stores expr under name. A repeated name keeps its first position
// and takes the new expression.
func (m *ArgMap) Set(name string, expr ast.Node) {
	if _, ok := m.exprs[name]; !ok {
		m.names = append(m.names, name)
	}
	m.exprs[name] = expr
}

// Get returns the expression stored under name.
func (m *ArgMap) Get(name string) (ast.Node, bool) {
	e, ok := m.exprs[name]
	return e, ok
}

// Names returns the argument names in insertion order.
func (m *ArgMap) Names() []string {
	cp := make([]string, len(m.names))
	copy(cp, m.names)
	return cp
}

// Len returns the number of arguments.
func (m *ArgMap) Len() int { return len(m.names) }
