// Copyright (c) 2025 Vladyslav Kazantsev
// SPDX-License-Identifier: MIT
//
// This file defines the Config structure, the root container for all
// declarations loaded from a user's workspace.
//
// Why validate here instead of in the front end?
//
// Duplicate names and dangling depends_on targets are properties of the
// assembled workspace, not of any single file. A front end sees one file
// at a time; Config sees the merged whole, so workspace-wide checks live
// on it. Validation collects every problem it finds rather than stopping
// at the first, because a user fixing a configuration wants the full list.
package schema

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/diag"
)

// Config is the complete set of declarations for one evaluation run,
// in declaration order.
type Config struct {
	Variables []*Variable
	Locals    []*Local
	Resources []*Resource
	Outputs   []*Output
}

// ResourceByAddr returns the resource declared at resource.<type>.<name>.
func (c *Config) ResourceByAddr(p addr.Path) (*Resource, bool) {
	for _, r := range c.Resources {
		if r.Addr().Equal(p) {
			return r, true
		}
	}
	return nil, false
}

// VariableByName returns the variable declaration with the given name.
func (c *Config) VariableByName(name string) (*Variable, bool) {
	for _, v := range c.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Validate performs workspace-wide structural checks and returns every
// problem found, aggregated.
func (c *Config) Validate() error {
	var result *multierror.Error

	seen := make(map[string]bool)
	claim := func(address string) {
		if seen[address] {
			result = multierror.Append(result, diag.ValidationError{
				Subject: address,
				Message: "declared more than once",
			})
		}
		seen[address] = true
	}

	for _, v := range c.Variables {
		claim("var." + v.Name)
		for i, rule := range v.Validations {
			if rule.Condition == nil {
				result = multierror.Append(result, diag.ValidationError{
					Subject: "var." + v.Name,
					Message: fmt.Sprintf("validation %d has no condition", i+1),
				})
			}
		}
	}
	for _, l := range c.Locals {
		claim("local." + l.Name)
		if l.Expr == nil {
			result = multierror.Append(result, diag.ValidationError{
				Subject: "local." + l.Name,
				Message: "has no expression",
			})
		}
	}
	for _, o := range c.Outputs {
		claim("output." + o.Name)
		if o.Expr == nil {
			result = multierror.Append(result, diag.ValidationError{
				Subject: "output." + o.Name,
				Message: "has no expression",
			})
		}
	}
	for _, r := range c.Resources {
		claim(r.Addr().String())
		for _, dep := range r.DependsOn {
			if dep.Root() != addr.RootResource {
				result = multierror.Append(result, diag.ValidationError{
					Subject: r.Addr().String(),
					Message: fmt.Sprintf("depends_on %q: only resources can be depended on", dep),
				})
				continue
			}
			if _, ok := c.ResourceByAddr(dep); !ok {
				result = multierror.Append(result, diag.ValidationError{
					Subject: r.Addr().String(),
					Message: fmt.Sprintf("depends_on %q: no such resource", dep),
				})
			}
		}
	}

	return result.ErrorOrNil()
}
