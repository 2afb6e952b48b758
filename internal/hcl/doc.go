// Package hcl is the HCL front end: it discovers and parses workspace
// files, decodes the block grammar (variable, locals, resource, output),
// and translates HCL expressions into the evaluator's tree so that
// nothing downstream of the loader depends on hashicorp/hcl.
package hcl
