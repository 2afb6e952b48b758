// This file translates decoded blocks into the format-agnostic
// configuration model. Each translator owns the rules for its block kind:
// which attributes are meta-arguments, what must stay an unevaluated
// expression, and what is resolved right here at load time.

package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/schema"
)

// appendFile decodes one parsed file body and appends its declarations to
// the configuration, preserving source order within each block kind.
func appendFile(cfg *schema.Config, filename string, body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("decoding %s: %w", filename, diags)
	}

	for _, vb := range root.Variables {
		v, err := translateVariable(vb)
		if err != nil {
			return err
		}
		cfg.Variables = append(cfg.Variables, v)
	}
	for _, lb := range root.Locals {
		locals, err := translateLocals(lb)
		if err != nil {
			return err
		}
		cfg.Locals = append(cfg.Locals, locals...)
	}
	for _, rb := range root.Resources {
		r, err := translateResource(rb)
		if err != nil {
			return err
		}
		cfg.Resources = append(cfg.Resources, r)
	}
	for _, ob := range root.Outputs {
		o, err := translateOutput(ob)
		if err != nil {
			return err
		}
		cfg.Outputs = append(cfg.Outputs, o)
	}
	return nil
}

func translateVariable(b *variableBlock) (*schema.Variable, error) {
	subject := addr.RootVar + "." + b.Name

	cons, err := typeConstraint(b.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid type: %w", subject, err)
	}

	v := &schema.Variable{
		Name:        b.Name,
		Description: b.Description,
		Type:        cons,
		Sensitive:   b.Sensitive,
	}

	if exprDefined(b.Default) {
		if v.Default, err = translateExpr(b.Default); err != nil {
			return nil, fmt.Errorf("%s: invalid default: %w", subject, err)
		}
	}

	for i, rule := range b.Validations {
		cond, err := translateExpr(rule.Condition)
		if err != nil {
			return nil, fmt.Errorf("%s: validation %d: %w", subject, i+1, err)
		}
		v.Validations = append(v.Validations, schema.Validation{
			Condition: cond,
			Message:   rule.ErrorMessage,
		})
	}
	return v, nil
}

func translateLocals(b *localsBlock) ([]*schema.Local, error) {
	attrs, err := sortedAttributes(b.Body)
	if err != nil {
		return nil, fmt.Errorf("locals block: %w", err)
	}

	locals := make([]*schema.Local, 0, len(attrs))
	for _, attr := range attrs {
		expr, err := translateExpr(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", addr.RootLocal, attr.Name, err)
		}
		locals = append(locals, &schema.Local{Name: attr.Name, Expr: expr})
	}
	return locals, nil
}

func translateResource(b *resourceBlock) (*schema.Resource, error) {
	subject := fmt.Sprintf("%s.%s.%s", addr.RootResource, b.Type, b.Name)

	// Resource bodies mix free-form arguments with meta-arguments, which
	// the generic decoders cannot separate, so this works on the syntax
	// body directly.
	body, ok := b.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported body type %T", subject, b.Body)
	}

	r := &schema.Resource{Type: b.Type, Name: b.Name, Args: schema.NewArgMap()}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	for _, attr := range attrs {
		switch attr.Name {
		case "count", "for_each":
			if r.Multiplicity != nil {
				return nil, diag.ValidationError{Subject: subject, Message: "count and for_each are mutually exclusive"}
			}
			expr, err := translateExpr(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", subject, attr.Name, err)
			}
			mode := schema.MultCount
			if attr.Name == "for_each" {
				mode = schema.MultForEach
			}
			r.Multiplicity = &schema.Multiplicity{Mode: mode, Expr: expr}

		case "depends_on":
			refs, err := dependsOnRefs(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", subject, err)
			}
			r.DependsOn = refs

		default:
			expr, err := translateExpr(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", subject, attr.Name, err)
			}
			r.Args.Set(attr.Name, expr)
		}
	}

	sawLifecycle := false
	for _, block := range body.Blocks {
		if block.Type != "lifecycle" {
			return nil, diag.ValidationError{Subject: subject, Message: fmt.Sprintf("unexpected %q block", block.Type)}
		}
		if sawLifecycle {
			return nil, diag.ValidationError{Subject: subject, Message: "at most one lifecycle block is allowed"}
		}
		sawLifecycle = true

		lc, err := translateLifecycle(block.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", subject, err)
		}
		r.Lifecycle = lc
	}
	return r, nil
}

func translateOutput(b *outputBlock) (*schema.Output, error) {
	subject := addr.RootOutput + "." + b.Name

	expr, err := translateExpr(b.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", subject, err)
	}
	return &schema.Output{
		Name:        b.Name,
		Description: b.Description,
		Expr:        expr,
		Sensitive:   b.Sensitive,
	}, nil
}

func translateLifecycle(body hcl.Body) (schema.Lifecycle, error) {
	var raw lifecycleBlock
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return schema.Lifecycle{}, fmt.Errorf("lifecycle: %w", diags)
	}

	lc := schema.Lifecycle{
		PreventDestroy:      raw.PreventDestroy,
		CreateBeforeDestroy: raw.CreateBeforeDestroy,
	}
	if exprDefined(raw.IgnoreChanges) {
		names, err := attributeNameList(raw.IgnoreChanges)
		if err != nil {
			return schema.Lifecycle{}, fmt.Errorf("lifecycle: ignore_changes: %w", err)
		}
		lc.IgnoreChanges = names
	}
	return lc, nil
}

// dependsOnRefs parses the depends_on list. Entries must be bare
// declaration references, written without quotes and without instance
// keys; existence is checked later against the whole workspace.
func dependsOnRefs(expr hcl.Expression) ([]addr.Path, error) {
	exprs, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("depends_on must be a list of references")
	}

	refs := make([]addr.Path, 0, len(exprs))
	for _, e := range exprs {
		trav, diags := hcl.AbsTraversalForExpr(e)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: depends_on entries must be static references", srcRange(e.Range()))
		}
		p, err := traversalToPath(trav)
		if err != nil {
			return nil, err
		}
		for _, step := range p.Steps {
			if step.Key != nil {
				return nil, fmt.Errorf("depends_on %s: must reference a whole declaration, not an instance", p)
			}
		}
		refs = append(refs, p)
	}
	return refs, nil
}

// attributeNameList accepts a list of bare attribute names or quoted
// strings and returns the names.
func attributeNameList(expr hcl.Expression) ([]string, error) {
	exprs, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("expected a list of attribute names")
	}

	names := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if kw := hcl.ExprAsKeyword(e); kw != "" {
			names = append(names, kw)
			continue
		}
		v, diags := e.Value(nil)
		if diags.HasErrors() || v.Type() != cty.String {
			return nil, fmt.Errorf("%s: expected an attribute name", srcRange(e.Range()))
		}
		names = append(names, v.AsString())
	}
	return names, nil
}

// sortedAttributes flattens a body into its attributes, ordered by source
// position. JustAttributes returns a map, and Go map iteration would
// shuffle declaration order on every run.
func sortedAttributes(body hcl.Body) ([]*hcl.Attribute, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	list := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		ri, rj := list[i].Range, list[j].Range
		if ri.Filename != rj.Filename {
			return ri.Filename < rj.Filename
		}
		return ri.Start.Byte < rj.Start.Byte
	})
	return list, nil
}
