package hcl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/hcl"
	"github.com/specialistvlad/terrane/internal/schema"
	"github.com/specialistvlad/terrane/internal/value"
)

func loadOne(t *testing.T, src string) *schema.Config {
	t.Helper()
	cfg, err := hcl.NewLoader().LoadSources(context.Background(), map[string][]byte{
		"main.hcl": []byte(src),
	})
	require.NoError(t, err)
	return cfg
}

// localExprs loads a source containing a single locals block and returns
// the translated expression for each name.
func localExprs(t *testing.T, src string) map[string]ast.Node {
	t.Helper()
	cfg := loadOne(t, src)
	exprs := make(map[string]ast.Node, len(cfg.Locals))
	for _, l := range cfg.Locals {
		exprs[l.Name] = l.Expr
	}
	return exprs
}

func TestLoadSources_Declarations(t *testing.T) {
	cfg := loadOne(t, `
variable "region" {
  type        = string
  description = "deployment region"
  default     = "eu-west-1"

  validation {
    condition     = var.region != ""
    error_message = "region must not be empty"
  }
}

locals {
  upper_region = upper(var.region)
  name         = "app-${var.region}"
}

resource "network" "main" {
  cidr = "10.0.0.0/16"
}

resource "server" "web" {
  count      = 3
  name       = "web-${count.index}"
  subnet     = cidrsubnet(resource.network.main.cidr, 8, count.index)
  depends_on = [resource.network.main]

  lifecycle {
    prevent_destroy = true
    ignore_changes  = [subnet]
  }
}

output "first" {
  value     = resource.server.web[0].name
  sensitive = true
}
`)

	require.Len(t, cfg.Variables, 1)
	v := cfg.Variables[0]
	assert.Equal(t, "region", v.Name)
	assert.Equal(t, "deployment region", v.Description)
	assert.Equal(t, "string", v.Type.String())
	require.NotNil(t, v.Default)
	def, ok := v.Default.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", def.Val.AsString())
	require.Len(t, v.Validations, 1)
	assert.Equal(t, "region must not be empty", v.Validations[0].Message)

	require.Len(t, cfg.Locals, 2)
	assert.Equal(t, "upper_region", cfg.Locals[0].Name)
	assert.Equal(t, "name", cfg.Locals[1].Name)

	require.Len(t, cfg.Resources, 2)
	web := cfg.Resources[1]
	assert.Equal(t, "server", web.Type)
	assert.Equal(t, "web", web.Name)
	require.NotNil(t, web.Multiplicity)
	assert.Equal(t, schema.MultCount, web.Multiplicity.Mode)
	assert.Equal(t, []string{"name", "subnet"}, web.Args.Names())
	require.Len(t, web.DependsOn, 1)
	assert.Equal(t, "resource.network.main", web.DependsOn[0].String())
	assert.True(t, web.Lifecycle.PreventDestroy)
	assert.Equal(t, []string{"subnet"}, web.Lifecycle.IgnoreChanges)

	require.Len(t, cfg.Outputs, 1)
	out := cfg.Outputs[0]
	assert.True(t, out.Sensitive)
	ref, ok := out.Expr.(*ast.SymbolRef)
	require.True(t, ok)
	assert.Equal(t, "resource.server.web[0].name", ref.Path.String())
}

func TestTranslate_ExpressionForms(t *testing.T) {
	exprs := localExprs(t, `
locals {
  tpl    = "a-${var.x}-b"
  unwrap = "${var.x}"
  cond   = var.n > 1 ? "big" : "small"
  arith  = (1 + 2) * 3
  neg    = !var.b
  list   = [1, 2, 3]
  obj    = { name = "x", "quoted key" = 1 }
  broken = var.items[local.i]
  call   = max(1, 2)
  splat  = var.objs[*].id
  forl   = [for v in var.list : v * 2 if v > 0]
  form   = { for k, v in var.map : k => v }
  grp    = { for s in var.names : s => s... }
  dir    = "%{ for s in var.names }${s},%{ endfor }"
  rel    = jsondecode(var.js).items
  frac   = 0.1
}
`)

	tpl, ok := exprs["tpl"].(*ast.Template)
	require.True(t, ok)
	assert.Len(t, tpl.Parts, 3)

	_, ok = exprs["unwrap"].(*ast.SymbolRef)
	assert.True(t, ok, "single interpolation should hand over the inner expression")

	cond, ok := exprs["cond"].(*ast.Conditional)
	require.True(t, ok)
	gt, ok := cond.Cond.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ast.OpGt, gt.Op)

	mul, ok := exprs["arith"].(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)
	add, ok := mul.LHS.(*ast.BinaryOp)
	require.True(t, ok, "parentheses should dissolve into tree shape")
	assert.Equal(t, ast.OpAdd, add.Op)

	not, ok := exprs["neg"].(*ast.UnaryOp)
	require.True(t, ok)
	assert.Equal(t, ast.OpNot, not.Op)

	list, ok := exprs["list"].(*ast.TupleCons)
	require.True(t, ok)
	assert.Len(t, list.Items, 3)

	obj, ok := exprs["obj"].(*ast.ObjectCons)
	require.True(t, ok)
	require.Len(t, obj.Keys, 2)
	k0, ok := obj.Keys[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "name", k0.Val.AsString())
	k1, ok := obj.Keys[1].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "quoted key", k1.Val.AsString())

	idx, ok := exprs["broken"].(*ast.Index)
	require.True(t, ok, "computed key cannot fold into the traversal")
	coll, ok := idx.Coll.(*ast.SymbolRef)
	require.True(t, ok)
	assert.Equal(t, "var.items", coll.Path.String())

	call, ok := exprs["call"].(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "max", call.Name)
	assert.Len(t, call.Args, 2)

	splat, ok := exprs["splat"].(*ast.Splat)
	require.True(t, ok)
	attr, ok := splat.Each.(*ast.Attr)
	require.True(t, ok)
	assert.Equal(t, "id", attr.Name)
	_, ok = attr.Source.(*ast.AnonRef)
	assert.True(t, ok)

	forl, ok := exprs["forl"].(*ast.ForExpr)
	require.True(t, ok)
	assert.Equal(t, "", forl.KeyVar)
	assert.Equal(t, "v", forl.ValVar)
	assert.Nil(t, forl.KeyExpr)
	assert.NotNil(t, forl.Cond)
	assert.False(t, forl.Group)

	form, ok := exprs["form"].(*ast.ForExpr)
	require.True(t, ok)
	assert.Equal(t, "k", form.KeyVar)
	assert.NotNil(t, form.KeyExpr)
	assert.False(t, form.Group)

	grp, ok := exprs["grp"].(*ast.ForExpr)
	require.True(t, ok)
	assert.True(t, grp.Group)

	dir, ok := exprs["dir"].(*ast.Call)
	require.True(t, ok, "template for-directive should desugar to join()")
	assert.Equal(t, "join", dir.Name)
	require.Len(t, dir.Args, 2)
	_, ok = dir.Args[1].(*ast.ForExpr)
	assert.True(t, ok)

	rel, ok := exprs["rel"].(*ast.Attr)
	require.True(t, ok)
	assert.Equal(t, "items", rel.Name)
	_, ok = rel.Source.(*ast.Call)
	assert.True(t, ok)

	frac, ok := exprs["frac"].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "0.1", value.NumberText(frac.Val))
}

func TestTranslate_TypeConstraints(t *testing.T) {
	cfg := loadOne(t, `
variable "tags" {
  type = map(string)
}

variable "ports" {
  type = list(number)
}

variable "spec" {
  type = object({ name = string, replicas = number })
}

variable "anything" {}
`)

	byName := make(map[string]*schema.Variable)
	for _, v := range cfg.Variables {
		byName[v.Name] = v
	}

	assert.Equal(t, "map(string)", byName["tags"].Type.String())
	assert.Equal(t, "list(number)", byName["ports"].Type.String())
	assert.True(t, byName["anything"].Type.IsAny())

	spec := byName["spec"].Type
	conformed, err := spec.Conform(value.ObjectVal(
		value.Pair{Key: "name", Val: value.StringVal("db")},
		value.Pair{Key: "replicas", Val: value.StringVal("3")},
	))
	require.NoError(t, err)
	replicas, ok := conformed.Field("replicas")
	require.True(t, ok)
	assert.Equal(t, value.KindNumber, replicas.Kind())
}

func TestTranslate_SourceRanges(t *testing.T) {
	exprs := localExprs(t, `locals {
  a = var.x
}
`)
	require.Contains(t, exprs, "a")
	assert.Equal(t, "main.hcl:2,7", exprs["a"].SrcRange())
}

func TestLoadSources_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		errLike string
	}{
		{
			name:    "unknown top-level block",
			src:     `widget "x" {}`,
			errLike: "widget",
		},
		{
			name:    "unknown reference namespace",
			src:     `locals { a = vars.x }`,
			errLike: `undefined symbol "vars"`,
		},
		{
			name: "count and for_each together",
			src: `resource "server" "web" {
  count    = 1
  for_each = { a = 1 }
}`,
			errLike: "mutually exclusive",
		},
		{
			name: "instance key in depends_on",
			src: `resource "server" "web" {
  depends_on = [resource.server.db[0]]
}

resource "server" "db" { count = 2 }`,
			errLike: "whole declaration",
		},
		{
			name:    "fractional index",
			src:     `locals { a = var.l[1.5] }`,
			errLike: "integer required",
		},
		{
			name: "unknown type keyword",
			src: `variable "x" {
  type = strin
}`,
			errLike: `unknown primitive type "strin"`,
		},
		{
			name: "nested block in resource",
			src: `resource "server" "web" {
  settings {}
}`,
			errLike: `unexpected "settings" block`,
		},
		{
			name: "two lifecycle blocks",
			src: `resource "server" "web" {
  lifecycle {}
  lifecycle {}
}`,
			errLike: "at most one lifecycle",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := hcl.NewLoader().LoadSources(context.Background(), map[string][]byte{
				"main.hcl": []byte(tc.src),
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errLike)
		})
	}
}

func TestLoadSources_DuplicateAcrossFiles(t *testing.T) {
	_, err := hcl.NewLoader().LoadSources(context.Background(), map[string][]byte{
		"a.hcl": []byte(`locals { region = "eu" }`),
		"b.hcl": []byte(`locals { region = "us" }`),
	})
	require.Error(t, err)

	var verr diag.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "local.region", verr.Subject)
	assert.Contains(t, verr.Message, "more than once")
}
