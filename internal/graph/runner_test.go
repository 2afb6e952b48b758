package graph_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/schema"
	"github.com/specialistvlad/terrane/internal/value"
)

func TestRun_ValueFlow(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "region", Default: str("eu-west-1")}},
		Locals: []*schema.Local{
			localDecl("name", tmpl(str("app-"), ref("var", "region"))),
		},
		Resources: []*schema.Resource{{
			Type: "server",
			Name: "web",
			Args: argMap(arg{"name", ref("local", "name")}),
		}},
		Outputs: []*schema.Output{
			{Name: "host", Expr: ref("resource", "server", "web", "name")},
			{Name: "secret", Expr: str("hunter2"), Sensitive: true},
		},
	}

	g := build(t, cfg)
	res, err := graph.NewRunner(g, graph.Options{}).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, "resource.server.web", res.Instances[0].Addr.String())
	name, ok := res.Instances[0].Attr("name")
	require.True(t, ok)
	assert.True(t, value.Equal(value.StringVal("app-eu-west-1"), name))

	assert.True(t, value.Equal(value.StringVal("app-eu-west-1"), res.Outputs["host"].Value))
	assert.True(t, res.Outputs["secret"].Sensitive)

	n, ok := g.Node(addr.MakePath("local", "name"))
	require.True(t, ok)
	assert.Equal(t, graph.Resolved, n.State())

	// Value is the wait/notify entry point; after the run it returns
	// immediately with the cached result.
	v, err := g.Value(context.Background(), addr.MakePath("local", "name"))
	require.NoError(t, err)
	assert.True(t, value.Equal(value.StringVal("app-eu-west-1"), v))
}

func TestRun_EvaluatesEachNodeExactlyOnce(t *testing.T) {
	// A diamond plus a wide fan of independent nodes, resolved by a pool
	// of several workers.
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "a", Default: num("1")}},
		Locals: []*schema.Local{
			localDecl("b", &ast.BinaryOp{Op: ast.OpAdd, LHS: ref("var", "a"), RHS: num("1")}),
			localDecl("c", &ast.BinaryOp{Op: ast.OpMul, LHS: ref("var", "a"), RHS: num("2")}),
			localDecl("d", &ast.BinaryOp{Op: ast.OpAdd, LHS: ref("local", "b"), RHS: ref("local", "c")}),
		},
	}
	for i := 0; i < 40; i++ {
		cfg.Locals = append(cfg.Locals, localDecl(fmt.Sprintf("fan%d", i), num("7")))
	}

	res := run(t, cfg, graph.Options{Workers: 8})
	require.NoError(t, res.Err())

	for id, count := range res.Stats.Evaluations {
		assert.Equal(t, int64(1), count, "node %s", id)
	}
	assert.Equal(t, int64(44), res.Stats.Total())
}

func TestRun_CountExpansion(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "count", Default: num("3")}},
		Resources: []*schema.Resource{{
			Type:         "server",
			Name:         "web",
			Multiplicity: &schema.Multiplicity{Mode: schema.MultCount, Expr: ref("var", "count")},
			Args:         argMap(arg{"name", tmpl(str("server-"), ref("count", "index"))}),
		}},
		Outputs: []*schema.Output{{
			Name: "second",
			Expr: &ast.Attr{
				Source: &ast.Index{Coll: ref("resource", "server", "web"), Key: num("1")},
				Name:   "name",
			},
		}},
	}

	res := run(t, cfg, graph.Options{})
	require.NoError(t, res.Err())

	require.Len(t, res.Instances, 3)
	for i, want := range []string{"server-0", "server-1", "server-2"} {
		assert.Equal(t, fmt.Sprintf("resource.server.web[%d]", i), res.Instances[i].Addr.String())
		name, ok := res.Instances[i].Attr("name")
		require.True(t, ok)
		assert.True(t, value.Equal(value.StringVal(want), name), "instance %d", i)
	}

	assert.True(t, value.Equal(value.StringVal("server-1"), res.Outputs["second"].Value))
	assert.Equal(t, int64(1), res.Stats.Evaluations["resource.server.web"])
}

func TestRun_ForEachExpansion(t *testing.T) {
	src := lit(value.MapVal(
		value.Pair{Key: "web", Val: value.IntVal(2)},
		value.Pair{Key: "api", Val: value.IntVal(1)},
	))
	cfg := &schema.Config{
		Resources: []*schema.Resource{{
			Type:         "service",
			Name:         "app",
			Multiplicity: &schema.Multiplicity{Mode: schema.MultForEach, Expr: src},
			Args: argMap(
				arg{"svc", ref("each", "key")},
				arg{"replicas", ref("each", "value")},
			),
		}},
		Outputs: []*schema.Output{{
			Name: "web_replicas",
			Expr: &ast.Attr{
				Source: &ast.Index{Coll: ref("resource", "service", "app"), Key: str("web")},
				Name:   "replicas",
			},
		}},
	}

	res := run(t, cfg, graph.Options{})
	require.NoError(t, res.Err())

	require.Len(t, res.Instances, 2)
	assert.Equal(t, `resource.service.app["api"]`, res.Instances[0].Addr.String())
	assert.Equal(t, `resource.service.app["web"]`, res.Instances[1].Addr.String())

	svc, _ := res.Instances[0].Attr("svc")
	assert.True(t, value.Equal(value.StringVal("api"), svc))
	replicas, _ := res.Instances[0].Attr("replicas")
	assert.True(t, value.Equal(value.IntVal(1), replicas))

	assert.True(t, value.Equal(value.IntVal(2), res.Outputs["web_replicas"].Value))
}

func TestRun_CollectsEveryIndependentFailure(t *testing.T) {
	cfg := &schema.Config{
		Locals: []*schema.Local{
			localDecl("bad_div", &ast.BinaryOp{Op: ast.OpDiv, LHS: num("1"), RHS: num("0")}),
			localDecl("bad_attr", &ast.Attr{Source: lit(value.ObjectVal()), Name: "nope"}),
			localDecl("good", str("ok")),
		},
		Outputs: []*schema.Output{{Name: "dep", Expr: ref("local", "bad_div")}},
	}

	res := run(t, cfg, graph.Options{})

	require.Len(t, res.Failures, 2)
	var divErr diag.DivisionByZeroError
	assert.ErrorAs(t, res.Failures[0].Err, &divErr)
	var idxErr diag.IndexOutOfRangeError
	assert.ErrorAs(t, res.Failures[1].Err, &idxErr)
	assert.Equal(t, []string{"local.bad_div"}, res.Failures[0].Chain)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "output.dep", res.Skipped[0].Addr.String())
	assert.Equal(t, []string{"output.dep", "local.bad_div"}, res.Skipped[0].Chain)
	assert.ErrorAs(t, res.Skipped[0].Err, &divErr)

	// The healthy sibling still resolved; the aggregate error names both
	// root causes.
	assert.Equal(t, int64(1), res.Stats.Evaluations["local.good"])
	require.Error(t, res.Err())
	assert.ErrorAs(t, res.Err(), &divErr)
	assert.ErrorAs(t, res.Err(), &idxErr)
}

func TestRun_SkipChainReachesRootCause(t *testing.T) {
	cfg := &schema.Config{
		Locals: []*schema.Local{
			localDecl("a", &ast.BinaryOp{Op: ast.OpDiv, LHS: num("1"), RHS: num("0")}),
			localDecl("b", ref("local", "a")),
		},
		Outputs: []*schema.Output{{Name: "c", Expr: ref("local", "b")}},
	}

	g := build(t, cfg)
	res, err := graph.NewRunner(g, graph.Options{}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, []string{"local.b", "local.a"}, res.Skipped[0].Chain)
	assert.Equal(t, []string{"output.c", "local.b", "local.a"}, res.Skipped[1].Chain)

	var up graph.UpstreamError
	require.ErrorAs(t, res.Skipped[1].Err, &up)
	var divErr diag.DivisionByZeroError
	assert.ErrorAs(t, up.Err, &divErr)

	for _, id := range []string{"local.b", "output.c"} {
		n, ok := g.Node(addr.MakePath(splitID(id)...))
		require.True(t, ok)
		assert.Equal(t, graph.Skipped, n.State())
		assert.Equal(t, int64(0), n.Evaluations(), "skipped node %s must not evaluate", id)
	}
}

// splitID turns "local.b" into its path names.
func splitID(id string) []string {
	var names []string
	start := 0
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			names = append(names, id[start:i])
			start = i + 1
		}
	}
	return append(names, id[start:])
}

func TestRun_DeferredExpansion(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "n"}},
		Resources: []*schema.Resource{{
			Type:         "server",
			Name:         "web",
			Multiplicity: &schema.Multiplicity{Mode: schema.MultCount, Expr: ref("var", "n")},
			Args:         argMap(arg{"name", str("web")}),
		}},
		Outputs: []*schema.Output{{Name: "all", Expr: ref("resource", "server", "web")}},
	}

	g := build(t, cfg)
	res, err := graph.NewRunner(g, graph.Options{
		Variables: map[string]value.Value{"n": value.Unknown},
	}).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())

	require.Len(t, res.Deferred, 1)
	assert.Equal(t, "resource.server.web", res.Deferred[0].String())
	assert.Empty(t, res.Instances)

	// Dependents still evaluate and see Unknown rather than being skipped.
	assert.True(t, res.Outputs["all"].Value.IsUnknown())

	n, _ := g.Node(addr.MakePath("resource", "server", "web"))
	assert.Equal(t, graph.Deferred, n.State())
}

func TestRun_RequiredVariableMissing(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "region"}},
		Outputs:   []*schema.Output{{Name: "r", Expr: ref("var", "region")}},
	}

	res := run(t, cfg, graph.Options{})

	require.Len(t, res.Failures, 1)
	var vErr diag.ValidationError
	require.ErrorAs(t, res.Failures[0].Err, &vErr)
	assert.Equal(t, "var.region", vErr.Subject)
	require.Len(t, res.Skipped, 1)
}

func TestRun_VariableTypeConformance(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "port", Type: value.Primitive(value.KindNumber)}},
		Outputs:   []*schema.Output{{Name: "p", Expr: ref("var", "port")}},
	}

	t.Run("string converts to number", func(t *testing.T) {
		res := run(t, cfg, graph.Options{
			Variables: map[string]value.Value{"port": value.StringVal("8080")},
		})
		require.NoError(t, res.Err())
		assert.True(t, value.Equal(value.IntVal(8080), res.Outputs["p"].Value))
	})

	t.Run("bool does not", func(t *testing.T) {
		res := run(t, cfg, graph.Options{
			Variables: map[string]value.Value{"port": value.True},
		})
		var convErr diag.ConversionError
		require.ErrorAs(t, res.Err(), &convErr)
	})
}

func TestRun_VariableValidations(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{
			Name: "port",
			Validations: []schema.Validation{
				{
					Condition: &ast.BinaryOp{Op: ast.OpLte, LHS: ref("var", "port"), RHS: num("65535")},
					Message:   "port must be at most 65535",
				},
				{
					Condition: &ast.BinaryOp{Op: ast.OpGt, LHS: ref("var", "port"), RHS: num("0")},
					Message:   "port must be positive",
				},
			},
		}},
	}

	t.Run("valid value passes", func(t *testing.T) {
		res := run(t, cfg, graph.Options{
			Variables: map[string]value.Value{"port": value.IntVal(8080)},
		})
		require.NoError(t, res.Err())
	})

	t.Run("every violated rule is reported", func(t *testing.T) {
		res := run(t, cfg, graph.Options{
			Variables: map[string]value.Value{"port": value.IntVal(-70000)},
		})
		err := res.Err()
		require.Error(t, err)
		assert.ErrorContains(t, err, "port must be positive")
		// -70000 <= 65535 holds, so only one rule fires here.
		assert.NotContains(t, err.Error(), "at most")
	})

	t.Run("unknown value cannot fail validation yet", func(t *testing.T) {
		res := run(t, cfg, graph.Options{
			Variables: map[string]value.Value{"port": value.Unknown},
		})
		require.NoError(t, res.Err())
	})
}

func TestRun_DependsOnOrdersAndSkips(t *testing.T) {
	cfg := &schema.Config{
		Resources: []*schema.Resource{
			{
				Type: "server",
				Name: "db",
				Args: argMap(arg{"port", &ast.BinaryOp{Op: ast.OpDiv, LHS: num("1"), RHS: num("0")}}),
			},
			{
				Type:      "server",
				Name:      "web",
				Args:      argMap(arg{"name", str("web")}),
				DependsOn: []addr.Path{addr.MakePath("resource", "server", "db")},
			},
		},
	}

	res := run(t, cfg, graph.Options{})

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "resource.server.db", res.Failures[0].Addr.String())
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "resource.server.web", res.Skipped[0].Addr.String())
}

func TestApplyResolved_ReevaluatesOnlyDependents(t *testing.T) {
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "ip"}},
		Resources: []*schema.Resource{
			{
				Type:         "server",
				Name:         "web",
				Multiplicity: &schema.Multiplicity{Mode: schema.MultCount, Expr: num("2")},
				Args: argMap(
					arg{"name", tmpl(str("srv-"), ref("count", "index"))},
					arg{"ip", ref("var", "ip")},
				),
			},
			{
				Type: "server",
				Name: "other",
				Args: argMap(arg{"name", str("other")}),
			},
		},
		Outputs: []*schema.Output{{
			Name: "first_ip",
			Expr: &ast.Attr{
				Source: &ast.Index{Coll: ref("resource", "server", "web"), Key: num("0")},
				Name:   "ip",
			},
		}},
	}

	res := run(t, cfg, graph.Options{
		Variables: map[string]value.Value{"ip": value.Unknown},
	})
	require.NoError(t, res.Err())

	first := addr.Instance{Decl: addr.MakePath("resource", "server", "web"), Key: addr.IntKey(0)}
	inst, ok := res.Instance(first)
	require.True(t, ok)
	assert.Equal(t, []string{"ip"}, inst.UnknownAttrs)
	assert.True(t, res.Outputs["first_ip"].Value.IsUnknown())

	res2, err := res.ApplyResolved(context.Background(), first, map[string]value.Value{
		"ip": value.StringVal("10.0.0.5"),
	})
	require.NoError(t, err)
	require.NoError(t, res2.Err())

	inst2, ok := res2.Instance(first)
	require.True(t, ok)
	ip, _ := inst2.Attr("ip")
	assert.True(t, value.Equal(value.StringVal("10.0.0.5"), ip))
	assert.Empty(t, inst2.UnknownAttrs)

	// The sibling instance keeps its Unknown attribute untouched.
	second := addr.Instance{Decl: addr.MakePath("resource", "server", "web"), Key: addr.IntKey(1)}
	sib, ok := res2.Instance(second)
	require.True(t, ok)
	assert.Equal(t, []string{"ip"}, sib.UnknownAttrs)

	assert.True(t, value.Equal(value.StringVal("10.0.0.5"), res2.Outputs["first_ip"].Value))

	// Only the dependent output re-evaluated; the resource itself and
	// everything unrelated kept their cached results.
	assert.Equal(t, int64(1), res2.Stats.Evaluations["resource.server.web"])
	assert.Equal(t, int64(1), res2.Stats.Evaluations["resource.server.other"])
	assert.Equal(t, int64(1), res2.Stats.Evaluations["var.ip"])
	assert.Equal(t, int64(2), res2.Stats.Evaluations["output.first_ip"])
}

func TestApplyResolved_Rejections(t *testing.T) {
	cfg := &schema.Config{
		Resources: []*schema.Resource{{
			Type: "server",
			Name: "web",
			Args: argMap(arg{"name", str("web")}),
		}},
	}

	res := run(t, cfg, graph.Options{})
	require.NoError(t, res.Err())
	inst := addr.Instance{Decl: addr.MakePath("resource", "server", "web")}

	testCases := []struct {
		name  string
		inst  addr.Instance
		attrs map[string]value.Value
	}{
		{
			name:  "already known attribute",
			inst:  inst,
			attrs: map[string]value.Value{"name": value.StringVal("new")},
		},
		{
			name:  "attribute that does not exist",
			inst:  inst,
			attrs: map[string]value.Value{"bogus": value.StringVal("x")},
		},
		{
			name:  "unknown declaration",
			inst:  addr.Instance{Decl: addr.MakePath("resource", "server", "nope")},
			attrs: map[string]value.Value{"name": value.StringVal("x")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := res.ApplyResolved(context.Background(), tc.inst, tc.attrs)
			assert.Error(t, err)
		})
	}
}

func TestApplyResolved_ExpandsFormerlyDeferredNode(t *testing.T) {
	// resource.a.seed resolves with an unknown "n"; resource.b.fleet's
	// count reads it, so the fleet defers. Supplying the real value must
	// expand the fleet on the incremental pass.
	cfg := &schema.Config{
		Variables: []*schema.Variable{{Name: "n"}},
		Resources: []*schema.Resource{
			{
				Type: "a",
				Name: "seed",
				Args: argMap(arg{"n", ref("var", "n")}),
			},
			{
				Type:         "b",
				Name:         "fleet",
				Multiplicity: &schema.Multiplicity{Mode: schema.MultCount, Expr: ref("resource", "a", "seed", "n")},
				Args:         argMap(arg{"name", tmpl(str("node-"), ref("count", "index"))}),
			},
		},
	}

	res := run(t, cfg, graph.Options{
		Variables: map[string]value.Value{"n": value.Unknown},
	})
	require.NoError(t, res.Err())
	require.Len(t, res.Deferred, 1)
	assert.Equal(t, "resource.b.fleet", res.Deferred[0].String())

	seed := addr.Instance{Decl: addr.MakePath("resource", "a", "seed")}
	res2, err := res.ApplyResolved(context.Background(), seed, map[string]value.Value{
		"n": value.IntVal(2),
	})
	require.NoError(t, err)
	require.NoError(t, res2.Err())

	assert.Empty(t, res2.Deferred)
	require.Len(t, res2.Instances, 3)
	var fleet []string
	for _, inst := range res2.Instances {
		if inst.Addr.Decl.String() == "resource.b.fleet" {
			name, _ := inst.Attr("name")
			fleet = append(fleet, name.AsString())
		}
	}
	assert.Equal(t, []string{"node-0", "node-1"}, fleet)
}
