package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/ast"
	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func local(t *testing.T, name string) *ast.SymbolRef { return ref(t, "local."+name) }

func bare(name string) *ast.SymbolRef {
	return &ast.SymbolRef{Path: addr.MakePath(name)}
}

func bareAttr(name, attr string) *ast.SymbolRef {
	return &ast.SymbolRef{Path: addr.MakePath(name, attr)}
}

func TestForExpr_ListForm(t *testing.T) {
	sc := testScope(mapResolver{
		"local.names": value.ListVal([]value.Value{
			value.StringVal("a"), value.StringVal("bb"), value.StringVal("ccc"),
		}),
	})

	// [for i, s in local.names : "${i}:${s}" if s != "bb"]
	expr := &ast.ForExpr{
		KeyVar: "i",
		ValVar: "s",
		Coll:   local(t, "names"),
		ValExpr: &ast.Template{Parts: []ast.Node{
			bare("i"), str(":"), bare("s"),
		}},
		Cond: &ast.BinaryOp{Op: ast.OpNeq, LHS: bare("s"), RHS: str("bb")},
	}

	got := mustRun(t, expr, sc)
	expected := value.ListVal([]value.Value{
		value.StringVal("0:a"), value.StringVal("2:ccc"),
	})
	assert.True(t, value.Equal(expected, got), "got %s", got)
}

func TestForExpr_MapForm(t *testing.T) {
	sc := testScope(mapResolver{
		"local.ports": value.MapVal(
			value.Pair{Key: "http", Val: value.IntVal(80)},
			value.Pair{Key: "https", Val: value.IntVal(443)},
		),
	})

	// {for name, port in local.ports : name => port + 1000}
	expr := &ast.ForExpr{
		KeyVar:  "name",
		ValVar:  "port",
		Coll:    local(t, "ports"),
		KeyExpr: bare("name"),
		ValExpr: &ast.BinaryOp{Op: ast.OpAdd, LHS: bare("port"), RHS: num(1000)},
	}

	got := mustRun(t, expr, sc)
	expected := value.MapVal(
		value.Pair{Key: "http", Val: value.IntVal(1080)},
		value.Pair{Key: "https", Val: value.IntVal(1443)},
	)
	assert.True(t, value.Equal(expected, got), "got %s", got)
}

func TestForExpr_DuplicateKeysFailHard(t *testing.T) {
	sc := testScope(mapResolver{
		"local.names": value.ListVal([]value.Value{
			value.StringVal("x"), value.StringVal("x"),
		}),
	})

	// {for s in local.names : s => true} — never last-write-wins.
	expr := &ast.ForExpr{
		ValVar:  "s",
		Coll:    local(t, "names"),
		KeyExpr: bare("s"),
		ValExpr: lit(value.True),
	}

	_, err := run(t, expr, sc)
	var dup diag.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Key)
}

func TestForExpr_GroupingCollectsDuplicates(t *testing.T) {
	sc := testScope(mapResolver{
		"local.names": value.ListVal([]value.Value{
			value.StringVal("x"), value.StringVal("y"), value.StringVal("x"),
		}),
	})

	// {for i, s in local.names : s => i...}
	expr := &ast.ForExpr{
		KeyVar:  "i",
		ValVar:  "s",
		Coll:    local(t, "names"),
		KeyExpr: bare("s"),
		ValExpr: bare("i"),
		Group:   true,
	}

	got := mustRun(t, expr, sc)
	expected := value.MapVal(
		value.Pair{Key: "x", Val: value.ListVal([]value.Value{value.IntVal(0), value.IntVal(2)})},
		value.Pair{Key: "y", Val: value.ListVal([]value.Value{value.IntVal(1)})},
	)
	assert.True(t, value.Equal(expected, got), "got %s", got)
}

func TestForExpr_FilterMustBeBool(t *testing.T) {
	sc := testScope(mapResolver{
		"local.names": value.ListVal([]value.Value{value.StringVal("a")}),
	})
	expr := &ast.ForExpr{
		ValVar:  "s",
		Coll:    local(t, "names"),
		ValExpr: bare("s"),
		Cond:    num(1),
	}
	_, err := run(t, expr, sc)
	var typ diag.TypeError
	require.ErrorAs(t, err, &typ)
	assert.Equal(t, "number", typ.Got)
}

func TestForExpr_SetBindsElementAsKey(t *testing.T) {
	sc := testScope(mapResolver{
		"local.set": value.SetVal([]value.Value{
			value.StringVal("b"), value.StringVal("a"),
		}),
	})
	// {for k, v in local.set : k => v} — key and value are the element.
	expr := &ast.ForExpr{
		KeyVar:  "k",
		ValVar:  "v",
		Coll:    local(t, "set"),
		KeyExpr: bare("k"),
		ValExpr: bare("v"),
	}
	got := mustRun(t, expr, sc)
	expected := value.MapVal(
		value.Pair{Key: "a", Val: value.StringVal("a")},
		value.Pair{Key: "b", Val: value.StringVal("b")},
	)
	assert.True(t, value.Equal(expected, got))
}

func TestForExpr_UnknownCollection(t *testing.T) {
	expr := &ast.ForExpr{ValVar: "v", Coll: lit(value.Unknown), ValExpr: bare("v")}
	assert.True(t, mustRun(t, expr, nil).IsUnknown())
}

func TestForExpr_NonCollectionInput(t *testing.T) {
	expr := &ast.ForExpr{ValVar: "v", Coll: num(5), ValExpr: bare("v")}
	_, err := run(t, expr, nil)
	var typ diag.TypeError
	require.ErrorAs(t, err, &typ)
}

func TestSplat(t *testing.T) {
	instances := value.ListVal([]value.Value{
		value.ObjectVal(value.Pair{Key: "ip", Val: value.StringVal("10.0.0.1")}),
		value.ObjectVal(value.Pair{Key: "ip", Val: value.StringVal("10.0.0.2")}),
	})

	splatIP := func(source ast.Node) *ast.Splat {
		return &ast.Splat{
			Source: source,
			Each:   &ast.Attr{Source: &ast.AnonRef{}, Name: "ip"},
		}
	}

	t.Run("maps attribute over elements", func(t *testing.T) {
		sc := testScope(mapResolver{"resource.vm.web": instances})
		got := mustRun(t, splatIP(ref(t, "resource.vm.web")), sc)
		expected := value.ListVal([]value.Value{
			value.StringVal("10.0.0.1"), value.StringVal("10.0.0.2"),
		})
		assert.True(t, value.Equal(expected, got))
	})

	t.Run("null source yields empty list", func(t *testing.T) {
		got := mustRun(t, splatIP(lit(value.Null)), nil)
		assert.True(t, value.Equal(value.EmptyList, got))
	})

	t.Run("unknown source yields unknown", func(t *testing.T) {
		got := mustRun(t, splatIP(lit(value.Unknown)), nil)
		assert.True(t, got.IsUnknown())
	})

	t.Run("scalar source is a single-element list", func(t *testing.T) {
		scalar := value.ObjectVal(value.Pair{Key: "ip", Val: value.StringVal("10.0.0.9")})
		got := mustRun(t, splatIP(lit(scalar)), nil)
		assert.True(t, value.Equal(value.ListVal([]value.Value{value.StringVal("10.0.0.9")}), got))
	})
}

func TestForExpr_IterationVarsDoNotLeak(t *testing.T) {
	sc := testScope(mapResolver{
		"local.names": value.ListVal([]value.Value{value.StringVal("a")}),
	})
	inner := &ast.ForExpr{
		ValVar:  "s",
		Coll:    local(t, "names"),
		ValExpr: bare("s"),
	}
	// Referencing s outside the comprehension is undefined.
	outer := &ast.TupleCons{Items: []ast.Node{inner, bare("s")}}
	_, err := run(t, outer, sc)
	var undef diag.UndefinedSymbolError
	require.ErrorAs(t, err, &undef)
}

func TestForExpr_AttributeFilter(t *testing.T) {
	sc := testScope(mapResolver{
		"local.services": value.ListVal([]value.Value{
			value.ObjectVal(
				value.Pair{Key: "name", Val: value.StringVal("db")},
				value.Pair{Key: "enabled", Val: value.True},
			),
			value.ObjectVal(
				value.Pair{Key: "name", Val: value.StringVal("cache")},
				value.Pair{Key: "enabled", Val: value.False},
			),
		}),
	})

	// [for svc in local.services : svc.name if svc.enabled]
	expr := &ast.ForExpr{
		ValVar:  "svc",
		Coll:    local(t, "services"),
		ValExpr: bareAttr("svc", "name"),
		Cond:    bareAttr("svc", "enabled"),
	}

	got := mustRun(t, expr, sc)
	assert.True(t, value.Equal(value.ListVal([]value.Value{value.StringVal("db")}), got))
}
