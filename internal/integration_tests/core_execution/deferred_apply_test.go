package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/addr"
	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/testutil"
	"github.com/specialistvlad/terrane/internal/value"
)

// TestCoreExecution_TwoPhaseResolve walks the full provider protocol: the
// first pass leaves an attribute Unknown and flags it, the provider-side
// caller supplies the real value, and the incremental pass propagates it
// to dependents without re-evaluating anything else.
func TestCoreExecution_TwoPhaseResolve(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
variable "assigned_ip" {}

resource "server" "db" {
  name = "db"
  ip   = var.assigned_ip
}

resource "server" "web" {
  name    = "web"
  db_host = resource.server.db.ip
}

output "db_ip" {
  value = resource.server.db.ip
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{
		Variables: map[string]value.Value{"assigned_ip": value.Unknown},
	})
	require.NoError(t, res.Err)

	dbAddr := addr.Instance{Decl: addr.MakePath("resource", "server", "db")}
	db, ok := res.Result.Instance(dbAddr)
	require.True(t, ok)
	assert.Equal(t, []string{"ip"}, db.UnknownAttrs)

	web, ok := res.Result.Instance(addr.Instance{Decl: addr.MakePath("resource", "server", "web")})
	require.True(t, ok)
	assert.Equal(t, []string{"db_host"}, web.UnknownAttrs)
	assert.True(t, res.Result.Outputs["db_ip"].Value.IsUnknown())

	// Second phase: the side effect completed, the address is known.
	next, err := res.Result.ApplyResolved(context.Background(), dbAddr, map[string]value.Value{
		"ip": value.StringVal("10.1.2.3"),
	})
	require.NoError(t, err)
	require.NoError(t, next.Err())

	web2, ok := next.Instance(addr.Instance{Decl: addr.MakePath("resource", "server", "web")})
	require.True(t, ok)
	assert.Empty(t, web2.UnknownAttrs)
	host, _ := web2.Attr("db_host")
	assert.True(t, value.Equal(value.StringVal("10.1.2.3"), host))
	assert.True(t, value.Equal(value.StringVal("10.1.2.3"), next.Outputs["db_ip"].Value))

	// Only the dependents re-evaluated.
	assert.Equal(t, int64(1), next.Stats.Evaluations["resource.server.db"])
	assert.Equal(t, int64(2), next.Stats.Evaluations["resource.server.web"])
	assert.Equal(t, int64(2), next.Stats.Evaluations["output.db_ip"])
}

// TestCoreExecution_UnknownMultiplicityDefers validates that a resource
// whose count cannot be decided yet is reported as deferred, not failed,
// while dependents observe Unknown.
func TestCoreExecution_UnknownMultiplicityDefers(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
variable "replicas" {}

resource "server" "web" {
  count = var.replicas
  name  = "web-${count.index}"
}

output "fleet" {
  value = resource.server.web
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{
		Variables: map[string]value.Value{"replicas": value.Unknown},
	})
	require.NoError(t, res.Err)

	require.Len(t, res.Result.Deferred, 1)
	assert.Equal(t, "resource.server.web", res.Result.Deferred[0].String())
	assert.Empty(t, res.Result.Instances)
	assert.Empty(t, res.Result.Failures)
	assert.True(t, res.Result.Outputs["fleet"].Value.IsUnknown())
}
