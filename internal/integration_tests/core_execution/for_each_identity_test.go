package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/testutil"
	"github.com/specialistvlad/terrane/internal/value"
)

func instanceIDs(t *testing.T, res testutil.RunResult) []string {
	t.Helper()
	ids := make([]string, 0, len(res.Result.Instances))
	for _, inst := range res.Result.Instances {
		ids = append(ids, inst.Addr.String())
	}
	return ids
}

// TestCoreExecution_ForEach_BindsKeyAndValue validates that each.key and
// each.value reach each instance's scope.
func TestCoreExecution_ForEach_BindsKeyAndValue(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
resource "service" "app" {
  for_each = { web = 2, api = 1 }
  svc      = each.key
  replicas = each.value
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})
	require.NoError(t, res.Err)

	assert.Equal(t, []string{
		`resource.service.app["api"]`,
		`resource.service.app["web"]`,
	}, instanceIDs(t, res))

	api := res.Result.Instances[0]
	svc, _ := api.Attr("svc")
	assert.True(t, value.Equal(value.StringVal("api"), svc))
	replicas, _ := api.Attr("replicas")
	assert.True(t, value.Equal(value.IntVal(1), replicas))
}

// TestCoreExecution_ForEach_IdentityIgnoresSourceOrder validates that the
// same keys produce the same instance identities no matter how the source
// collection is written.
func TestCoreExecution_ForEach_IdentityIgnoresSourceOrder(t *testing.T) {
	t.Parallel()

	workspace := func(elems string) map[string]string {
		return map[string]string{
			"main.hcl": `
resource "bucket" "b" {
  for_each = toset(` + elems + `)
  name     = each.key
}
`,
		}
	}

	forward := testutil.RunWorkspace(t, workspace(`["alpha", "beta", "gamma"]`), graph.Options{})
	require.NoError(t, forward.Err)
	reversed := testutil.RunWorkspace(t, workspace(`["gamma", "alpha", "beta"]`), graph.Options{})
	require.NoError(t, reversed.Err)

	assert.Equal(t, instanceIDs(t, forward), instanceIDs(t, reversed))
}

// TestCoreExecution_ForEach_RemovalOnlyAffectsThatKey validates that
// dropping one key removes exactly one instance and leaves the siblings'
// identities and values untouched.
func TestCoreExecution_ForEach_RemovalOnlyAffectsThatKey(t *testing.T) {
	t.Parallel()

	workspace := func(elems string) map[string]string {
		return map[string]string{
			"main.hcl": `
resource "bucket" "b" {
  for_each = toset(` + elems + `)
  name     = "bucket-${each.key}"
}
`,
		}
	}

	before := testutil.RunWorkspace(t, workspace(`["a", "b", "c"]`), graph.Options{})
	require.NoError(t, before.Err)
	after := testutil.RunWorkspace(t, workspace(`["a", "c"]`), graph.Options{})
	require.NoError(t, after.Err)

	assert.Equal(t, []string{
		`resource.bucket.b["a"]`,
		`resource.bucket.b["b"]`,
		`resource.bucket.b["c"]`,
	}, instanceIDs(t, before))
	assert.Equal(t, []string{
		`resource.bucket.b["a"]`,
		`resource.bucket.b["c"]`,
	}, instanceIDs(t, after))

	// Surviving instances carry identical values.
	for _, key := range []string{`resource.bucket.b["a"]`, `resource.bucket.b["c"]`} {
		var bName, aName value.Value
		for _, inst := range before.Result.Instances {
			if inst.Addr.String() == key {
				bName, _ = inst.Attr("name")
			}
		}
		for _, inst := range after.Result.Instances {
			if inst.Addr.String() == key {
				aName, _ = inst.Attr("name")
			}
		}
		assert.True(t, value.Equal(bName, aName), "instance %s changed", key)
	}
}

// TestCoreExecution_ForEach_ListIsRejected validates the deliberate policy
// of refusing positional collections as instance identity.
func TestCoreExecution_ForEach_ListIsRejected(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
resource "bucket" "b" {
  for_each = ["a", "b"]
  name     = each.key
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "toset")
	assert.Empty(t, res.Result.Instances)
}
